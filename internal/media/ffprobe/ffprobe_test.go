package ffprobe

import (
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Channels: 2},
			{CodecType: "video", Width: 1280, Height: 720, AvgFrameRate: "30000/1001", RFrameRate: "30/1", NBFrames: "3117"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	width, height := result.Dimensions()
	if width != 1280 || height != 720 {
		t.Fatalf("unexpected dimensions: %dx%d", width, height)
	}
	if got := result.FrameRate(); math.Abs(got-29.97) > 0.01 {
		t.Fatalf("unexpected frame rate: %v", got)
	}
	if result.FrameCount() != 3117 {
		t.Fatalf("unexpected frame count: %d", result.FrameCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestFrameRateFallsBackToRawRate(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", AvgFrameRate: "0/0", RFrameRate: "25/1"},
		},
	}
	if got := result.FrameRate(); got != 25 {
		t.Fatalf("expected raw rate fallback, got %v", got)
	}
}

func TestParseRational(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 30000.0 / 1001.0},
		{"0/0", 0},
		{"", 0},
		{"24", 24},
		{"-25/1", 0},
		{"x/y", 0},
	}
	for _, tc := range cases {
		if got := parseRational(tc.in); got != tc.want {
			t.Fatalf("parseRational(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}
