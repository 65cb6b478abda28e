package engine

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"parallax/internal/frame"
)

func TestNewFFmpegWithBinaries(t *testing.T) {
	eng := NewFFmpeg(WithFFmpegBinary("/opt/ffmpeg"), WithFFprobeBinary("/opt/ffprobe"))
	if eng.ffmpeg != "/opt/ffmpeg" {
		t.Fatalf("expected ffmpeg override, got %q", eng.ffmpeg)
	}
	if eng.ffprobe != "/opt/ffprobe" {
		t.Fatalf("expected ffprobe override, got %q", eng.ffprobe)
	}
}

func TestDecodeArgs(t *testing.T) {
	args := decodeArgs("/media/left.mp4")
	joined := strings.Join(args, " ")
	for _, want := range []string{"-i /media/left.mp4", "-f rawvideo", "-pix_fmt rgba", "-map 0:v:0"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("decode args %q missing %q", joined, want)
		}
	}
	if args[len(args)-1] != "-" {
		t.Fatalf("decode must write to stdout, got %q", args[len(args)-1])
	}
}

func TestSinkArgsVideoOnly(t *testing.T) {
	spec := SinkSpec{
		OutputPath: "/out/movie.mp4",
		Size:       frame.Size{Width: 3840, Height: 1080},
		FrameRate:  29.97,
		AudioMode:  "none",
	}
	args := sinkArgs(spec, "mp4", partialPath(spec.OutputPath))
	joined := strings.Join(args, " ")
	for _, want := range []string{"-s 3840x1080", "-r 29.97", "-pix_fmt yuv420p", "-f mp4"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("sink args %q missing %q", joined, want)
		}
	}
	if strings.Contains(joined, "-map 1:a") || strings.Contains(joined, "amerge") {
		t.Fatalf("video-only sink must not map audio: %q", joined)
	}
	if !strings.HasSuffix(args[len(args)-1], ".partial") {
		t.Fatalf("sink must write to a partial file, got %q", args[len(args)-1])
	}
}

func TestSinkArgsCopyTakesFirstAudioSource(t *testing.T) {
	spec := SinkSpec{
		OutputPath:   "/out/movie.mp4",
		Size:         frame.Size{Width: 100, Height: 100},
		FrameRate:    25,
		AudioSources: []string{"/in/left.mp4", "/in/right.mp4"},
		AudioMode:    "copy",
	}
	args := sinkArgs(spec, "mp4", partialPath(spec.OutputPath))
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-i /in/left.mp4") {
		t.Fatalf("expected left source as audio input: %q", joined)
	}
	if strings.Contains(joined, "/in/right.mp4") {
		t.Fatalf("copy mode must use only the first source: %q", joined)
	}
	if !strings.Contains(joined, "-map 1:a:0") || !strings.Contains(joined, "-c:a copy") {
		t.Fatalf("expected audio copy mapping: %q", joined)
	}
}

func TestSinkArgsMergeBuildsFilter(t *testing.T) {
	spec := SinkSpec{
		OutputPath:   "/out/movie.mkv",
		Size:         frame.Size{Width: 100, Height: 100},
		FrameRate:    25,
		AudioSources: []string{"/in/left.mp4", "/in/right.mp4"},
		AudioMode:    "merge",
	}
	args := sinkArgs(spec, "matroska", partialPath(spec.OutputPath))
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "[1:a][2:a]amerge=inputs=2[a]") {
		t.Fatalf("expected amerge filter: %q", joined)
	}
	if !strings.Contains(joined, "-map [a]") || !strings.Contains(joined, "-c:a aac") {
		t.Fatalf("expected merged audio mapping: %q", joined)
	}
}

func TestContainerFormat(t *testing.T) {
	cases := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "/out/a.mp4", want: "mp4"},
		{path: "/out/a.MKV", want: "matroska"},
		{path: "/out/a.mov", want: "mov"},
		{path: "/out/a.avi", want: "avi"},
		{path: "/out/a.webm", wantErr: true},
		{path: "/out/noext", wantErr: true},
	}
	for _, tc := range cases {
		got, err := containerFormat(tc.path)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("containerFormat(%q) expected error", tc.path)
			}
			continue
		}
		if err != nil {
			t.Fatalf("containerFormat(%q) returned error: %v", tc.path, err)
		}
		if got != tc.want {
			t.Fatalf("containerFormat(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestPartialPathStaysInOutputDirectory(t *testing.T) {
	got := partialPath("/out/clips/movie (SbS).mp4")
	if filepath.Dir(got) != "/out/clips" {
		t.Fatalf("partial must stay next to the output, got %q", got)
	}
	base := filepath.Base(got)
	if !strings.HasPrefix(base, ".") || !strings.HasSuffix(base, ".partial") {
		t.Fatalf("unexpected partial name %q", base)
	}
}

func TestFrameTimestamp(t *testing.T) {
	if got := frameTimestamp(0, 25); got != 0 {
		t.Fatalf("frame 0 must be at t=0, got %v", got)
	}
	if got := frameTimestamp(25, 25); got != time.Second {
		t.Fatalf("frame 25 at 25fps must be at 1s, got %v", got)
	}
	got := frameTimestamp(1, 29.97)
	ntscFPS := 29.97
	want := time.Duration(float64(time.Second) / ntscFPS)
	if diff := got - want; diff < -time.Microsecond || diff > time.Microsecond {
		t.Fatalf("unexpected ntsc timestamp: got %v want %v", got, want)
	}
}

func TestWriteRGBAHandlesSubImageStride(t *testing.T) {
	parent := image.NewRGBA(image.Rect(0, 0, 8, 4))
	draw.Draw(parent, parent.Bounds(), image.NewUniform(color.RGBA{R: 9, G: 8, B: 7, A: 255}), image.Point{}, draw.Src)
	sub := parent.SubImage(image.Rect(2, 1, 6, 3)).(*image.RGBA)

	var buf bytes.Buffer
	if err := writeRGBA(&buf, sub); err != nil {
		t.Fatalf("writeRGBA returned error: %v", err)
	}
	want := 4 * 2 * bytesPerPixel
	if buf.Len() != want {
		t.Fatalf("expected %d bytes, got %d", want, buf.Len())
	}
	for i := 0; i < buf.Len(); i += bytesPerPixel {
		b := buf.Bytes()[i : i+4]
		if b[0] != 9 || b[1] != 8 || b[2] != 7 || b[3] != 255 {
			t.Fatalf("unexpected pixel at offset %d: %v", i, b)
		}
	}
}

func TestTailWriterKeepsTail(t *testing.T) {
	w := newTailWriter(8)
	if _, err := w.Write([]byte("0123456789abcdef")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := w.String(); got != "89abcdef" {
		t.Fatalf("unexpected tail: %q", got)
	}
}
