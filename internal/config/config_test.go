package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"parallax/internal/composite"
	"parallax/internal/config"
	"parallax/internal/geometry"
	"parallax/internal/transcode"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "parallax", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Lens.Correction != config.LensCorrectionUnadjusted {
		t.Fatalf("unexpected lens correction: %q", cfg.Lens.Correction)
	}
	if cfg.Output.Width != 1920 || cfg.Output.Height != 1080 {
		t.Fatalf("unexpected output geometry: %dx%d", cfg.Output.Width, cfg.Output.Height)
	}
	if !cfg.Output.Upscale {
		t.Fatal("expected upscale enabled by default")
	}
	if cfg.LayoutValue() != composite.LayoutHorizontal {
		t.Fatalf("unexpected layout: %v", cfg.LayoutValue())
	}
	if cfg.Engine.FFmpegBinary != "ffmpeg" || cfg.Engine.FFprobeBinary != "ffprobe" {
		t.Fatalf("unexpected engine binaries: %q %q", cfg.Engine.FFmpegBinary, cfg.Engine.FFprobeBinary)
	}
	if cfg.Format.Default != "stereoscope" {
		t.Fatalf("unexpected default format: %q", cfg.Format.Default)
	}
}

func TestLoadExplicitFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[rig]
vertical_error_pixels = 17
horizontal_error_pixels = -3

[lens]
correction = "rectilinear"

[lens.left]
coefficients = [-0.26, 0.06]

[lens.right]
coefficients = [-0.25, 0.05]

[output]
width = 1280
height = 720
layout = "vertical"

[sync]
tolerance_millis = 12

[format]
default = "anaglyph"
anaglyph_mapping = "dubois"

[engine]
audio_mode = "merge"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected config to resolve and exist, got %q %v", resolved, exists)
	}

	if got := cfg.Offset(); got.VerticalPixels != 16 || got.HorizontalPixels != -3 {
		t.Fatalf("unexpected normalized offset: %+v", got)
	}
	if cfg.LayoutValue() != composite.LayoutVertical {
		t.Fatalf("unexpected layout: %v", cfg.LayoutValue())
	}
	if got := cfg.Tolerance(0); got != 12*time.Millisecond {
		t.Fatalf("unexpected tolerance: %v", got)
	}

	left := cfg.Profile(geometry.EyeLeft)
	if left.IsIdentity() {
		t.Fatal("expected rectilinear left profile")
	}
	if len(left.Coefficients) != 2 || left.Coefficients[0] != -0.26 {
		t.Fatalf("unexpected left coefficients: %v", left.Coefficients)
	}

	spec, err := cfg.FormatSpec("")
	if err != nil {
		t.Fatalf("FormatSpec returned error: %v", err)
	}
	if spec.Kind != transcode.KindAnaglyph {
		t.Fatalf("unexpected format kind: %v", spec.Kind)
	}
	if spec.Mapping.Name != "dubois" {
		t.Fatalf("unexpected mapping: %q", spec.Mapping.Name)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown lens correction",
			content: "[lens]\ncorrection = \"fisheye\"\n",
			want:    "lens.correction",
		},
		{
			name:    "non-positive output",
			content: "[output]\nwidth = 0\nheight = 1080\n",
			want:    "output.width",
		},
		{
			name:    "negative tolerance",
			content: "[sync]\ntolerance_millis = -5\n",
			want:    "sync.tolerance_millis",
		},
		{
			name:    "missing frame rate",
			content: "[sync]\ntolerance_millis = 0\nframe_rate = 0.0\n",
			want:    "sync.frame_rate",
		},
		{
			name:    "unknown format",
			content: "[format]\ndefault = \"hologram\"\n",
			want:    "format",
		},
		{
			name:    "oversized gap",
			content: "[output]\nwidth = 640\nheight = 480\n\n[format]\nstereoscope_gap = 640\n",
			want:    "stereoscope_gap",
		},
		{
			name:    "unknown audio mode",
			content: "[engine]\naudio_mode = \"duplicate\"\n",
			want:    "engine.audio_mode",
		},
		{
			name:    "too many coefficients",
			content: "[lens]\ncorrection = \"rectilinear\"\n\n[lens.left]\ncoefficients = [0.1, 0.1, 0.1, 0.1]\n",
			want:    "lens.left",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestToleranceDerivedFromFrameRate(t *testing.T) {
	cfg := config.Default()
	cfg.Sync.FrameRate = 25

	got := cfg.Tolerance(0)
	if got != 20*time.Millisecond {
		t.Fatalf("unexpected derived tolerance: %v", got)
	}

	// A probed rate takes precedence over the configured fallback.
	got = cfg.Tolerance(50)
	if got != 10*time.Millisecond {
		t.Fatalf("unexpected probed tolerance: %v", got)
	}
}

func TestProfileIdentityWhenUnadjusted(t *testing.T) {
	cfg := config.Default()
	cfg.Lens.Left.Coefficients = []float64{-0.3}

	if !cfg.Profile(geometry.EyeLeft).IsIdentity() {
		t.Fatal("unadjusted correction must yield identity profiles")
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[rig]") {
		t.Fatal("sample config missing [rig] section")
	}
}
