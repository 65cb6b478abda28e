package testsupport

import (
	"path/filepath"
	"testing"

	"parallax/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults to a small canonical size so frame-level tests stay fast, and
// applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.QueueDir = filepath.Join(base, "queue")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Output.Width = 64
	cfgVal.Output.Height = 48
	cfgVal.Sync.FrameRate = 25

	builder := &configBuilder{t: t, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithOutputSize overrides the canonical per-eye geometry.
func WithOutputSize(width, height int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Width = width
		b.cfg.Output.Height = height
	}
}

// WithLayout overrides the composite layout.
func WithLayout(layout string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Layout = layout
	}
}

// WithRigOffset sets the mechanical misalignment in pixels.
func WithRigOffset(vertical, horizontal int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Rig.VerticalErrorPixels = vertical
		b.cfg.Rig.HorizontalErrorPixels = horizontal
	}
}

// WithToleranceMillis sets an explicit pairing tolerance.
func WithToleranceMillis(millis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.ToleranceMillis = millis
	}
}

// WithFormat sets the default transcode target.
func WithFormat(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Format.Default = name
	}
}

// WithAudioMode overrides the audio handling mode.
func WithAudioMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.AudioMode = mode
	}
}

// WithWindowFrames sets the per-eye in-flight frame window.
func WithWindowFrames(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.WindowFrames = n
	}
}

// WithOverwrite enables replacing existing batch outputs.
func WithOverwrite() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Batch.OverwriteExisting = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
