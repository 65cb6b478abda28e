package config

import (
	"errors"
	"fmt"

	"parallax/internal/composite"
	"parallax/internal/geometry"
	"parallax/internal/services"
)

// Validate ensures the configuration is usable. Failures carry the
// configuration error marker so the CLI exits with the config code.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateLens,
		c.validateOutput,
		c.validateSync,
		c.validateFormat,
		c.validateEngine,
		c.validateWorkflow,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
		}
	}
	return nil
}

func (c *Config) validateLens() error {
	switch c.Lens.Correction {
	case LensCorrectionUnadjusted, LensCorrectionRectilinear:
	default:
		return fmt.Errorf("lens.correction must be %q or %q, got %q",
			LensCorrectionUnadjusted, LensCorrectionRectilinear, c.Lens.Correction)
	}
	if c.Lens.Correction == LensCorrectionUnadjusted {
		return nil
	}
	for _, eye := range []geometry.Eye{geometry.EyeLeft, geometry.EyeRight} {
		if err := c.Profile(eye).Validate(); err != nil {
			return fmt.Errorf("lens.%s: %w", eye, err)
		}
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("output.width and output.height must be positive, got %dx%d",
			c.Output.Width, c.Output.Height)
	}
	if _, err := composite.ParseLayout(c.Output.Layout); err != nil {
		return fmt.Errorf("output.layout: %w", err)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.ToleranceMillis < 0 {
		return errors.New("sync.tolerance_millis must not be negative")
	}
	if c.Sync.ToleranceMillis == 0 && c.Sync.FrameRate <= 0 {
		return errors.New("sync.frame_rate must be positive when sync.tolerance_millis is unset")
	}
	return nil
}

func (c *Config) validateFormat() error {
	if c.Format.StereoscopeGap < 0 {
		return errors.New("format.stereoscope_gap must not be negative")
	}
	if c.Format.StereoscopeGap >= c.Output.Width {
		return fmt.Errorf("format.stereoscope_gap %d must be narrower than output.width %d",
			c.Format.StereoscopeGap, c.Output.Width)
	}
	if _, err := c.FormatSpec(""); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine.AudioMode {
	case AudioModeCopy, AudioModeMerge, AudioModeNone:
	default:
		return fmt.Errorf("engine.audio_mode must be %q, %q, or %q, got %q",
			AudioModeCopy, AudioModeMerge, AudioModeNone, c.Engine.AudioMode)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.WindowFrames <= 0 {
		return errors.New("workflow.window_frames must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}
