package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLens()
	c.normalizeOutput()
	c.normalizeFormat()
	c.normalizeEngine()
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.QueueDir) == "" {
		c.Paths.QueueDir = defaultQueueDir
	}
	if c.Paths.QueueDir, err = expandPath(c.Paths.QueueDir); err != nil {
		return fmt.Errorf("paths.queue_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLens() {
	c.Lens.Correction = strings.ToLower(strings.TrimSpace(c.Lens.Correction))
	if c.Lens.Correction == "" {
		c.Lens.Correction = LensCorrectionUnadjusted
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Layout = strings.ToLower(strings.TrimSpace(c.Output.Layout))
	if c.Output.Layout == "" {
		c.Output.Layout = defaultOutputLayout
	}
}

func (c *Config) normalizeFormat() {
	c.Format.Default = strings.ToLower(strings.TrimSpace(c.Format.Default))
	if c.Format.Default == "" {
		c.Format.Default = defaultFormat
	}
	c.Format.AnaglyphMapping = strings.ToLower(strings.TrimSpace(c.Format.AnaglyphMapping))
	c.Format.InterlaceParity = strings.ToLower(strings.TrimSpace(c.Format.InterlaceParity))
}

func (c *Config) normalizeEngine() {
	c.Engine.FFmpegBinary = strings.TrimSpace(c.Engine.FFmpegBinary)
	if c.Engine.FFmpegBinary == "" {
		c.Engine.FFmpegBinary = defaultFFmpegBinary
	}
	c.Engine.FFprobeBinary = strings.TrimSpace(c.Engine.FFprobeBinary)
	if c.Engine.FFprobeBinary == "" {
		c.Engine.FFprobeBinary = defaultFFprobeBinary
	}
	c.Engine.AudioMode = strings.ToLower(strings.TrimSpace(c.Engine.AudioMode))
	if c.Engine.AudioMode == "" {
		c.Engine.AudioMode = defaultAudioMode
	}
}

func (c *Config) normalizeBatch() {
	normalized := make([]string, 0, len(c.Batch.Extensions))
	for _, ext := range c.Batch.Extensions {
		ext = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
		if ext != "" {
			normalized = append(normalized, ext)
		}
	}
	if len(normalized) == 0 {
		normalized = Default().Batch.Extensions
	}
	c.Batch.Extensions = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
