package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"parallax/internal/composite"
	"parallax/internal/frame"
	"parallax/internal/geometry"
	"parallax/internal/transcode"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	QueueDir string `toml:"queue_dir"`
	WorkDir  string `toml:"work_dir"`
}

// Rig contains the physical mounting error between the two cameras,
// measured in pixels at the native capture resolution.
type Rig struct {
	VerticalErrorPixels   int `toml:"vertical_error_pixels"`
	HorizontalErrorPixels int `toml:"horizontal_error_pixels"`
}

// LensEye contains the distortion parameters for one camera.
type LensEye struct {
	Coefficients    []float64 `toml:"coefficients"`
	PrincipalPointX float64   `toml:"principal_point_x"`
	PrincipalPointY float64   `toml:"principal_point_y"`
	FocalLength     float64   `toml:"focal_length"`
}

// Lens contains lens correction configuration for both cameras.
type Lens struct {
	Correction string  `toml:"correction"`
	Left       LensEye `toml:"left"`
	Right      LensEye `toml:"right"`
}

// Output contains the canonical per-eye output geometry.
type Output struct {
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Layout  string `toml:"layout"`
	Upscale bool   `toml:"upscale"`
}

// Sync contains stream pairing configuration.
type Sync struct {
	ToleranceMillis int     `toml:"tolerance_millis"`
	FrameRate       float64 `toml:"frame_rate"`
}

// Format contains the default transcode target and its parameters.
type Format struct {
	Default         string `toml:"default"`
	AnaglyphMapping string `toml:"anaglyph_mapping"`
	InterlaceParity string `toml:"interlace_parity"`
	StereoscopeGap  int    `toml:"stereoscope_gap"`
}

// Engine contains external media tool configuration.
type Engine struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	AudioMode     string `toml:"audio_mode"`
}

// Batch contains folder scanning configuration.
type Batch struct {
	OverwriteExisting bool     `toml:"overwrite_existing"`
	Extensions        []string `toml:"extensions"`
}

// Workflow contains pipeline scheduling configuration.
type Workflow struct {
	WindowFrames       int `toml:"window_frames"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for parallax.
//
// Configuration sections by subsystem:
//   - Paths: log, queue, and scratch directories
//   - Rig: camera mounting error in pixels
//   - Lens: per-eye distortion model parameters
//   - Output: canonical per-eye geometry and layout
//   - Sync: pairing tolerance and expected frame rate
//   - Format: default transcode target
//   - Engine: ffmpeg/ffprobe binaries and audio handling
//   - Batch: folder scanning rules
//   - Workflow: buffering and retry intervals
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Rig      Rig      `toml:"rig"`
	Lens     Lens     `toml:"lens"`
	Output   Output   `toml:"output"`
	Sync     Sync     `toml:"sync"`
	Format   Format   `toml:"format"`
	Engine   Engine   `toml:"engine"`
	Batch    Batch    `toml:"batch"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/parallax/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/parallax/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("parallax.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.QueueDir, c.Paths.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CanonicalSize returns the per-eye output geometry.
func (c *Config) CanonicalSize() frame.Size {
	return frame.Size{Width: c.Output.Width, Height: c.Output.Height}
}

// LayoutValue returns the parsed composite layout. Validate guarantees the
// raw value parses, so the error from ParseLayout is discarded here.
func (c *Config) LayoutValue() composite.Layout {
	layout, _ := composite.ParseLayout(c.Output.Layout)
	return layout
}

// Profile returns the distortion profile for one eye. When lens correction
// is disabled the profile is the identity.
func (c *Config) Profile(eye geometry.Eye) geometry.CameraProfile {
	if c.Lens.Correction != LensCorrectionRectilinear {
		return geometry.CameraProfile{}
	}
	raw := c.Lens.Left
	if eye == geometry.EyeRight {
		raw = c.Lens.Right
	}
	return geometry.CameraProfile{
		Coefficients:   append([]float64(nil), raw.Coefficients...),
		PrincipalPoint: geometry.Point{X: raw.PrincipalPointX, Y: raw.PrincipalPointY},
		FocalLength:    raw.FocalLength,
	}
}

// Offset returns the normalized rig offset.
func (c *Config) Offset() geometry.RigOffset {
	return geometry.RigOffset{
		VerticalPixels:   c.Rig.VerticalErrorPixels,
		HorizontalPixels: c.Rig.HorizontalErrorPixels,
	}.Normalized()
}

// Tolerance returns the pairing tolerance. An explicit tolerance wins;
// otherwise half the frame interval at the given rate is used, so a frame
// never pairs with a neighbor closer to some other source frame.
func (c *Config) Tolerance(fps float64) time.Duration {
	if c.Sync.ToleranceMillis > 0 {
		return time.Duration(c.Sync.ToleranceMillis) * time.Millisecond
	}
	if fps <= 0 {
		fps = c.Sync.FrameRate
	}
	if fps <= 0 {
		return 20 * time.Millisecond
	}
	return time.Duration(float64(time.Second) / fps / 2)
}

// FormatSpec returns the normalized transcode spec for the named kind, or for
// the configured default when kind is empty.
func (c *Config) FormatSpec(kind string) (transcode.FormatSpec, error) {
	if strings.TrimSpace(kind) == "" {
		kind = c.Format.Default
	}
	parsed, err := transcode.ParseKind(kind)
	if err != nil {
		return transcode.FormatSpec{}, err
	}
	spec := transcode.FormatSpec{Kind: parsed, CenterGap: c.Format.StereoscopeGap}
	if c.Format.AnaglyphMapping != "" {
		mapping, err := transcode.ParseMapping(c.Format.AnaglyphMapping)
		if err != nil {
			return transcode.FormatSpec{}, err
		}
		spec.Mapping = mapping
	}
	if c.Format.InterlaceParity != "" {
		parity, err := transcode.ParseParity(c.Format.InterlaceParity)
		if err != nil {
			return transcode.FormatSpec{}, err
		}
		spec.Parity = parity
	}
	return spec.Normalize(), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
