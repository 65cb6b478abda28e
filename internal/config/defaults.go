package config

// Lens correction modes.
const (
	LensCorrectionUnadjusted  = "unadjusted"
	LensCorrectionRectilinear = "rectilinear"
)

// Audio handling modes for merged output.
const (
	AudioModeCopy  = "copy"
	AudioModeMerge = "merge"
	AudioModeNone  = "none"
)

const (
	defaultLogDir             = "~/.local/share/parallax/logs"
	defaultQueueDir           = "~/.local/share/parallax/queue"
	defaultWorkDir            = "~/.local/share/parallax/work"
	defaultOutputWidth        = 1920
	defaultOutputHeight       = 1080
	defaultOutputLayout       = "horizontal"
	defaultSyncFrameRate      = 29.97
	defaultFormat             = "stereoscope"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultAudioMode          = AudioModeCopy
	defaultWindowFrames       = 8
	defaultErrorRetryInterval = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			QueueDir: defaultQueueDir,
			WorkDir:  defaultWorkDir,
		},
		Lens: Lens{
			Correction: LensCorrectionUnadjusted,
		},
		Output: Output{
			Width:   defaultOutputWidth,
			Height:  defaultOutputHeight,
			Layout:  defaultOutputLayout,
			Upscale: true,
		},
		Sync: Sync{
			FrameRate: defaultSyncFrameRate,
		},
		Format: Format{
			Default: defaultFormat,
		},
		Engine: Engine{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			AudioMode:     defaultAudioMode,
		},
		Batch: Batch{
			Extensions: []string{"mp4", "mov", "avi", "mkv"},
		},
		Workflow: Workflow{
			WindowFrames:       defaultWindowFrames,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
