package engine

import (
	"context"
	"time"

	"parallax/internal/frame"
)

// MediaInfo summarizes the properties of a video container the pipeline
// cares about.
type MediaInfo struct {
	Path       string
	Size       frame.Size
	FrameRate  float64
	FrameCount int64
	Duration   time.Duration
	HasAudio   bool
}

// FrameInterval returns the nominal time between frames, or 0 when the
// frame rate is unknown.
func (m MediaInfo) FrameInterval() time.Duration {
	if m.FrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / m.FrameRate)
}

// Decoder produces decoded frames from a single video stream in
// presentation order. Next returns io.EOF after the last frame.
type Decoder interface {
	Info() MediaInfo
	Next(ctx context.Context) (frame.Frame, error)
	Close() error
}

// Sink consumes composited frames and writes the output container.
//
// Output becomes visible at the final path only after Finalize succeeds.
// Abort discards everything written so far. Exactly one of the two must be
// called; both are safe to call more than once.
type Sink interface {
	Submit(ctx context.Context, f frame.Frame) error
	Finalize(ctx context.Context) error
	Abort() error
}

// SinkSpec describes the output a Sink should produce.
type SinkSpec struct {
	// OutputPath is the final container path. The sink stages data in a
	// partial file next to it until Finalize.
	OutputPath string
	// Size is the canvas geometry of every submitted frame.
	Size frame.Size
	// FrameRate is the output timebase in frames per second.
	FrameRate float64
	// AudioSources are containers whose audio accompanies the video,
	// interpreted per AudioMode. Order matters for merging: left first.
	AudioSources []string
	// AudioMode is one of "copy", "merge", or "none".
	AudioMode string
}

// Engine is the narrow surface the pipeline uses to talk to external media
// tooling.
type Engine interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
	OpenDecoder(ctx context.Context, path string) (Decoder, error)
	OpenSink(ctx context.Context, spec SinkSpec) (Sink, error)
	HealthCheck(ctx context.Context) error
}
