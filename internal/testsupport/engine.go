package testsupport

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"sync"
	"time"

	"parallax/internal/engine"
	"parallax/internal/frame"
)

// Frames builds a synthetic stream of solid-color frames with evenly spaced
// timestamps starting at start. paint selects the color per frame index; a
// nil paint yields an index-derived gradient so frames are distinguishable.
func Frames(n int, size frame.Size, start, interval time.Duration, paint func(i int) color.RGBA) []frame.Frame {
	if paint == nil {
		paint = func(i int) color.RGBA {
			v := uint8(i * 7)
			return color.RGBA{R: v, G: 255 - v, B: 128, A: 255}
		}
	}
	frames := make([]frame.Frame, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, frame.Solid(start+time.Duration(i)*interval, size, paint(i)))
	}
	return frames
}

// MemDecoder replays a fixed frame slice. FailAfter, when >= 0, makes Next
// return Err (or a generic failure) once that many frames were delivered.
type MemDecoder struct {
	MediaInfo engine.MediaInfo
	Frames    []frame.Frame
	FailAfter int
	Err       error

	mu     sync.Mutex
	index  int
	closed bool
}

// NewMemDecoder builds a decoder over frames, deriving MediaInfo from the
// first frame and the given rate.
func NewMemDecoder(path string, fps float64, frames []frame.Frame) *MemDecoder {
	info := engine.MediaInfo{Path: path, FrameRate: fps, FrameCount: int64(len(frames))}
	if len(frames) > 0 {
		info.Size = frames[0].Size()
	}
	return &MemDecoder{MediaInfo: info, Frames: frames, FailAfter: -1}
}

func (d *MemDecoder) Info() engine.MediaInfo {
	return d.MediaInfo
}

func (d *MemDecoder) Next(ctx context.Context) (frame.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, err
	}
	if d.closed {
		return frame.Frame{}, fmt.Errorf("decoder %s closed", d.MediaInfo.Path)
	}
	if d.FailAfter >= 0 && d.index >= d.FailAfter {
		if d.Err != nil {
			return frame.Frame{}, d.Err
		}
		return frame.Frame{}, fmt.Errorf("decoder %s: injected failure", d.MediaInfo.Path)
	}
	if d.index >= len(d.Frames) {
		return frame.Frame{}, io.EOF
	}
	f := d.Frames[d.index]
	d.index++
	return f.Clone(), nil
}

func (d *MemDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// MemSink records submitted frames in memory.
type MemSink struct {
	Spec        engine.SinkSpec
	SubmitErr   error
	FinalizeErr error

	mu        sync.Mutex
	frames    []frame.Frame
	finalized bool
	aborted   bool
}

func (s *MemSink) Submit(ctx context.Context, f frame.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.SubmitErr != nil {
		return s.SubmitErr
	}
	if s.finalized || s.aborted {
		return fmt.Errorf("sink %s already finished", s.Spec.OutputPath)
	}
	s.frames = append(s.frames, f.Clone())
	return nil
}

func (s *MemSink) Finalize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FinalizeErr != nil {
		return s.FinalizeErr
	}
	s.finalized = true
	return nil
}

func (s *MemSink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	return nil
}

// Written returns the frames accepted so far.
func (s *MemSink) Written() []frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frame.Frame(nil), s.frames...)
}

// Finalized reports whether the sink completed successfully.
func (s *MemSink) Finalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// Aborted reports whether the sink was torn down.
func (s *MemSink) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// MemEngine is an in-memory Engine over registered sources. Each OpenDecoder
// call replays the source from the start, so one engine serves repeated runs.
type MemEngine struct {
	mu        sync.Mutex
	sources   map[string]*MemDecoder
	sinks     []*MemSink
	SubmitErr error
	HealthErr error
}

func NewMemEngine() *MemEngine {
	return &MemEngine{sources: make(map[string]*MemDecoder)}
}

// AddSource registers a synthetic clip under path.
func (e *MemEngine) AddSource(path string, fps float64, frames []frame.Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources[path] = NewMemDecoder(path, fps, frames)
}

func (e *MemEngine) Probe(ctx context.Context, path string) (engine.MediaInfo, error) {
	if err := ctx.Err(); err != nil {
		return engine.MediaInfo{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	src, ok := e.sources[path]
	if !ok {
		return engine.MediaInfo{}, fmt.Errorf("no such source %q", path)
	}
	return src.MediaInfo, nil
}

func (e *MemEngine) OpenDecoder(ctx context.Context, path string) (engine.Decoder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	src, ok := e.sources[path]
	if !ok {
		return nil, fmt.Errorf("no such source %q", path)
	}
	replay := &MemDecoder{MediaInfo: src.MediaInfo, Frames: src.Frames, FailAfter: src.FailAfter, Err: src.Err}
	return replay, nil
}

func (e *MemEngine) OpenSink(ctx context.Context, spec engine.SinkSpec) (engine.Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sink := &MemSink{Spec: spec, SubmitErr: e.SubmitErr}
	e.sinks = append(e.sinks, sink)
	return sink, nil
}

func (e *MemEngine) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.HealthErr
}

// FailSource makes future decoders for path fail after n frames.
func (e *MemEngine) FailSource(path string, afterFrames int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if src, ok := e.sources[path]; ok {
		src.FailAfter = afterFrames
		src.Err = err
	}
}

// LastSink returns the most recently opened sink.
func (e *MemEngine) LastSink() *MemSink {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sinks) == 0 {
		return nil
	}
	return e.sinks[len(e.sinks)-1]
}

var _ engine.Engine = (*MemEngine)(nil)
var _ engine.Decoder = (*MemDecoder)(nil)
var _ engine.Sink = (*MemSink)(nil)
