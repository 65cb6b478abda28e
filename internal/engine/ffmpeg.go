package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"parallax/internal/frame"
	"parallax/internal/media/ffprobe"
	"parallax/internal/services"
)

var commandContext = exec.CommandContext

const bytesPerPixel = 4 // rgba

// Option configures the ffmpeg engine.
type Option func(*FFmpeg)

// WithFFmpegBinary overrides the default ffmpeg binary name.
func WithFFmpegBinary(binary string) Option {
	return func(e *FFmpeg) {
		if strings.TrimSpace(binary) != "" {
			e.ffmpeg = binary
		}
	}
}

// WithFFprobeBinary overrides the default ffprobe binary name.
func WithFFprobeBinary(binary string) Option {
	return func(e *FFmpeg) {
		if strings.TrimSpace(binary) != "" {
			e.ffprobe = binary
		}
	}
}

// FFmpeg implements Engine on top of the ffmpeg and ffprobe command-line
// tools. Frames cross the process boundary as raw RGBA over pipes, so no
// intermediate files are written during decode.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
}

// NewFFmpeg constructs an ffmpeg-backed engine using defaults.
func NewFFmpeg(opts ...Option) *FFmpeg {
	eng := &FFmpeg{ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// HealthCheck verifies both binaries resolve on PATH.
func (e *FFmpeg) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, binary := range []string{e.ffmpeg, e.ffprobe} {
		if _, err := exec.LookPath(binary); err != nil {
			return services.Wrap(services.ErrExternalTool, "engine", "health", fmt.Sprintf("binary %q not found", binary), err)
		}
	}
	return nil
}

// Probe inspects a container and returns its video properties.
func (e *FFmpeg) Probe(ctx context.Context, path string) (MediaInfo, error) {
	result, err := ffprobe.Inspect(ctx, e.ffprobe, path)
	if err != nil {
		return MediaInfo{}, services.Wrap(services.ErrExternalTool, "engine", "probe", path, err)
	}
	width, height := result.Dimensions()
	if width <= 0 || height <= 0 {
		return MediaInfo{}, services.Wrap(services.ErrValidation, "engine", "probe", fmt.Sprintf("no video stream in %s", path), nil)
	}
	return MediaInfo{
		Path:       path,
		Size:       frame.Size{Width: width, Height: height},
		FrameRate:  result.FrameRate(),
		FrameCount: result.FrameCount(),
		Duration:   time.Duration(result.DurationSeconds() * float64(time.Second)),
		HasAudio:   result.AudioStreamCount() > 0,
	}, nil
}

// OpenDecoder probes the container and starts a decode process streaming
// raw RGBA frames to a pipe.
func (e *FFmpeg) OpenDecoder(ctx context.Context, path string) (Decoder, error) {
	info, err := e.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if info.FrameRate <= 0 {
		return nil, services.Wrap(services.ErrValidation, "engine", "decode", fmt.Sprintf("unknown frame rate for %s", path), nil)
	}

	args := decodeArgs(path)
	cmd := commandContext(ctx, e.ffmpeg, args...)
	stderr := newTailWriter(4096)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "decode", "stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "decode", "start ffmpeg", err)
	}

	return &ffmpegDecoder{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		info:   info,
	}, nil
}

// decodeArgs builds the argument list for a raw RGBA decode of path.
func decodeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-i", path,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	}
}

type ffmpegDecoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailWriter
	info   MediaInfo

	mu     sync.Mutex
	index  int64
	closed bool
	waited bool
}

func (d *ffmpegDecoder) Info() MediaInfo {
	return d.info
}

// Next reads one frame from the decode pipe. One RGBA image is allocated
// per frame; the decoder itself holds no frame backlog, so memory stays
// bounded by whoever consumes the frames.
func (d *ffmpegDecoder) Next(ctx context.Context) (frame.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return frame.Frame{}, services.Wrap(services.ErrExternalTool, "engine", "decode", "decoder closed", nil)
	}

	img := image.NewRGBA(image.Rect(0, 0, d.info.Size.Width, d.info.Size.Height))
	if _, err := io.ReadFull(d.stdout, img.Pix); err != nil {
		if ctx.Err() != nil {
			d.closeLocked()
			return frame.Frame{}, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			if waitErr := d.waitLocked(); waitErr != nil {
				return frame.Frame{}, waitErr
			}
			return frame.Frame{}, io.EOF
		}
		d.closeLocked()
		return frame.Frame{}, services.Wrap(services.ErrExternalTool, "engine", "decode", d.stderr.String(), err)
	}

	ts := frameTimestamp(d.index, d.info.FrameRate)
	d.index++
	return frame.Frame{Timestamp: ts, Image: img}, nil
}

func (d *ffmpegDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	return nil
}

func (d *ffmpegDecoder) closeLocked() {
	if d.closed {
		return
	}
	d.closed = true
	_ = d.stdout.Close()
	if !d.waited {
		if d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()
		}
		_ = d.cmd.Wait()
		d.waited = true
	}
}

// waitLocked reaps the process after a clean EOF. A non-zero exit here
// means the decode died mid-stream rather than finishing.
func (d *ffmpegDecoder) waitLocked() error {
	d.closed = true
	_ = d.stdout.Close()
	if d.waited {
		return nil
	}
	d.waited = true
	if err := d.cmd.Wait(); err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "decode", d.stderr.String(), err)
	}
	return nil
}

func frameTimestamp(index int64, fps float64) time.Duration {
	return time.Duration(float64(index) * float64(time.Second) / fps)
}

// OpenSink starts an encode process reading raw RGBA frames from stdin and
// writing a staged partial file next to the requested output path.
func (e *FFmpeg) OpenSink(ctx context.Context, spec SinkSpec) (Sink, error) {
	if !spec.Size.Valid() {
		return nil, services.Wrap(services.ErrValidation, "engine", "encode", fmt.Sprintf("invalid sink geometry %s", spec.Size), nil)
	}
	if spec.FrameRate <= 0 {
		return nil, services.Wrap(services.ErrValidation, "engine", "encode", "sink frame rate must be positive", nil)
	}
	format, err := containerFormat(spec.OutputPath)
	if err != nil {
		return nil, err
	}

	partial := partialPath(spec.OutputPath)
	if err := os.MkdirAll(filepath.Dir(partial), 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "encode", "create output directory", err)
	}

	args := sinkArgs(spec, format, partial)
	cmd := commandContext(ctx, e.ffmpeg, args...)
	stderr := newTailWriter(4096)
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "encode", "stdin pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "encode", "start ffmpeg", err)
	}

	return &ffmpegSink{
		cmd:     cmd,
		stdin:   stdin,
		stderr:  stderr,
		size:    spec.Size,
		partial: partial,
		final:   spec.OutputPath,
	}, nil
}

// sinkArgs builds the encode argument list. Video arrives on stdin as raw
// RGBA; audio, when requested, is pulled from the original source
// containers so it never round-trips through the frame pipeline.
func sinkArgs(spec SinkSpec, format, partial string) []string {
	args := []string{
		"-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", spec.Size.String(),
		"-r", fmt.Sprintf("%g", spec.FrameRate),
		"-i", "-",
	}

	sources := audioSources(spec)
	for _, source := range sources {
		args = append(args, "-i", source)
	}

	args = append(args, "-map", "0:v")
	switch {
	case len(sources) == 0:
	case spec.AudioMode == "merge" && len(sources) > 1:
		labels := make([]string, 0, len(sources))
		for i := range sources {
			labels = append(labels, fmt.Sprintf("[%d:a]", i+1))
		}
		filter := fmt.Sprintf("%samerge=inputs=%d[a]", strings.Join(labels, ""), len(sources))
		args = append(args, "-filter_complex", filter, "-map", "[a]", "-c:a", "aac")
	default:
		args = append(args, "-map", "1:a:0", "-c:a", "copy")
	}

	args = append(args,
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-f", format,
		"-y", partial,
	)
	return args
}

func audioSources(spec SinkSpec) []string {
	if spec.AudioMode == "none" {
		return nil
	}
	sources := make([]string, 0, len(spec.AudioSources))
	for _, source := range spec.AudioSources {
		if strings.TrimSpace(source) != "" {
			sources = append(sources, source)
		}
	}
	if spec.AudioMode != "merge" && len(sources) > 1 {
		sources = sources[:1]
	}
	return sources
}

// containerFormat maps an output extension to the ffmpeg muxer name. The
// staged partial file hides the extension from ffmpeg, so the muxer must be
// chosen explicitly.
func containerFormat(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "mp4", "m4v":
		return "mp4", nil
	case "mkv":
		return "matroska", nil
	case "mov":
		return "mov", nil
	case "avi":
		return "avi", nil
	default:
		return "", services.Wrap(services.ErrValidation, "engine", "encode", fmt.Sprintf("unsupported output container %q", ext), nil)
	}
}

func partialPath(output string) string {
	dir := filepath.Dir(output)
	base := filepath.Base(output)
	return filepath.Join(dir, "."+base+".partial")
}

type ffmpegSink struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *tailWriter
	size    frame.Size
	partial string
	final   string

	mu   sync.Mutex
	done bool
}

func (s *ffmpegSink) Submit(ctx context.Context, f frame.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return services.Wrap(services.ErrExternalTool, "engine", "encode", "sink already finished", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.Image == nil || f.Size() != s.size {
		return services.Wrap(services.ErrValidation, "engine", "encode", fmt.Sprintf("frame size %s does not match sink %s", f.Size(), s.size), nil)
	}
	if err := writeRGBA(s.stdin, f.Image); err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "encode", s.stderr.String(), err)
	}
	return nil
}

// writeRGBA streams the image rows to w. Rows are written individually so
// sub-images with a wider stride than their bounds are handled correctly.
func writeRGBA(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	rowBytes := bounds.Dx() * bytesPerPixel
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		offset := img.PixOffset(bounds.Min.X, y)
		if _, err := w.Write(img.Pix[offset : offset+rowBytes]); err != nil {
			return err
		}
	}
	return nil
}

// Finalize closes the frame stream, waits for the muxer, and promotes the
// partial file to the final path. On any failure the partial is removed so
// no incomplete output survives.
func (s *ffmpegSink) Finalize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true

	_ = s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		_ = os.Remove(s.partial)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "engine", "encode", s.stderr.String(), err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(s.partial)
		return err
	}
	if err := os.Rename(s.partial, s.final); err != nil {
		_ = os.Remove(s.partial)
		return services.Wrap(services.ErrExternalTool, "engine", "encode", "promote output", err)
	}
	return nil
}

// Abort kills the encode and removes the partial file. The final path is
// never touched.
func (s *ffmpegSink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true

	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	_ = os.Remove(s.partial)
	return nil
}

// tailWriter keeps the last limit bytes written to it. ffmpeg's stderr can
// be arbitrarily long; only the tail is useful in an error message.
type tailWriter struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailWriter(limit int) *tailWriter {
	return &tailWriter{limit: limit}
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailWriter) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

var _ Engine = (*FFmpeg)(nil)
