package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"time"

	"parallax/internal/composite"
	"parallax/internal/config"
	"parallax/internal/correct"
	"parallax/internal/engine"
	"parallax/internal/frame"
	"parallax/internal/geometry"
	"parallax/internal/logging"
	"parallax/internal/services"
	"parallax/internal/transcode"
)

// MergeRequest describes one merge run: two raw captures into one
// side-by-side master.
type MergeRequest struct {
	LeftPath   string
	RightPath  string
	OutputPath string
}

// ConvertRequest describes one conversion run: a side-by-side master into a
// derived single-stream format.
type ConvertRequest struct {
	SourcePath string
	OutputPath string
	Spec       transcode.FormatSpec
}

// Pipeline runs production jobs against a configured engine.
type Pipeline struct {
	cfg    *config.Config
	eng    engine.Engine
	logger *slog.Logger
}

// New constructs a Pipeline. A nil logger disables logging.
func New(cfg *config.Config, eng engine.Engine, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{cfg: cfg, eng: eng, logger: logging.NewComponentLogger(logger, "pipeline")}
}

// stageError carries the stage a worker failed in, so the outcome can name
// where the run died even though stages execute concurrently.
type stageError struct {
	stage State
	err   error
}

// RunMerge executes the merge path: decode both eyes, correct each, pair
// and composite, encode the master. The returned error is nil exactly when
// the outcome state is StateDone.
func (p *Pipeline) RunMerge(ctx context.Context, req MergeRequest) (Outcome, error) {
	started := time.Now()
	outcome := Outcome{State: StateIdle, OutputPath: req.OutputPath}
	logger := logging.WithContext(ctx, p.logger)

	p.observe(logger, StateLoading)
	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()

	leftDec, err := p.eng.OpenDecoder(streamCtx, req.LeftPath)
	if err != nil {
		return p.finish(&outcome, started, StateLoading, err)
	}
	defer leftDec.Close()
	rightDec, err := p.eng.OpenDecoder(streamCtx, req.RightPath)
	if err != nil {
		return p.finish(&outcome, started, StateLoading, err)
	}
	defer rightDec.Close()

	canonical := p.cfg.CanonicalSize()
	layout := p.cfg.LayoutValue()
	fps := leftDec.Info().FrameRate
	tolerance := p.cfg.Tolerance(fps)

	correctors := map[geometry.Eye]*correct.Corrector{}
	for _, eye := range []geometry.Eye{geometry.EyeLeft, geometry.EyeRight} {
		c, err := correct.New(correct.Options{
			Profile:   p.cfg.Profile(eye),
			Offset:    p.cfg.Offset(),
			Eye:       eye,
			Canonical: canonical,
			Upscale:   p.cfg.Output.Upscale,
			Border:    color.RGBA{A: 255},
		})
		if err != nil {
			return p.finish(&outcome, started, StateLoading, services.Wrap(services.ErrConfiguration, "pipeline", "corrector", string(eye), err))
		}
		correctors[eye] = c
	}

	comp, err := composite.New(canonical, layout, tolerance, p.logger)
	if err != nil {
		return p.finish(&outcome, started, StateLoading, services.Wrap(services.ErrConfiguration, "pipeline", "compositor", "", err))
	}

	sink, err := p.eng.OpenSink(ctx, engine.SinkSpec{
		OutputPath:   req.OutputPath,
		Size:         layout.CanvasSize(canonical),
		FrameRate:    fps,
		AudioSources: p.mergeAudioSources(leftDec.Info(), rightDec.Info()),
		AudioMode:    p.cfg.Engine.AudioMode,
	})
	if err != nil {
		return p.finish(&outcome, started, StateLoading, err)
	}

	logger.Info("sources loaded",
		logging.String("left", req.LeftPath),
		logging.String("right", req.RightPath),
		logging.String("canvas", layout.CanvasSize(canonical).String()),
		logging.Float64("fps", fps),
		logging.Duration("tolerance", tolerance))

	window := p.cfg.Workflow.WindowFrames
	leftCh := make(chan frame.Frame, window)
	rightCh := make(chan frame.Frame, window)
	joined := make(chan frame.Frame, window)
	failures := make(chan stageError, 4)

	var wg sync.WaitGroup
	wg.Add(3)
	p.observe(logger, StateCorrecting)
	go p.correctEye(streamCtx, &wg, leftDec, correctors[geometry.EyeLeft], leftCh, failures, stopStream)
	go p.correctEye(streamCtx, &wg, rightDec, correctors[geometry.EyeRight], rightCh, failures, stopStream)

	var stats composite.Stats
	go func() {
		defer wg.Done()
		var joinErr error
		stats, joinErr = comp.Join(streamCtx, leftCh, rightCh, joined)
		if joinErr != nil && streamCtx.Err() == nil {
			select {
			case failures <- stageError{stage: StateCompositing, err: joinErr}:
			default:
			}
			stopStream()
		}
	}()

	p.observe(logger, StateCompositing)
	var encoded int64
	var encodeFailure *stageError
	for f := range joined {
		if err := sink.Submit(ctx, f); err != nil {
			encodeFailure = &stageError{stage: StateTranscoding, err: err}
			stopStream()
			break
		}
		encoded++
	}
	stopStream()
	wg.Wait()
	close(failures)

	outcome.Diagnostics = Diagnostics{
		FramesPaired:    stats.Paired,
		DesyncDropped:   stats.DesyncDropped,
		UnmatchedRight:  stats.UnmatchedRight,
		TrailingDropped: stats.TrailingDropped,
		BorderFilled:    correctors[geometry.EyeLeft].BorderFilled() + correctors[geometry.EyeRight].BorderFilled(),
		FramesEncoded:   encoded,
	}

	if failure := firstFailure(ctx, encodeFailure, failures); failure != nil {
		_ = sink.Abort()
		return p.finish(&outcome, started, failure.stage, failure.err)
	}

	p.observe(logger, StateTranscoding)
	if err := sink.Finalize(ctx); err != nil {
		return p.finish(&outcome, started, StateTranscoding, err)
	}
	return p.finish(&outcome, started, StateDone, nil)
}

// RunConvert executes the conversion path: one side-by-side master decoded,
// recombined per the format spec, encoded at canonical size.
func (p *Pipeline) RunConvert(ctx context.Context, req ConvertRequest) (Outcome, error) {
	started := time.Now()
	outcome := Outcome{State: StateIdle, OutputPath: req.OutputPath}
	logger := logging.WithContext(ctx, p.logger)

	p.observe(logger, StateLoading)
	dec, err := p.eng.OpenDecoder(ctx, req.SourcePath)
	if err != nil {
		return p.finish(&outcome, started, StateLoading, err)
	}
	defer dec.Close()

	canonical := p.cfg.CanonicalSize()
	layout := p.cfg.LayoutValue()
	canvas := layout.CanvasSize(canonical)
	if dec.Info().Size != canvas {
		err := services.Wrap(services.ErrValidation, "pipeline", "convert",
			fmt.Sprintf("source %s is %s, expected %s master", req.SourcePath, dec.Info().Size, canvas), nil)
		return p.finish(&outcome, started, StateLoading, err)
	}

	trans, err := transcode.New(req.Spec, canonical, layout)
	if err != nil {
		return p.finish(&outcome, started, StateLoading, services.Wrap(services.ErrConfiguration, "pipeline", "format", "", err))
	}

	sink, err := p.eng.OpenSink(ctx, engine.SinkSpec{
		OutputPath:   req.OutputPath,
		Size:         trans.OutputSize(),
		FrameRate:    dec.Info().FrameRate,
		AudioSources: p.convertAudioSources(dec.Info()),
		AudioMode:    p.cfg.Engine.AudioMode,
	})
	if err != nil {
		return p.finish(&outcome, started, StateLoading, err)
	}

	logger.Info("master loaded",
		logging.String("source", req.SourcePath),
		logging.String("format", string(trans.Spec().Kind)),
		logging.Float64("fps", dec.Info().FrameRate))

	p.observe(logger, StateTranscoding)
	var encoded int64
	for {
		f, err := dec.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = sink.Abort()
			return p.finish(&outcome, started, StateTranscoding, err)
		}
		derived, err := trans.Transcode(f)
		if err != nil {
			_ = sink.Abort()
			return p.finish(&outcome, started, StateTranscoding, services.Wrap(services.ErrValidation, "pipeline", "transcode", "", err))
		}
		if err := sink.Submit(ctx, derived); err != nil {
			_ = sink.Abort()
			return p.finish(&outcome, started, StateTranscoding, err)
		}
		encoded++
	}

	outcome.Diagnostics.FramesEncoded = encoded
	if err := sink.Finalize(ctx); err != nil {
		return p.finish(&outcome, started, StateTranscoding, err)
	}
	return p.finish(&outcome, started, StateDone, nil)
}

// correctEye pumps one decoder through its corrector into out. The channel
// send blocks when the window is full, which is what bounds decode-ahead.
func (p *Pipeline) correctEye(ctx context.Context, wg *sync.WaitGroup, dec engine.Decoder, c *correct.Corrector, out chan<- frame.Frame, failures chan<- stageError, stop context.CancelFunc) {
	defer wg.Done()
	defer close(out)
	for {
		f, err := dec.Next(ctx)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				select {
				case failures <- stageError{stage: StateCorrecting, err: err}:
				default:
				}
				stop()
			}
			return
		}
		corrected, err := c.Correct(f)
		if err != nil {
			if ctx.Err() == nil {
				select {
				case failures <- stageError{stage: StateCorrecting, err: err}:
				default:
				}
				stop()
			}
			return
		}
		select {
		case out <- corrected:
		case <-ctx.Done():
			return
		}
	}
}

// firstFailure picks the error that terminates the run. Outer-context
// cancellation wins so a user interrupt is never misreported as a worker
// failure it happened to race with.
func firstFailure(ctx context.Context, encodeFailure *stageError, failures <-chan stageError) *stageError {
	if err := ctx.Err(); err != nil {
		return &stageError{stage: StateCompositing, err: err}
	}
	if encodeFailure != nil {
		return encodeFailure
	}
	for failure := range failures {
		f := failure
		return &f
	}
	return nil
}

func (p *Pipeline) mergeAudioSources(left, right engine.MediaInfo) []string {
	if p.cfg.Engine.AudioMode == config.AudioModeNone {
		return nil
	}
	sources := make([]string, 0, 2)
	if left.HasAudio {
		sources = append(sources, left.Path)
	}
	if right.HasAudio {
		sources = append(sources, right.Path)
	}
	return sources
}

func (p *Pipeline) convertAudioSources(src engine.MediaInfo) []string {
	if p.cfg.Engine.AudioMode == config.AudioModeNone || !src.HasAudio {
		return nil
	}
	return []string{src.Path}
}

func (p *Pipeline) observe(logger *slog.Logger, state State) {
	logger.Info("state", logging.String("to", string(state)))
}

// finish stamps the terminal state on the outcome. Cancellation is detected
// by error identity so a run killed mid-stage lands in StateCancelled, not
// StateFailed.
func (p *Pipeline) finish(outcome *Outcome, started time.Time, stage State, err error) (Outcome, error) {
	outcome.Diagnostics.ElapsedMillis = time.Since(started).Milliseconds()
	if err == nil {
		outcome.State = StateDone
		p.logger.Info("run complete",
			logging.String("output", outcome.OutputPath),
			logging.Int64("frames", outcome.Diagnostics.FramesEncoded),
			logging.Int("desync_dropped", outcome.Diagnostics.DesyncDropped))
		return *outcome, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrCancelled) {
		outcome.State = StateCancelled
		outcome.FailedStage = stage
		p.logger.Info("run cancelled", logging.String("stage", string(stage)))
		return *outcome, err
	}
	outcome.State = StateFailed
	outcome.FailedStage = stage
	p.logger.Error("run failed", logging.String("stage", string(stage)), logging.Error(err))
	return *outcome, err
}
