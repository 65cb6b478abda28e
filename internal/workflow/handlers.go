package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"parallax/internal/config"
	"parallax/internal/engine"
	"parallax/internal/pipeline"
	"parallax/internal/queue"
	"parallax/internal/services"
	"parallax/internal/stage"
)

// MergeTag is the filename tag of merged masters: plain side-by-side when
// lens correction is off, rectified side-by-side when it is on.
func MergeTag(cfg *config.Config) string {
	if cfg.Lens.Correction == config.LensCorrectionRectilinear {
		return "SbSr"
	}
	return "SbS"
}

type mergeHandler struct {
	eng  engine.Engine
	pipe *pipeline.Pipeline
}

func newMergeHandler(eng engine.Engine, pipe *pipeline.Pipeline) *mergeHandler {
	return &mergeHandler{eng: eng, pipe: pipe}
}

func (h *mergeHandler) Prepare(ctx context.Context, item *queue.Item) error {
	for _, path := range []string{item.LeftPath, item.RightPath} {
		if _, err := os.Stat(path); err != nil {
			return services.Wrap(services.ErrNotFound, "merge", "prepare", path, err)
		}
	}
	if item.OutputPath == "" {
		return services.Wrap(services.ErrValidation, "merge", "prepare", "output path missing", nil)
	}
	return nil
}

func (h *mergeHandler) Execute(ctx context.Context, item *queue.Item) error {
	outcome, err := h.pipe.RunMerge(ctx, pipeline.MergeRequest{
		LeftPath:   item.LeftPath,
		RightPath:  item.RightPath,
		OutputPath: item.OutputPath,
	})
	recordOutcome(item, outcome)
	return err
}

func (h *mergeHandler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.eng.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("merge", err.Error())
	}
	return stage.Healthy("merge")
}

type convertHandler struct {
	cfg  *config.Config
	eng  engine.Engine
	pipe *pipeline.Pipeline
}

func newConvertHandler(cfg *config.Config, eng engine.Engine, pipe *pipeline.Pipeline) *convertHandler {
	return &convertHandler{cfg: cfg, eng: eng, pipe: pipe}
}

func (h *convertHandler) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := os.Stat(item.SourcePath); err != nil {
		return services.Wrap(services.ErrNotFound, "convert", "prepare", item.SourcePath, err)
	}
	if _, err := h.cfg.FormatSpec(item.Format); err != nil {
		return services.Wrap(services.ErrConfiguration, "convert", "prepare", fmt.Sprintf("format %q", item.Format), err)
	}
	return nil
}

func (h *convertHandler) Execute(ctx context.Context, item *queue.Item) error {
	spec, err := h.cfg.FormatSpec(item.Format)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "convert", "execute", fmt.Sprintf("format %q", item.Format), err)
	}
	outcome, err := h.pipe.RunConvert(ctx, pipeline.ConvertRequest{
		SourcePath: item.SourcePath,
		OutputPath: item.OutputPath,
		Spec:       spec,
	})
	recordOutcome(item, outcome)
	return err
}

func (h *convertHandler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.eng.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("convert", err.Error())
	}
	return stage.Healthy("convert")
}

// recordOutcome stores the pipeline's terminal report on the item.
func recordOutcome(item *queue.Item, outcome pipeline.Outcome) {
	item.Stage = string(outcome.FailedStage)
	if outcome.State == pipeline.StateDone {
		item.Stage = string(pipeline.StateDone)
	}
	if raw, err := json.Marshal(outcome.Diagnostics); err == nil {
		item.DiagnosticsJSON = string(raw)
	}
}
