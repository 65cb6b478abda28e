package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"parallax/internal/config"
	"parallax/internal/engine"
	"parallax/internal/logging"
	"parallax/internal/pipeline"
	"parallax/internal/queue"
	"parallax/internal/services"
	"parallax/internal/stage"
)

// errQueueUpdate marks a failure to persist item state. The drain loop
// aborts on it to avoid reprocessing the same item forever.
var errQueueUpdate = errors.New("queue update failed")

// Manager coordinates batch processing of queued items.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	handlers map[queue.Kind]stage.Handler
}

// Summary reports what one drain pass did.
type Summary struct {
	Processed int
	Completed int
	Failed    int
}

// NewManager constructs a batch manager with the standard merge and convert
// handlers.
func NewManager(cfg *config.Config, store *queue.Store, eng engine.Engine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	pipe := pipeline.New(cfg, eng, logger)
	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow"),
		handlers: map[queue.Kind]stage.Handler{
			queue.KindMerge:   newMergeHandler(eng, pipe),
			queue.KindConvert: newConvertHandler(cfg, eng, pipe),
		},
	}
}

// HealthChecks runs every handler's health check.
func (m *Manager) HealthChecks(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(m.handlers))
	for _, kind := range []queue.Kind{queue.KindMerge, queue.KindConvert} {
		checks = append(checks, m.handlers[kind].HealthCheck(ctx))
	}
	return checks
}

// Run drains the queue: pending items are claimed and executed one at a
// time until none remain or the context is cancelled. Items in flight when
// a previous runner died are reclaimed first.
func (m *Manager) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	reclaimed, err := m.store.ResetProcessing(ctx)
	if err != nil {
		return summary, err
	}
	if reclaimed > 0 {
		m.logger.Warn("reclaimed interrupted items", logging.Int64("count", reclaimed))
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		item, err := m.store.NextPending(ctx)
		if err != nil {
			return summary, err
		}
		if item == nil {
			m.logger.Info("queue drained",
				logging.Int("processed", summary.Processed),
				logging.Int("failed", summary.Failed))
			return summary, nil
		}

		summary.Processed++
		if err := m.runItem(ctx, item); err != nil {
			if errors.Is(err, errQueueUpdate) {
				// The store itself is broken; retrying the loop would spin.
				return summary, err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, services.ErrCancelled) {
				// Leave the item pending so the next run picks it up.
				item.Status = queue.StatusPending
				item.Stage = ""
				_ = m.store.Update(context.WithoutCancel(ctx), item)
				summary.Processed--
				return summary, err
			}
			summary.Failed++
			continue
		}
		summary.Completed++
	}
}

func (m *Manager) runItem(ctx context.Context, item *queue.Item) error {
	handler, ok := m.handlers[item.Kind]
	if !ok {
		return m.failItem(ctx, item,
			services.Wrap(services.ErrValidation, "workflow", "dispatch", "unknown item kind "+string(item.Kind), nil))
	}

	item.RunID = uuid.NewString()
	runCtx := services.WithRequestID(services.WithJobID(ctx, item.ID), item.RunID)
	logger := logging.WithContext(runCtx, m.logger)

	item.Status = queue.StatusProcessing
	item.ErrorMessage = ""
	if err := m.store.Update(runCtx, item); err != nil {
		return fmt.Errorf("%w: %v", errQueueUpdate, err)
	}
	logger.Info("processing item",
		logging.String("kind", string(item.Kind)),
		logging.String("output", item.OutputPath))

	if err := handler.Prepare(runCtx, item); err != nil {
		return m.failItem(runCtx, item, err)
	}
	if err := handler.Execute(runCtx, item); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, services.ErrCancelled) {
			return err
		}
		return m.failItem(runCtx, item, err)
	}

	item.Status = queue.StatusCompleted
	if err := m.store.Update(runCtx, item); err != nil {
		return fmt.Errorf("%w: %v", errQueueUpdate, err)
	}
	logger.Info("item completed", logging.String("output", item.OutputPath))
	return nil
}

// failItem persists the failure and returns the original error so the drain
// loop can count it.
func (m *Manager) failItem(ctx context.Context, item *queue.Item, cause error) error {
	item.Status = queue.StatusFailed
	item.ErrorMessage = cause.Error()
	if err := m.store.Update(context.WithoutCancel(ctx), item); err != nil {
		m.logger.Error("persist failure", logging.Error(err))
	}
	m.logger.Error("item failed",
		logging.Int64("item_id", item.ID),
		logging.String("kind", string(item.Kind)),
		logging.Error(cause))
	return cause
}
