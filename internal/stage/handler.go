package stage

import (
	"context"

	"parallax/internal/queue"
)

// Handler describes the contract the batch manager needs from each job kind.
type Handler interface {
	// Prepare validates the item before any expensive work starts.
	Prepare(context.Context, *queue.Item) error
	// Execute runs the job and records its outcome on the item.
	Execute(context.Context, *queue.Item) error
	// HealthCheck reports whether the handler's dependencies are usable.
	HealthCheck(context.Context) Health
}
