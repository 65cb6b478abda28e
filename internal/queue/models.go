package queue

import (
	"fmt"
	"time"
)

// Kind identifies what a queue item asks the pipeline to do.
type Kind string

const (
	KindMerge   Kind = "merge"
	KindConvert Kind = "convert"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// ParseStatus validates a status string from flags or storage.
func ParseStatus(value string) (Status, error) {
	for _, status := range allStatuses {
		if Status(value) == status {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// Item is one batch job.
type Item struct {
	ID         int64
	Kind       Kind
	LeftPath   string
	RightPath  string
	SourcePath string
	OutputPath string
	// Format is the transcode target for convert items. Empty for merges.
	Format string
	Status Status
	// Stage is the pipeline stage the item is in or failed at.
	Stage           string
	ErrorMessage    string
	DiagnosticsJSON string
	RunID           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Inputs returns the item's source paths for display.
func (i *Item) Inputs() []string {
	if i.Kind == KindMerge {
		return []string{i.LeftPath, i.RightPath}
	}
	return []string{i.SourcePath}
}
