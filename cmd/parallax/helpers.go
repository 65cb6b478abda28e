package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"parallax/internal/pipeline"
	"parallax/internal/queue"
	"parallax/internal/services"
)

func parseItemID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrValidation, "queue", "id", fmt.Sprintf("invalid item id %q", arg), nil)
	}
	return id, nil
}

func printQueueItem(out io.Writer, item *queue.Item) {
	fmt.Fprintf(out, "Item %d (%s)\n", item.ID, item.Kind)
	fmt.Fprintf(out, "  status:  %s\n", formatStatusLabel(string(item.Status)))
	if item.Stage != "" {
		fmt.Fprintf(out, "  stage:   %s\n", item.Stage)
	}
	if item.Kind == queue.KindMerge {
		fmt.Fprintf(out, "  left:    %s\n", item.LeftPath)
		fmt.Fprintf(out, "  right:   %s\n", item.RightPath)
	} else {
		fmt.Fprintf(out, "  source:  %s\n", item.SourcePath)
		fmt.Fprintf(out, "  format:  %s\n", item.Format)
	}
	fmt.Fprintf(out, "  output:  %s\n", item.OutputPath)
	fmt.Fprintf(out, "  created: %s\n", formatDisplayTime(item.CreatedAt.Format(time.RFC3339Nano)))
	if item.RunID != "" {
		fmt.Fprintf(out, "  run:     %s\n", item.RunID)
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "  error:   %s\n", item.ErrorMessage)
	}
	if item.DiagnosticsJSON != "" {
		var diag pipeline.Diagnostics
		if err := json.Unmarshal([]byte(item.DiagnosticsJSON), &diag); err == nil {
			fmt.Fprintf(out, "  frames:  %d encoded, %d desync dropped\n", diag.FramesEncoded, diag.DesyncDropped)
		}
	}
}
