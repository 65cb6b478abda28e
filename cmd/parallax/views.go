package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"parallax/internal/pipeline"
	"parallax/internal/queue"
)

func buildQueueListRows(items []*queue.Item) [][]string {
	if len(items) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			string(item.Kind),
			filepath.Base(item.OutputPath),
			formatStatusLabel(string(item.Status)),
			item.Stage,
			formatDisplayTime(item.CreatedAt.Format(time.RFC3339Nano)),
		})
	}
	return rows
}

func buildQueueStatusRows(items []*queue.Item) [][]string {
	if len(items) == 0 {
		return nil
	}
	counts := make(map[queue.Status]int)
	for _, item := range items {
		counts[item.Status]++
	}
	order := []queue.Status{queue.StatusPending, queue.StatusProcessing, queue.StatusCompleted, queue.StatusFailed}
	rows := make([][]string, 0, len(order))
	for _, status := range order {
		if counts[status] == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(string(status)), fmt.Sprintf("%d", counts[status])})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

// printOutcome writes the human summary of a finished production run.
func printOutcome(out io.Writer, outcome pipeline.Outcome) {
	diag := outcome.Diagnostics
	fmt.Fprintf(out, "Wrote %s\n", outcome.OutputPath)
	fmt.Fprintf(out, "  frames encoded:  %d\n", diag.FramesEncoded)
	if diag.FramesPaired > 0 {
		fmt.Fprintf(out, "  frames paired:   %d\n", diag.FramesPaired)
	}
	if diag.DesyncDropped > 0 {
		fmt.Fprintf(out, "  desync dropped:  %d\n", diag.DesyncDropped)
	}
	if diag.TrailingDropped > 0 {
		fmt.Fprintf(out, "  trailing dropped: %d\n", diag.TrailingDropped)
	}
	if diag.BorderFilled > 0 {
		fmt.Fprintf(out, "  border filled:   %d px\n", diag.BorderFilled)
	}
	fmt.Fprintf(out, "  elapsed:         %s\n", time.Duration(diag.ElapsedMillis)*time.Millisecond)
}

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// renderHealthLine formats one component readiness line, colorized when the
// writer is a terminal.
func renderHealthLine(component, detail string, ready, colorize bool) string {
	status := "OK"
	color := ansiGreen
	if !ready {
		status = "ERROR"
		color = ansiRed
	}
	line := fmt.Sprintf("  %-12s [%s]", component+":", status)
	if detail != "" {
		line += " " + detail
	}
	if colorize {
		return color + line + ansiReset
	}
	return line
}
