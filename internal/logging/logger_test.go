package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"parallax/internal/services"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		" DEBUG ": slog.LevelDebug,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestJSONHandlerShape(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, level))
	logger.Info("frame paired", String("component", "compositor"), Int("paired", 3))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if payload["msg"] != "frame paired" {
		t.Fatalf("msg = %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("level = %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("missing ts field")
	}
}

func TestConsoleHandlerOrdersIdentityFields(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, level))
	logger.Info("stage started",
		String("detail", "x"),
		String(FieldStage, "correcting"),
		String(FieldComponent, "pipeline"),
	)
	line := buf.String()
	ci := strings.Index(line, "component=pipeline")
	si := strings.Index(line, "stage=correcting")
	di := strings.Index(line, "detail=x")
	if ci < 0 || si < 0 || di < 0 {
		t.Fatalf("missing fields in %q", line)
	}
	if !(ci < si && si < di) {
		t.Fatalf("identity fields not pinned first: %q", line)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, level))

	ctx := services.WithJobID(context.Background(), 42)
	ctx = services.WithStage(ctx, "compositing")
	WithContext(ctx, logger).Info("hello")

	line := buf.String()
	if !strings.Contains(line, "job_id=42") || !strings.Contains(line, "stage=compositing") {
		t.Fatalf("context fields missing from %q", line)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger must be disabled at all levels")
	}
}
