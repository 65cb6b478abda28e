package services_test

import (
	"context"
	"errors"
	"testing"

	"parallax/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcoding", "finalize", "encoder exited", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "compositing", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient for nil marker, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, services.ExitOK},
		{"configuration", services.Wrap(services.ErrConfiguration, "loading", "", "bad profile", nil), services.ExitConfiguration},
		{"validation", services.Wrap(services.ErrValidation, "loading", "", "", nil), services.ExitConfiguration},
		{"engine", services.Wrap(services.ErrExternalTool, "transcoding", "", "", nil), services.ExitExternalTool},
		{"cancelled", context.Canceled, services.ExitCancelled},
		{"processing", errors.New("frame mismatch"), services.ExitProcessing},
	}
	for _, tc := range cases {
		if got := services.ExitCode(tc.err); got != tc.want {
			t.Fatalf("%s: exit code = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, 7)
	ctx = services.WithStage(ctx, "correcting")
	ctx = services.WithEye(ctx, "right")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != 7 {
		t.Fatalf("job id = %d, %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "correcting" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if eye, ok := services.EyeFromContext(ctx); !ok || eye != "right" {
		t.Fatalf("eye = %q, %v", eye, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}
