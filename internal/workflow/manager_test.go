package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"parallax/internal/config"
	"parallax/internal/logging"
	"parallax/internal/pipeline"
	"parallax/internal/queue"
	"parallax/internal/testsupport"
)

const testInterval = 40 * time.Millisecond

// seedMergeSources registers a synced pair on the engine and touches the
// backing files so Prepare's stat checks pass.
func seedMergeSources(t *testing.T, eng *testsupport.MemEngine, cfg *config.Config, dir string, frames int) (string, string) {
	t.Helper()

	left := filepath.Join(dir, "RigL001.mp4")
	right := filepath.Join(dir, "RigR001.mp4")
	testsupport.WriteFile(t, left, 16)
	testsupport.WriteFile(t, right, 16)

	size := cfg.CanonicalSize()
	eng.AddSource(left, 25, testsupport.Frames(frames, size, 0, testInterval, nil))
	eng.AddSource(right, 25, testsupport.Frames(frames, size, 0, testInterval, nil))
	return left, right
}

func TestManagerRunDrainsQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	eng := testsupport.NewMemEngine()

	dir := t.TempDir()
	left, right := seedMergeSources(t, eng, cfg, dir, 6)
	item, err := store.NewMerge(context.Background(), left, right, filepath.Join(dir, "Rig001 (SbS).mp4"))
	if err != nil {
		t.Fatalf("NewMerge: %v", err)
	}

	mgr := NewManager(cfg, store, eng, logging.NewNop())
	summary, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.Completed != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 processed, 1 completed", summary)
	}

	got, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, queue.StatusCompleted)
	}
	if got.Stage != string(pipeline.StateDone) {
		t.Fatalf("stage = %q, want %q", got.Stage, pipeline.StateDone)
	}
	if got.RunID == "" {
		t.Fatal("run ID not stamped")
	}

	var diag pipeline.Diagnostics
	if err := json.Unmarshal([]byte(got.DiagnosticsJSON), &diag); err != nil {
		t.Fatalf("diagnostics unmarshal: %v", err)
	}
	if diag.FramesPaired != 6 || diag.FramesEncoded != 6 {
		t.Fatalf("diagnostics = %+v, want 6 paired and encoded", diag)
	}

	sink := eng.LastSink()
	if sink == nil || !sink.Finalized() {
		t.Fatal("sink not finalized")
	}
}

func TestManagerRunMarksFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	eng := testsupport.NewMemEngine()

	dir := t.TempDir()
	left, right := seedMergeSources(t, eng, cfg, dir, 6)
	eng.FailSource(left, 2, errors.New("bitstream corrupt"))

	item, err := store.NewMerge(context.Background(), left, right, filepath.Join(dir, "Rig001 (SbS).mp4"))
	if err != nil {
		t.Fatalf("NewMerge: %v", err)
	}

	mgr := NewManager(cfg, store, eng, logging.NewNop())
	summary, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || summary.Completed != 0 {
		t.Fatalf("summary = %+v, want 1 failed", summary)
	}

	got, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFailed {
		t.Fatalf("status = %q, want %q", got.Status, queue.StatusFailed)
	}
	if !strings.Contains(got.ErrorMessage, "bitstream corrupt") {
		t.Fatalf("error message %q does not name the cause", got.ErrorMessage)
	}
	if sink := eng.LastSink(); sink != nil && sink.Finalized() {
		t.Fatal("failed run must not finalize output")
	}
}

func TestManagerRunMissingInputFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	eng := testsupport.NewMemEngine()

	dir := t.TempDir()
	item, err := store.NewMerge(context.Background(),
		filepath.Join(dir, "goneL001.mp4"),
		filepath.Join(dir, "goneR001.mp4"),
		filepath.Join(dir, "gone001 (SbS).mp4"))
	if err != nil {
		t.Fatalf("NewMerge: %v", err)
	}

	mgr := NewManager(cfg, store, eng, logging.NewNop())
	summary, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 failed", summary)
	}
	got, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFailed {
		t.Fatalf("status = %q, want %q", got.Status, queue.StatusFailed)
	}
}

func TestManagerCancellationLeavesItemPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	eng := testsupport.NewMemEngine()

	dir := t.TempDir()
	left, right := seedMergeSources(t, eng, cfg, dir, 6)
	eng.FailSource(left, 1, context.Canceled)

	item, err := store.NewMerge(context.Background(), left, right, filepath.Join(dir, "Rig001 (SbS).mp4"))
	if err != nil {
		t.Fatalf("NewMerge: %v", err)
	}

	mgr := NewManager(cfg, store, eng, logging.NewNop())
	summary, err := mgr.Run(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if summary.Processed != 0 {
		t.Fatalf("summary = %+v, want cancelled item uncounted", summary)
	}

	got, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusPending {
		t.Fatalf("status = %q, want %q after cancellation", got.Status, queue.StatusPending)
	}
}

func TestManagerRunConvertItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	eng := testsupport.NewMemEngine()

	dir := t.TempDir()
	source := filepath.Join(dir, "Rig001 (SbS).mp4")
	testsupport.WriteFile(t, source, 16)
	canvas := cfg.LayoutValue().CanvasSize(cfg.CanonicalSize())
	eng.AddSource(source, 25, testsupport.Frames(4, canvas, 0, testInterval, nil))

	item, err := store.NewConvert(context.Background(), source,
		filepath.Join(dir, "Rig001 (Anaglyph).mp4"), "anaglyph")
	if err != nil {
		t.Fatalf("NewConvert: %v", err)
	}

	mgr := NewManager(cfg, store, eng, logging.NewNop())
	summary, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Completed != 1 {
		t.Fatalf("summary = %+v, want 1 completed", summary)
	}

	got, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, queue.StatusCompleted)
	}

	sink := eng.LastSink()
	if sink == nil {
		t.Fatal("no sink opened")
	}
	if size := sink.Spec.Size; size != cfg.CanonicalSize() {
		t.Fatalf("anaglyph output size = %v, want canonical %v", size, cfg.CanonicalSize())
	}
	if frames := sink.Written(); len(frames) != 4 {
		t.Fatalf("encoded %d frames, want 4", len(frames))
	}
}

func TestManagerHealthChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	eng := testsupport.NewMemEngine()
	eng.HealthErr = errors.New("ffmpeg not found")

	mgr := NewManager(cfg, store, eng, logging.NewNop())
	checks := mgr.HealthChecks(context.Background())
	if len(checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(checks))
	}
	for _, check := range checks {
		if check.Ready {
			t.Fatalf("check %q reported ready with a broken engine", check.Name)
		}
	}
}
