package queue_test

import (
	"context"
	"testing"

	"parallax/internal/queue"
	"parallax/internal/testsupport"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndFetch(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	merge, err := store.NewMerge(ctx, "/in/aL1.mp4", "/in/aR1.mp4", "/out/a1 (SbS).mp4")
	if err != nil {
		t.Fatalf("NewMerge: %v", err)
	}
	if merge.ID == 0 || merge.Status != queue.StatusPending || merge.Kind != queue.KindMerge {
		t.Fatalf("unexpected merge item: %+v", merge)
	}
	if merge.CreatedAt.IsZero() {
		t.Fatal("created_at must be set")
	}

	convert, err := store.NewConvert(ctx, "/out/a1 (SbS).mp4", "/out/a1 (Anaglyph).mp4", "anaglyph")
	if err != nil {
		t.Fatalf("NewConvert: %v", err)
	}
	if convert.Kind != queue.KindConvert || convert.Format != "anaglyph" {
		t.Fatalf("unexpected convert item: %+v", convert)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0].ID != merge.ID || items[1].ID != convert.ID {
		t.Fatalf("unexpected list: %+v", items)
	}
}

func TestNextPendingAndUpdate(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.NewMerge(ctx, "/in/aL1.mp4", "/in/aR1.mp4", "/out/a1.mp4")
	if err != nil {
		t.Fatalf("NewMerge: %v", err)
	}
	if _, err := store.NewMerge(ctx, "/in/bL1.mp4", "/in/bR1.mp4", "/out/b1.mp4"); err != nil {
		t.Fatalf("NewMerge: %v", err)
	}

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending item, got %+v", next)
	}

	next.Status = queue.StatusProcessing
	next.Stage = "correcting"
	next.RunID = "run-1"
	if err := store.Update(ctx, next); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded, err := store.GetByID(ctx, next.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != queue.StatusProcessing || reloaded.Stage != "correcting" || reloaded.RunID != "run-1" {
		t.Fatalf("update not persisted: %+v", reloaded)
	}

	// The in-flight item no longer surfaces as pending.
	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.OutputPath != "/out/b1.mp4" {
		t.Fatalf("expected second item, got %+v", next)
	}
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	item, err := store.NewMerge(ctx, "/l", "/r", "/o")
	if err != nil {
		t.Fatalf("NewMerge: %v", err)
	}
	item.Status = queue.Status("exploded")
	if err := store.Update(ctx, item); err == nil {
		t.Fatal("expected status validation error")
	}
}

func TestResetProcessing(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	item, err := store.NewMerge(ctx, "/l", "/r", "/o")
	if err != nil {
		t.Fatalf("NewMerge: %v", err)
	}
	item.Status = queue.StatusProcessing
	item.Stage = "compositing"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reset, err := store.ResetProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetProcessing: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset item, got %d", reset)
	}
	reloaded, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != queue.StatusPending || reloaded.Stage != "" {
		t.Fatalf("expected pending item without stage, got %+v", reloaded)
	}
}

func TestClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	done, err := store.NewMerge(ctx, "/l1", "/r1", "/o1")
	if err != nil {
		t.Fatalf("NewMerge: %v", err)
	}
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := store.NewMerge(ctx, "/l2", "/r2", "/o2"); err != nil {
		t.Fatalf("NewMerge: %v", err)
	}

	removed, err := store.Clear(ctx, queue.StatusCompleted)
	if err != nil {
		t.Fatalf("Clear completed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	removed, err = store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear all: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("queue must be empty, got %d items", len(items))
	}
}

func TestOpenLocksQueueDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	defer store.Close()

	if _, err := queue.Open(cfg); err == nil {
		t.Fatal("expected second open on the same directory to fail")
	}
}
