package composite

import (
	"context"
	"image/color"
	"testing"
	"time"

	"parallax/internal/frame"
	"parallax/internal/logging"
)

var canonical = frame.Size{Width: 8, Height: 6}

func newTestCompositor(t *testing.T, tolerance time.Duration) *Compositor {
	t.Helper()
	c, err := New(canonical, LayoutHorizontal, tolerance, logging.NewNop())
	if err != nil {
		t.Fatalf("new compositor: %v", err)
	}
	return c
}

func feed(frames ...frame.Frame) <-chan frame.Frame {
	ch := make(chan frame.Frame, len(frames))
	for _, f := range frames {
		ch <- f
	}
	close(ch)
	return ch
}

func stream(interval time.Duration, offset time.Duration, count int, c color.RGBA) []frame.Frame {
	frames := make([]frame.Frame, 0, count)
	for i := 0; i < count; i++ {
		frames = append(frames, frame.Solid(offset+time.Duration(i)*interval, canonical, c))
	}
	return frames
}

func runJoin(t *testing.T, c *Compositor, left, right []frame.Frame) ([]frame.Frame, Stats) {
	t.Helper()
	out := make(chan frame.Frame, len(left)+len(right)+1)
	stats, err := c.Join(context.Background(), feed(left...), feed(right...), out)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	var got []frame.Frame
	for f := range out {
		got = append(got, f)
	}
	return got, stats
}

func TestComposeDoubleWidth(t *testing.T) {
	c := newTestCompositor(t, 20*time.Millisecond)
	red := color.RGBA{R: 255, A: 255}
	cyan := color.RGBA{G: 255, B: 255, A: 255}
	out, err := c.Compose(frame.Solid(0, canonical, red), frame.Solid(0, canonical, cyan))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if got := out.Size(); got != (frame.Size{Width: 16, Height: 6}) {
		t.Fatalf("composite size = %s, want 16x6", got)
	}
	if got := out.Image.RGBAAt(0, 0); got != red {
		t.Fatalf("left half pixel = %v", got)
	}
	if got := out.Image.RGBAAt(8, 0); got != cyan {
		t.Fatalf("right half pixel = %v", got)
	}
}

func TestComposeRejectsWrongSize(t *testing.T) {
	c := newTestCompositor(t, 20*time.Millisecond)
	small := frame.Solid(0, frame.Size{Width: 4, Height: 4}, color.RGBA{})
	if _, err := c.Compose(small, frame.Solid(0, canonical, color.RGBA{})); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestJoinPairsAllWithinTolerance(t *testing.T) {
	interval := 40 * time.Millisecond
	c := newTestCompositor(t, interval)
	left := stream(interval, 0, 10, color.RGBA{R: 255, A: 255})
	// Right runs 15ms late, well inside one frame interval.
	right := stream(interval, 15*time.Millisecond, 10, color.RGBA{B: 255, A: 255})

	got, stats := runJoin(t, c, left, right)
	if stats.Paired != 10 || stats.DesyncDropped != 0 {
		t.Fatalf("stats = %+v, want 10 paired", stats)
	}
	if len(got) != 10 {
		t.Fatalf("emitted %d frames, want 10", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp <= got[i-1].Timestamp {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
	}
	// Composite frames carry the left timestamps.
	if got[0].Timestamp != 0 || got[9].Timestamp != 9*interval {
		t.Fatalf("timestamps = %v .. %v", got[0].Timestamp, got[9].Timestamp)
	}
}

func TestJoinDropsBeyondTolerance(t *testing.T) {
	interval := 40 * time.Millisecond
	c := newTestCompositor(t, interval)
	left := stream(interval, 0, 5, color.RGBA{R: 255, A: 255})
	// Right is offset far beyond tolerance; nothing may be paired.
	right := stream(interval, 300*time.Millisecond, 5, color.RGBA{B: 255, A: 255})

	got, stats := runJoin(t, c, left, right)
	if len(got) != 0 {
		t.Fatalf("emitted %d frames, want 0", len(got))
	}
	if stats.Paired != 0 {
		t.Fatalf("paired = %d, want 0", stats.Paired)
	}
	if stats.DesyncDropped != 5 {
		t.Fatalf("desync dropped = %d, want 5", stats.DesyncDropped)
	}
}

func TestJoinPairsDriftingStreams(t *testing.T) {
	c := newTestCompositor(t, 40*time.Millisecond)
	// The two streams run at different rates, so the offset drifts from
	// 55ms down through the tolerance window as playback progresses.
	left := stream(100*time.Millisecond, 0, 4, color.RGBA{R: 255, A: 255})
	right := stream(110*time.Millisecond, 55*time.Millisecond, 4, color.RGBA{B: 255, A: 255})

	got, stats := runJoin(t, c, left, right)
	if stats.Paired != 2 {
		t.Fatalf("stats = %+v, want 2 paired", stats)
	}
	if stats.DesyncDropped != 2 {
		t.Fatalf("desync dropped = %d, want 2", stats.DesyncDropped)
	}
	// Left frames at 200ms and 300ms match the rights at 165ms and 275ms.
	if len(got) != 2 || got[0].Timestamp != 200*time.Millisecond || got[1].Timestamp != 300*time.Millisecond {
		t.Fatalf("emitted timestamps = %v, want [200ms 300ms]", timestamps(got))
	}
}

func timestamps(frames []frame.Frame) []time.Duration {
	ts := make([]time.Duration, 0, len(frames))
	for _, f := range frames {
		ts = append(ts, f.Timestamp)
	}
	return ts
}

func TestJoinTieBreakPrefersEarlier(t *testing.T) {
	c := newTestCompositor(t, 20*time.Millisecond)
	left := []frame.Frame{frame.Solid(100*time.Millisecond, canonical, color.RGBA{R: 255, A: 255})}
	early := frame.Solid(90*time.Millisecond, canonical, color.RGBA{G: 100, A: 255})
	late := frame.Solid(110*time.Millisecond, canonical, color.RGBA{G: 200, A: 255})

	got, stats := runJoin(t, c, left, []frame.Frame{early, late})
	if stats.Paired != 1 {
		t.Fatalf("stats = %+v, want 1 paired", stats)
	}
	// Right half comes from the earlier candidate on an exact tie.
	if px := got[0].Image.RGBAAt(canonical.Width, 0); px.G != 100 {
		t.Fatalf("tie matched the later frame (G=%d)", px.G)
	}
}

func TestJoinCountsTrailingFrames(t *testing.T) {
	interval := 40 * time.Millisecond
	c := newTestCompositor(t, interval)
	left := stream(interval, 0, 4, color.RGBA{R: 255, A: 255})
	right := stream(interval, 0, 9, color.RGBA{B: 255, A: 255})

	_, stats := runJoin(t, c, left, right)
	if stats.Paired != 4 {
		t.Fatalf("paired = %d, want 4", stats.Paired)
	}
	if stats.TrailingDropped != 5 {
		t.Fatalf("trailing = %d, want 5", stats.TrailingDropped)
	}
}

func TestJoinCancellation(t *testing.T) {
	c := newTestCompositor(t, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	left := make(chan frame.Frame)
	right := make(chan frame.Frame)
	out := make(chan frame.Frame)
	if _, err := c.Join(ctx, left, right, out); err != context.Canceled {
		t.Fatalf("join error = %v, want context.Canceled", err)
	}
}
