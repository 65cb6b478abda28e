package composite

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"time"

	"parallax/internal/frame"
	"parallax/internal/logging"
)

// Layout selects how the two halves are stacked on the composite canvas.
type Layout string

const (
	// LayoutHorizontal places left|right side by side (the default master
	// layout; output width is twice the canonical width).
	LayoutHorizontal Layout = "horizontal"
	// LayoutVertical places left above right (output height is twice the
	// canonical height).
	LayoutVertical Layout = "vertical"
)

// ParseLayout validates a layout name.
func ParseLayout(value string) (Layout, error) {
	switch Layout(value) {
	case LayoutHorizontal, LayoutVertical:
		return Layout(value), nil
	case "":
		return LayoutHorizontal, nil
	default:
		return "", fmt.Errorf("unknown layout %q", value)
	}
}

// CanvasSize returns the composite dimensions for a canonical eye size.
func (l Layout) CanvasSize(canonical frame.Size) frame.Size {
	if l == LayoutVertical {
		return frame.Size{Width: canonical.Width, Height: canonical.Height * 2}
	}
	return frame.Size{Width: canonical.Width * 2, Height: canonical.Height}
}

// Stats summarizes a join run.
type Stats struct {
	// Paired counts emitted composite frames.
	Paired int
	// DesyncDropped counts left frames with no right frame inside the
	// tolerance window.
	DesyncDropped int
	// UnmatchedRight counts right frames passed over during matching.
	UnmatchedRight int
	// TrailingDropped counts frames remaining on either stream after the
	// other was exhausted.
	TrailingDropped int
}

// Compositor joins two corrected streams into composite frames.
type Compositor struct {
	canonical frame.Size
	layout    Layout
	tolerance time.Duration
	logger    *slog.Logger
}

// New constructs a compositor. Tolerance must be positive; the caller
// normally derives it from the expected frame interval.
func New(canonical frame.Size, layout Layout, tolerance time.Duration, logger *slog.Logger) (*Compositor, error) {
	if !canonical.Valid() {
		return nil, fmt.Errorf("canonical size %s is not positive", canonical)
	}
	if tolerance <= 0 {
		return nil, fmt.Errorf("sync tolerance must be positive, got %v", tolerance)
	}
	if layout != LayoutHorizontal && layout != LayoutVertical {
		return nil, fmt.Errorf("unknown layout %q", layout)
	}
	return &Compositor{
		canonical: canonical,
		layout:    layout,
		tolerance: tolerance,
		logger:    logging.NewComponentLogger(logger, "compositor"),
	}, nil
}

// Compose stacks one matched pair onto a composite canvas carrying the left
// frame's timestamp.
func (c *Compositor) Compose(left, right frame.Frame) (frame.Frame, error) {
	if got := left.Size(); got != c.canonical {
		return frame.Frame{}, fmt.Errorf("left frame %s does not match canonical %s", got, c.canonical)
	}
	if got := right.Size(); got != c.canonical {
		return frame.Frame{}, fmt.Errorf("right frame %s does not match canonical %s", got, c.canonical)
	}
	out := frame.New(left.Timestamp, c.layout.CanvasSize(c.canonical))
	leftRect := image.Rect(0, 0, c.canonical.Width, c.canonical.Height)
	var rightRect image.Rectangle
	if c.layout == LayoutVertical {
		rightRect = leftRect.Add(image.Pt(0, c.canonical.Height))
	} else {
		rightRect = leftRect.Add(image.Pt(c.canonical.Width, 0))
	}
	draw.Draw(out.Image, leftRect, left.Image, left.Image.Bounds().Min, draw.Src)
	draw.Draw(out.Image, rightRect, right.Image, right.Image.Bounds().Min, draw.Src)
	return out, nil
}

// Join consumes the two input channels and sends composite frames to out in
// strictly increasing timestamp order. It returns when either input is
// exhausted or the context is cancelled. Join closes out on return so the
// downstream stage observes end of stream.
func (c *Compositor) Join(ctx context.Context, left, right <-chan frame.Frame, out chan<- frame.Frame) (Stats, error) {
	defer close(out)

	var stats Stats
	var prev, next *frame.Frame
	lastEmitted := time.Duration(-1)

	recvRight := func() (frame.Frame, bool, error) {
		select {
		case <-ctx.Done():
			return frame.Frame{}, false, ctx.Err()
		case f, ok := <-right:
			return f, ok, nil
		}
	}

	rightOpen := true
	for {
		var lf frame.Frame
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case f, ok := <-left:
			if !ok {
				// Left exhausted: everything still queued on the right is trailing.
				stats.TrailingDropped += countPending(prev, next)
				for rightOpen {
					_, ok, err := recvRight()
					if err != nil {
						return stats, err
					}
					if !ok {
						rightOpen = false
						break
					}
					stats.TrailingDropped++
				}
				return stats, nil
			}
			lf = f
		}

		// A later-candidate parked on a previous iteration falls behind once
		// the left stream moves past it; demote it so the advance loop can
		// resume reading and lf gets the pair of candidates straddling it.
		if next != nil && next.Timestamp <= lf.Timestamp {
			if prev != nil {
				stats.UnmatchedRight++
			}
			prev = next
			next = nil
		}

		// Advance the right stream until we hold the frames straddling lf.
		for rightOpen && next == nil {
			rf, ok, err := recvRight()
			if err != nil {
				return stats, err
			}
			if !ok {
				rightOpen = false
				break
			}
			if rf.Timestamp <= lf.Timestamp {
				if prev != nil {
					stats.UnmatchedRight++
				}
				f := rf
				prev = &f
				continue
			}
			f := rf
			next = &f
		}

		match := c.pickNearest(lf.Timestamp, &prev, &next, &stats)
		if match == nil {
			stats.DesyncDropped++
			c.logger.Warn("dropping desynchronized left frame",
				logging.Duration("timestamp", lf.Timestamp),
				logging.Duration("tolerance", c.tolerance))
			if !rightOpen && prev == nil && next == nil {
				// Right exhausted with nothing left to match: the rest of
				// the left stream is trailing.
				stats.TrailingDropped += c.drainLeft(ctx, left)
				return stats, ctx.Err()
			}
			continue
		}

		composite, err := c.Compose(lf, *match)
		if err != nil {
			return stats, err
		}
		if composite.Timestamp <= lastEmitted {
			return stats, fmt.Errorf("composite timestamps not strictly increasing: %v after %v", composite.Timestamp, lastEmitted)
		}
		lastEmitted = composite.Timestamp

		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case out <- composite:
			stats.Paired++
		}
	}
}

// pickNearest chooses the right frame closest to ts within tolerance and
// consumes it. On an exact tie between the earlier and later candidates the
// earlier one wins; source material never disambiguated ties, so the policy
// is fixed here and covered by tests.
func (c *Compositor) pickNearest(ts time.Duration, prev, next **frame.Frame, stats *Stats) *frame.Frame {
	var before, after time.Duration = -1, -1
	if *prev != nil {
		before = absDuration(ts - (*prev).Timestamp)
	}
	if *next != nil {
		after = absDuration((*next).Timestamp - ts)
	}

	useBefore := before >= 0 && before <= c.tolerance
	useAfter := after >= 0 && after <= c.tolerance
	if useBefore && useAfter {
		useAfter = after < before
	}
	switch {
	case useBefore:
		match := *prev
		*prev = nil
		return match
	case useAfter:
		match := *next
		if *prev != nil {
			// The earlier candidate was skipped for good.
			stats.UnmatchedRight++
			*prev = nil
		}
		*next = nil
		return match
	default:
		if *prev != nil && (*prev).Timestamp < ts-c.tolerance {
			// Too old to ever match a later left frame.
			stats.UnmatchedRight++
			*prev = nil
		}
		return nil
	}
}

func (c *Compositor) drainLeft(ctx context.Context, left <-chan frame.Frame) int {
	dropped := 0
	for {
		select {
		case <-ctx.Done():
			return dropped
		case _, ok := <-left:
			if !ok {
				return dropped
			}
			dropped++
		}
	}
}

func countPending(frames ...*frame.Frame) int {
	n := 0
	for _, f := range frames {
		if f != nil {
			n++
		}
	}
	return n
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
