// Package frame holds the pixel-buffer and timing primitives shared by every
// pipeline stage. Frames are plain RGBA buffers stamped with a stream
// timestamp; Size describes the canonical dimensions all corrected frames are
// normalized to before composition.
package frame

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"
)

// Size describes frame dimensions in pixels.
type Size struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Frame is a single decoded video frame with its stream timestamp.
type Frame struct {
	Timestamp time.Duration
	Image     *image.RGBA
}

// Size returns the frame's pixel dimensions.
func (f Frame) Size() Size {
	if f.Image == nil {
		return Size{}
	}
	b := f.Image.Bounds()
	return Size{Width: b.Dx(), Height: b.Dy()}
}

// New allocates a zeroed frame of the given size.
func New(ts time.Duration, size Size) Frame {
	return Frame{Timestamp: ts, Image: image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))}
}

// Solid allocates a frame filled with a single color. Useful for synthetic
// streams in tests and for border canvases.
func Solid(ts time.Duration, size Size, c color.RGBA) Frame {
	f := New(ts, size)
	draw.Draw(f.Image, f.Image.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return f
}

// Clone returns a deep copy of the frame's pixel buffer.
func (f Frame) Clone() Frame {
	if f.Image == nil {
		return Frame{Timestamp: f.Timestamp}
	}
	dup := image.NewRGBA(f.Image.Bounds())
	copy(dup.Pix, f.Image.Pix)
	return Frame{Timestamp: f.Timestamp, Image: dup}
}
