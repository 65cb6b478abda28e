package transcode

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"parallax/internal/composite"
	"parallax/internal/frame"
)

// Transcoder maps composite frames to one derived output frame each.
type Transcoder struct {
	spec      FormatSpec
	canonical frame.Size
	layout    composite.Layout
}

// New validates the spec against the master layout.
func New(spec FormatSpec, canonical frame.Size, layout composite.Layout) (*Transcoder, error) {
	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if !canonical.Valid() {
		return nil, fmt.Errorf("canonical size %s is not positive", canonical)
	}
	if layout != composite.LayoutHorizontal && layout != composite.LayoutVertical {
		return nil, fmt.Errorf("unknown layout %q", layout)
	}
	return &Transcoder{spec: spec, canonical: canonical, layout: layout}, nil
}

// Spec returns the normalized format spec in effect.
func (t *Transcoder) Spec() FormatSpec {
	return t.spec
}

// OutputSize returns the dimensions of derived frames.
func (t *Transcoder) OutputSize() frame.Size {
	return t.canonical
}

// Transcode derives one output frame. Pure and deterministic: identical
// input frames yield byte-identical outputs.
func (t *Transcoder) Transcode(f frame.Frame) (frame.Frame, error) {
	if got := f.Size(); got != t.layout.CanvasSize(t.canonical) {
		return frame.Frame{}, fmt.Errorf("composite frame %s does not match layout size %s", got, t.layout.CanvasSize(t.canonical))
	}
	left, right := t.halves(f)
	out := frame.New(f.Timestamp, t.canonical)
	switch t.spec.Kind {
	case KindAnaglyph:
		t.anaglyph(out.Image, left, right)
	case KindInterlaced:
		t.interlace(out.Image, left, right)
	case KindCheckerboard:
		t.checkerboard(out.Image, left, right)
	case KindStereoscope:
		t.stereoscope(out.Image, left, right)
	}
	return out, nil
}

// halves views the two eyes of the composite without copying.
func (t *Transcoder) halves(f frame.Frame) (left, right *image.RGBA) {
	b := f.Image.Bounds()
	if t.layout == composite.LayoutVertical {
		half := b.Dy() / 2
		left = f.Image.SubImage(image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+half)).(*image.RGBA)
		right = f.Image.SubImage(image.Rect(b.Min.X, b.Min.Y+half, b.Max.X, b.Max.Y)).(*image.RGBA)
		return left, right
	}
	half := b.Dx() / 2
	left = f.Image.SubImage(image.Rect(b.Min.X, b.Min.Y, b.Min.X+half, b.Max.Y)).(*image.RGBA)
	right = f.Image.SubImage(image.Rect(b.Min.X+half, b.Min.Y, b.Max.X, b.Max.Y)).(*image.RGBA)
	return left, right
}

func (t *Transcoder) anaglyph(dst *image.RGBA, left, right *image.RGBA) {
	m := t.spec.Mapping
	lb := left.Bounds().Min
	rb := right.Bounds().Min
	for y := 0; y < t.canonical.Height; y++ {
		for x := 0; x < t.canonical.Width; x++ {
			lp := left.RGBAAt(lb.X+x, lb.Y+y)
			rp := right.RGBAAt(rb.X+x, rb.Y+y)
			dst.SetRGBA(x, y, color.RGBA{
				R: mixChannel(m.Left[0], m.Right[0], lp, rp),
				G: mixChannel(m.Left[1], m.Right[1], lp, rp),
				B: mixChannel(m.Left[2], m.Right[2], lp, rp),
				A: 255,
			})
		}
	}
}

func mixChannel(l, r [3]float64, lp, rp color.RGBA) uint8 {
	v := l[0]*float64(lp.R) + l[1]*float64(lp.G) + l[2]*float64(lp.B) +
		r[0]*float64(rp.R) + r[1]*float64(rp.G) + r[2]*float64(rp.B)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// interlace alternates output rows between the eyes at full canonical
// resolution. Vertical resolution is halved per eye by construction; that is
// the documented trade-off of row-sequential displays, not a defect.
func (t *Transcoder) interlace(dst *image.RGBA, left, right *image.RGBA) {
	evens, odds := left, right
	if t.spec.Parity == ParityRightEven {
		evens, odds = right, left
	}
	for y := 0; y < t.canonical.Height; y++ {
		src := evens
		if y%2 == 1 {
			src = odds
		}
		min := src.Bounds().Min
		row := src.PixOffset(min.X, min.Y+y)
		out := dst.PixOffset(0, y)
		copy(dst.Pix[out:out+4*t.canonical.Width], src.Pix[row:row+4*t.canonical.Width])
	}
}

func (t *Transcoder) checkerboard(dst *image.RGBA, left, right *image.RGBA) {
	lb := left.Bounds().Min
	rb := right.Bounds().Min
	for y := 0; y < t.canonical.Height; y++ {
		for x := 0; x < t.canonical.Width; x++ {
			if (x+y)%2 == 0 {
				dst.SetRGBA(x, y, left.RGBAAt(lb.X+x, lb.Y+y))
			} else {
				dst.SetRGBA(x, y, right.RGBAAt(rb.X+x, rb.Y+y))
			}
		}
	}
}

// stereoscope crops the center of each eye and lays the crops side by side
// with a black gap, sized for phone viewers that need the views separated.
func (t *Transcoder) stereoscope(dst *image.RGBA, left, right *image.RGBA) {
	gap := t.spec.CenterGap
	paneWidth := (t.canonical.Width - gap) / 2
	if paneWidth <= 0 {
		return
	}
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	cropX := func(half *image.RGBA) int {
		return half.Bounds().Min.X + (half.Bounds().Dx()-paneWidth)/2
	}
	leftSrc := image.Pt(cropX(left), left.Bounds().Min.Y)
	rightSrc := image.Pt(cropX(right), right.Bounds().Min.Y)

	draw.Draw(dst, image.Rect(0, 0, paneWidth, t.canonical.Height), left, leftSrc, draw.Src)
	draw.Draw(dst, image.Rect(paneWidth+gap, 0, 2*paneWidth+gap, t.canonical.Height), right, rightSrc, draw.Src)
}
