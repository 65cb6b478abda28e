package correct

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"

	"parallax/internal/frame"
	"parallax/internal/geometry"
)

// ErrUnsupportedResolution indicates a source frame smaller than the
// canonical size; missing pixels cannot be synthesized unless upscaling is
// enabled. Fatal for the run, not a per-frame skip.
var ErrUnsupportedResolution = errors.New("unsupported resolution")

// Options configures a Corrector.
type Options struct {
	Profile   geometry.CameraProfile
	Offset    geometry.RigOffset
	Eye       geometry.Eye
	Canonical frame.Size
	// Upscale permits sources smaller than canonical to be bilinearly
	// enlarged instead of rejected. The twin HERO3 rig records HD halves
	// that are doubled into a 4K master, so this defaults on in config.
	Upscale bool
	// Border is the fill color for samples outside the source frame.
	Border color.RGBA
}

// Corrector normalizes one eye's stream. Safe for use from a single worker;
// the border-fill counter is atomic so diagnostics can be read concurrently.
type Corrector struct {
	opts         Options
	shiftX       int
	shiftY       int
	borderFilled atomic.Int64

	// mapping is lazily built on the first frame because the default
	// principal point and focal length depend on the native resolution.
	mapping *geometry.Mapping
}

// New validates the profile eagerly so bad calibration fails before any
// frame is read.
func New(opts Options) (*Corrector, error) {
	if err := opts.Profile.Validate(); err != nil {
		return nil, err
	}
	if !opts.Canonical.Valid() {
		return nil, fmt.Errorf("canonical size %s is not positive", opts.Canonical)
	}
	opts.Offset = opts.Offset.Normalized()
	dx, dy := opts.Offset.SampleShift(opts.Eye)
	return &Corrector{opts: opts, shiftX: dx, shiftY: dy}, nil
}

// BorderFilled reports how many output pixels were filled with the border
// color because their source coordinate fell outside the input frame.
func (c *Corrector) BorderFilled() int64 {
	return c.borderFilled.Load()
}

// Correct produces a corrected frame at the canonical size. The timestamp is
// preserved from the source frame.
func (c *Corrector) Correct(f frame.Frame) (frame.Frame, error) {
	src := f.Image
	if src == nil {
		return frame.Frame{}, errors.New("nil source frame")
	}
	native := f.Size()
	canon := c.opts.Canonical
	if native.Width < canon.Width || native.Height < canon.Height {
		if !c.opts.Upscale {
			return frame.Frame{}, fmt.Errorf("%w: source %s smaller than canonical %s", ErrUnsupportedResolution, native, canon)
		}
	}
	if c.mapping == nil {
		m, err := geometry.NewMapping(c.opts.Profile, native.Width, native.Height)
		if err != nil {
			return frame.Frame{}, err
		}
		c.mapping = m
	}

	scaleX, scaleY, padX, padY := c.placement(native)

	if c.mapping.Identity() {
		return c.correctUndistorted(f, scaleX, scaleY, padX, padY), nil
	}
	return c.correctDistorted(f, scaleX, scaleY, padX, padY), nil
}

// placement computes how a canonical output pixel maps back into native
// coordinates: either a centered crop (scale 1) or a full-frame scale.
func (c *Corrector) placement(native frame.Size) (scaleX, scaleY, padX, padY float64) {
	canon := c.opts.Canonical
	scaleX, scaleY = 1, 1
	if native.Width < canon.Width || native.Height < canon.Height {
		scaleX = float64(native.Width) / float64(canon.Width)
		scaleY = float64(native.Height) / float64(canon.Height)
		return scaleX, scaleY, 0, 0
	}
	padX = float64(native.Width-canon.Width) / 2
	padY = float64(native.Height-canon.Height) / 2
	return scaleX, scaleY, padX, padY
}

// correctUndistorted handles identity lenses without per-pixel math: a plain
// shifted crop stays byte-exact, and pure upscales go through the x/image
// bilinear kernel.
func (c *Corrector) correctUndistorted(f frame.Frame, scaleX, scaleY, padX, padY float64) frame.Frame {
	canon := c.opts.Canonical
	src := f.Image
	out := frame.New(f.Timestamp, canon)

	if scaleX == 1 && scaleY == 1 {
		origin := image.Pt(int(padX)+c.shiftX, int(padY)+c.shiftY)
		draw.Draw(out.Image, out.Image.Bounds(), &image.Uniform{C: c.opts.Border}, image.Point{}, draw.Src)
		crop := image.Rect(0, 0, canon.Width, canon.Height).Add(origin).Intersect(src.Bounds())
		if crop.Empty() {
			c.borderFilled.Add(int64(canon.Width * canon.Height))
			return out
		}
		draw.Draw(out.Image, crop.Sub(origin), src, crop.Min, draw.Src)
		filled := canon.Width*canon.Height - crop.Dx()*crop.Dy()
		if filled > 0 {
			c.borderFilled.Add(int64(filled))
		}
		return out
	}

	shifted := src
	if c.shiftX != 0 || c.shiftY != 0 {
		// Integer shift with border fill before scaling so the offset is
		// applied in source pixels, matching the distorted path.
		shifted = image.NewRGBA(src.Bounds())
		draw.Draw(shifted, shifted.Bounds(), &image.Uniform{C: c.opts.Border}, image.Point{}, draw.Src)
		from := src.Bounds().Add(image.Pt(-c.shiftX, -c.shiftY)).Intersect(src.Bounds())
		draw.Draw(shifted, from, src, from.Min.Add(image.Pt(c.shiftX, c.shiftY)), draw.Src)
		filled := src.Bounds().Dx()*src.Bounds().Dy() - from.Dx()*from.Dy()
		if filled > 0 {
			c.borderFilled.Add(int64(filled))
		}
	}
	xdraw.BiLinear.Scale(out.Image, out.Image.Bounds(), shifted, shifted.Bounds(), xdraw.Src, nil)
	return out
}

// correctDistorted walks every output pixel through the distortion mapping
// and samples the source bilinearly.
func (c *Corrector) correctDistorted(f frame.Frame, scaleX, scaleY, padX, padY float64) frame.Frame {
	canon := c.opts.Canonical
	src := f.Image
	out := frame.New(f.Timestamp, canon)
	filled := int64(0)
	for y := 0; y < canon.Height; y++ {
		for x := 0; x < canon.Width; x++ {
			// Canonical pixel -> ideal native coordinate.
			u := (float64(x)+0.5)*scaleX - 0.5 + padX + float64(c.shiftX)
			v := (float64(y)+0.5)*scaleY - 0.5 + padY + float64(c.shiftY)
			// Ideal -> captured coordinate.
			u, v = c.mapping.Distort(u, v)
			px, ok := sampleBilinear(src, u, v, c.opts.Border)
			if !ok {
				filled++
			}
			out.Image.SetRGBA(x, y, px)
		}
	}
	if filled > 0 {
		c.borderFilled.Add(filled)
	}
	return out
}

// sampleBilinear reads the source at a fractional coordinate. Out-of-bounds
// neighbors contribute the border color; ok is false when the coordinate lies
// entirely outside the source.
func sampleBilinear(src *image.RGBA, u, v float64, border color.RGBA) (color.RGBA, bool) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if u < -0.5 || v < -0.5 || u > float64(w)-0.5 || v > float64(h)-0.5 {
		return border, false
	}

	x0 := int(floor(u))
	y0 := int(floor(v))
	fx := u - float64(x0)
	fy := v - float64(y0)

	p00 := texel(src, x0, y0, border)
	p10 := texel(src, x0+1, y0, border)
	p01 := texel(src, x0, y0+1, border)
	p11 := texel(src, x0+1, y0+1, border)

	lerp := func(a, b uint8, t float64) float64 {
		return float64(a) + (float64(b)-float64(a))*t
	}
	mix := func(c00, c10, c01, c11 uint8) uint8 {
		top := lerp(c00, c10, fx)
		bot := lerp(c01, c11, fx)
		return uint8(top + (bot-top)*fy + 0.5)
	}
	return color.RGBA{
		R: mix(p00.R, p10.R, p01.R, p11.R),
		G: mix(p00.G, p10.G, p01.G, p11.G),
		B: mix(p00.B, p10.B, p01.B, p11.B),
		A: mix(p00.A, p10.A, p01.A, p11.A),
	}, true
}

func texel(src *image.RGBA, x, y int, border color.RGBA) color.RGBA {
	b := src.Bounds()
	if x < b.Min.X || y < b.Min.Y || x >= b.Max.X || y >= b.Max.Y {
		return border
	}
	return src.RGBAAt(x, y)
}

func floor(v float64) float64 {
	f := float64(int(v))
	if v < 0 && v != f {
		return f - 1
	}
	return f
}
