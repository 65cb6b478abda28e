package geometry

import (
	"fmt"
	"math"
)

// Mapping converts between ideal (rectilinear) and distorted pixel
// coordinates for one eye. It is a pure value; methods have no side effects
// and are safe for concurrent use.
type Mapping struct {
	k1, k2, k3 float64
	center     Point
	focal      float64
}

// NewMapping builds a coordinate mapping for the given profile. The frame
// dimensions supply the default principal point (frame center) and focal
// length (frame width) when the profile leaves them zero.
func NewMapping(profile CameraProfile, width, height int) (*Mapping, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: mapping requires positive frame dimensions, got %dx%d", ErrInvalidProfile, width, height)
	}
	m := &Mapping{
		center: profile.PrincipalPoint,
		focal:  profile.FocalLength,
	}
	coeffs := profile.Coefficients
	if len(coeffs) > 0 {
		m.k1 = coeffs[0]
	}
	if len(coeffs) > 1 {
		m.k2 = coeffs[1]
	}
	if len(coeffs) > 2 {
		m.k3 = coeffs[2]
	}
	if m.center.X == 0 && m.center.Y == 0 {
		m.center = Point{X: float64(width-1) / 2, Y: float64(height-1) / 2}
	}
	if m.focal == 0 {
		m.focal = float64(width)
	}
	return m, nil
}

// Identity reports whether the mapping leaves coordinates unchanged.
func (m *Mapping) Identity() bool {
	return m.k1 == 0 && m.k2 == 0 && m.k3 == 0
}

// Distort maps an ideal pixel coordinate to the coordinate it occupies in the
// captured (lens-distorted) image. This is the direction the corrector samples
// in: for each undistorted output pixel, read the source at Distort(x, y).
func (m *Mapping) Distort(x, y float64) (float64, float64) {
	if m.Identity() {
		return x, y
	}
	nx := (x - m.center.X) / m.focal
	ny := (y - m.center.Y) / m.focal
	r2 := nx*nx + ny*ny
	scale := 1 + r2*(m.k1+r2*(m.k2+r2*m.k3))
	return m.center.X + nx*scale*m.focal, m.center.Y + ny*scale*m.focal
}

// Undistort maps a distorted pixel coordinate back to its ideal position by
// inverting the radial model with Newton iteration on the normalized radius.
func (m *Mapping) Undistort(x, y float64) (float64, float64) {
	if m.Identity() {
		return x, y
	}
	nx := (x - m.center.X) / m.focal
	ny := (y - m.center.Y) / m.focal
	rd := math.Hypot(nx, ny)
	if rd == 0 {
		return x, y
	}
	r := m.invertRadius(rd)
	scale := r / rd
	return m.center.X + nx*scale*m.focal, m.center.Y + ny*scale*m.focal
}

// invertRadius solves r * (1 + k1 r^2 + k2 r^4 + k3 r^6) = rd for r.
func (m *Mapping) invertRadius(rd float64) float64 {
	r := rd
	for i := 0; i < 20; i++ {
		r2 := r * r
		f := r*(1+r2*(m.k1+r2*(m.k2+r2*m.k3))) - rd
		df := 1 + r2*(3*m.k1+r2*(5*m.k2+r2*7*m.k3))
		if df == 0 {
			break
		}
		next := r - f/df
		if math.Abs(next-r) < 1e-12 {
			return next
		}
		r = next
	}
	return r
}
