package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProfile indicates unusable calibration data. The pipeline refuses
// to start when either eye's profile fails validation.
var ErrInvalidProfile = errors.New("invalid camera profile")

// maxCoefficients is the number of radial terms the Brown model supports here.
const maxCoefficients = 3

// Point is a 2D position in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// CameraProfile describes one eye's lens. Coefficients are the radial
// distortion terms k1..k3; PrincipalPoint is the optical center in pixels
// (zero means "use the frame center"); FocalLength is in pixels.
type CameraProfile struct {
	Coefficients   []float64
	PrincipalPoint Point
	FocalLength    float64
}

// Validate checks the profile against the chosen distortion model.
func (p CameraProfile) Validate() error {
	if len(p.Coefficients) > maxCoefficients {
		return fmt.Errorf("%w: %d coefficients, model supports at most %d", ErrInvalidProfile, len(p.Coefficients), maxCoefficients)
	}
	for i, k := range p.Coefficients {
		if math.IsNaN(k) || math.IsInf(k, 0) {
			return fmt.Errorf("%w: coefficient k%d is not finite", ErrInvalidProfile, i+1)
		}
	}
	if math.IsNaN(p.FocalLength) || math.IsInf(p.FocalLength, 0) || p.FocalLength < 0 {
		return fmt.Errorf("%w: focal length %v", ErrInvalidProfile, p.FocalLength)
	}
	if p.FocalLength == 0 && p.hasDistortion() {
		return fmt.Errorf("%w: focal length required when distortion coefficients are set", ErrInvalidProfile)
	}
	return nil
}

func (p CameraProfile) hasDistortion() bool {
	for _, k := range p.Coefficients {
		if k != 0 {
			return true
		}
	}
	return false
}

// IsIdentity reports whether the profile describes a distortion-free lens.
func (p CameraProfile) IsIdentity() bool {
	return !p.hasDistortion()
}
