package transcode

import (
	"fmt"
	"strings"
)

// Kind names a derived stereo format.
type Kind string

const (
	KindAnaglyph     Kind = "anaglyph"
	KindInterlaced   Kind = "interlaced"
	KindCheckerboard Kind = "checkerboard"
	KindStereoscope  Kind = "stereoscope"
)

// RowParity selects which eye supplies the even rows of an interlaced frame.
type RowParity string

const (
	ParityLeftEven  RowParity = "left-even"
	ParityRightEven RowParity = "right-even"
)

// FormatSpec is the tagged variant describing how a composite frame's halves
// recombine into one output frame.
type FormatSpec struct {
	Kind Kind
	// Mapping applies to KindAnaglyph.
	Mapping ColorMapping
	// Parity applies to KindInterlaced.
	Parity RowParity
	// CenterGap applies to KindStereoscope: black pixels separating the two
	// cropped views. Rounded down to a multiple of 8 during validation.
	CenterGap int
}

// OutputTag is the filename tag appended to derived outputs, e.g.
// "clip (Anaglyph).mp4".
func (s FormatSpec) OutputTag() string {
	switch s.Kind {
	case KindAnaglyph:
		return "Anaglyph"
	case KindInterlaced:
		return "Interlaced"
	case KindCheckerboard:
		return "Checkerboard"
	case KindStereoscope:
		return "Stereoscope"
	default:
		return string(s.Kind)
	}
}

// ParseKind resolves a format name from configuration or CLI flags.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindAnaglyph:
		return KindAnaglyph, nil
	case KindInterlaced:
		return KindInterlaced, nil
	case KindCheckerboard:
		return KindCheckerboard, nil
	case KindStereoscope:
		return KindStereoscope, nil
	default:
		return "", fmt.Errorf("unknown stereo format %q", value)
	}
}

// ParseParity resolves a row parity name.
func ParseParity(value string) (RowParity, error) {
	switch RowParity(strings.ToLower(strings.TrimSpace(value))) {
	case ParityLeftEven, "":
		return ParityLeftEven, nil
	case ParityRightEven:
		return ParityRightEven, nil
	default:
		return "", fmt.Errorf("unknown row parity %q", value)
	}
}

// Normalize applies defaulting and rounding rules; Validate reports
// unusable specs.
func (s FormatSpec) Normalize() FormatSpec {
	if s.Kind == KindAnaglyph && s.Mapping.Name == "" {
		s.Mapping = MappingRedCyan()
	}
	if s.Kind == KindInterlaced && s.Parity == "" {
		s.Parity = ParityLeftEven
	}
	if s.CenterGap < 0 {
		s.CenterGap = 0
	}
	s.CenterGap = s.CenterGap / 8 * 8
	return s
}

// Validate reports whether the spec is internally consistent.
func (s FormatSpec) Validate() error {
	switch s.Kind {
	case KindAnaglyph:
		return s.Mapping.Validate()
	case KindInterlaced:
		if s.Parity != ParityLeftEven && s.Parity != ParityRightEven {
			return fmt.Errorf("interlaced format requires a row parity, got %q", s.Parity)
		}
	case KindCheckerboard:
	case KindStereoscope:
		if s.CenterGap%8 != 0 {
			return fmt.Errorf("stereoscope center gap must be a multiple of 8, got %d", s.CenterGap)
		}
	default:
		return fmt.Errorf("unknown stereo format %q", s.Kind)
	}
	return nil
}
