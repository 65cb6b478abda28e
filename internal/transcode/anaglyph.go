package transcode

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ColorMapping defines an anaglyph recombination: for each output RGB
// channel, the contribution of the left and right eye's RGB channels. Rows
// are output channels (R, G, B); columns are the input channels of that eye.
type ColorMapping struct {
	Name  string
	Left  [3][3]float64
	Right [3][3]float64
}

// MappingRedCyan is the classic red/cyan selection: the left eye supplies
// the red channel, the right eye supplies green and blue. A pure red left
// half over a pure cyan right half reconstructs white.
func MappingRedCyan() ColorMapping {
	return ColorMapping{
		Name: "red-cyan",
		Left: [3][3]float64{
			{1, 0, 0},
		},
		Right: [3][3]float64{
			{},
			{0, 1, 0},
			{0, 0, 1},
		},
	}
}

// MappingGray converts both eyes to luma before channel selection, trading
// color fidelity for reduced retinal rivalry.
func MappingGray() ColorMapping {
	l := [3]float64{0.299, 0.587, 0.114}
	return ColorMapping{
		Name: "gray",
		Left: [3][3]float64{
			l,
		},
		Right: [3][3]float64{
			{},
			l,
			l,
		},
	}
}

// MappingHalfColor keeps the right eye in full color and sends left-eye luma
// to the red channel.
func MappingHalfColor() ColorMapping {
	return ColorMapping{
		Name: "half-color",
		Left: [3][3]float64{
			{0.299, 0.587, 0.114},
		},
		Right: [3][3]float64{
			{},
			{0, 1, 0},
			{0, 0, 1},
		},
	}
}

// MappingDubois is the least-squares red/cyan mapping by Eric Dubois, which
// minimizes perceived color error through the filter glasses.
func MappingDubois() ColorMapping {
	return ColorMapping{
		Name: "dubois",
		Left: [3][3]float64{
			{0.456, 0.500, 0.176},
			{-0.040, -0.038, -0.016},
			{-0.015, -0.021, -0.005},
		},
		Right: [3][3]float64{
			{-0.043, -0.088, -0.002},
			{0.378, 0.734, -0.018},
			{-0.072, -0.113, 1.226},
		},
	}
}

// ParseMapping resolves a mapping preset name.
func ParseMapping(name string) (ColorMapping, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "red-cyan", "redcyan":
		return MappingRedCyan(), nil
	case "gray", "grey":
		return MappingGray(), nil
	case "half-color", "halfcolor":
		return MappingHalfColor(), nil
	case "dubois":
		return MappingDubois(), nil
	default:
		return ColorMapping{}, fmt.Errorf("unknown anaglyph mapping %q", name)
	}
}

// MappingNames lists the available presets in display order.
func MappingNames() []string {
	return []string{"red-cyan", "gray", "half-color", "dubois"}
}

// matrices returns the mapping as dense matrices for validation and display.
func (m ColorMapping) matrices() (left, right *mat.Dense) {
	flat := func(src [3][3]float64) *mat.Dense {
		data := make([]float64, 0, 9)
		for _, row := range src {
			data = append(data, row[0], row[1], row[2])
		}
		return mat.NewDense(3, 3, data)
	}
	return flat(m.Left), flat(m.Right)
}

// Validate rejects mappings with non-finite entries or a row gain large
// enough to clip midtones.
func (m ColorMapping) Validate() error {
	left, right := m.matrices()
	for _, dense := range []*mat.Dense{left, right} {
		r, c := dense.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if v := dense.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("anaglyph mapping %q has non-finite entry at (%d,%d)", m.Name, i, j)
				}
			}
		}
	}
	// Combined per-channel gain: sum of one row across both eyes.
	var combined mat.Dense
	combined.Add(left, right)
	for i := 0; i < 3; i++ {
		gain := 0.0
		for j := 0; j < 3; j++ {
			gain += combined.At(i, j)
		}
		if gain > 1.5 {
			return fmt.Errorf("anaglyph mapping %q channel %d gain %.3f exceeds 1.5", m.Name, i, gain)
		}
	}
	return nil
}

// Describe renders the mixing matrices for inspection (CLI `formats`).
func (m ColorMapping) Describe() string {
	left, right := m.matrices()
	return fmt.Sprintf("%s\n  left:\n%v\n  right:\n%v",
		m.Name,
		mat.Formatted(left, mat.Prefix("    "), mat.Squeeze()),
		mat.Formatted(right, mat.Prefix("    "), mat.Squeeze()))
}
