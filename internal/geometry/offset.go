package geometry

// Eye identifies one of the two camera views in a stereo pair.
type Eye string

const (
	EyeLeft  Eye = "left"
	EyeRight Eye = "right"
)

// OffsetBearingEye is the eye the rig offset is applied to. The left eye is
// the geometric reference and is never shifted.
const OffsetBearingEye = EyeRight

// RigOffset is the fixed mechanical misalignment between the two cameras in
// the housing. Positive VerticalPixels means the right eye's image must be
// shifted up by that amount to align with the left eye (the right camera sits
// low in the rig). Positive HorizontalPixels shifts the right eye's image
// left.
type RigOffset struct {
	VerticalPixels   int
	HorizontalPixels int
}

// Normalized rounds the vertical error toward zero to an even pixel count so
// the shift stays chroma-subsampling safe downstream.
func (o RigOffset) Normalized() RigOffset {
	o.VerticalPixels = o.VerticalPixels / 2 * 2
	return o
}

// IsZero reports whether the rig is perfectly aligned.
func (o RigOffset) IsZero() bool {
	return o.VerticalPixels == 0 && o.HorizontalPixels == 0
}

// SampleShift returns the source-coordinate delta the corrector adds while
// resampling the given eye. Shifting the right eye's content up by v pixels
// means reading v pixels lower in its source, so the deltas carry the sign of
// the configured offset directly.
func (o RigOffset) SampleShift(eye Eye) (dx, dy int) {
	if eye != OffsetBearingEye {
		return 0, 0
	}
	return o.HorizontalPixels, o.VerticalPixels
}
