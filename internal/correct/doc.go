// Package correct transforms one eye's raw frames into corrected frames at
// the canonical size.
//
// A Corrector applies, in order: inverse-distortion resampling through the
// geometry mapping (bilinear, border fill for out-of-bounds sources), the rig
// offset as an integer pixel shift, and a center crop or bilinear upscale to
// the canonical frame size. Correctors hold only read-only configuration plus
// a border-fill counter, so one corrector per eye can run on its own worker
// without shared mutable state.
package correct
