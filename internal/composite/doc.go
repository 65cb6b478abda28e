// Package composite aligns the two corrected eye streams in time and stacks
// each matched pair onto a single side-by-side canvas.
//
// Pairing is by nearest timestamp within a configurable tolerance window,
// never by ordinal frame index; left frames with no right frame inside the
// window are dropped and counted rather than merged with a mismatched frame.
// The join consumes both streams in order and buffers at most one pending
// right frame, so memory stays bounded regardless of stream length.
package composite
