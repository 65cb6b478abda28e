// Package transcode derives single-stream stereo presentation formats from a
// side-by-side master.
//
// Each FormatSpec variant (anaglyph, interlaced, checkerboard, stereoscope)
// is a pure per-frame function: the same composite frame and spec always
// yield a byte-identical output frame. Anaglyph channel selection is an
// explicit, inspectable pair of 3x3 mixing matrices rather than a hidden
// constant, because different source material calls for different mappings.
package transcode
