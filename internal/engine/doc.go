// Package engine wraps the external media tools behind narrow interfaces.
//
// The pipeline never constructs ffmpeg invocations itself. It asks an Engine
// to probe containers, open frame Decoders, and open output Sinks, and works
// purely in decoded RGBA frames between the two. This keeps every stage
// testable with in-memory fakes and confines process management to one
// package.
//
// Sinks write to a hidden partial file and only move it to the final path in
// Finalize, so an interrupted run never leaves output that looks complete.
package engine
