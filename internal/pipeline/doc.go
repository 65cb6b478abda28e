// Package pipeline orchestrates a single stereo production run.
//
// A run is one pass through loading, per-eye correction, composition, and
// output encoding. Stages are connected by bounded channels so memory stays
// proportional to the configured in-flight window, never to clip length.
// Cancellation propagates through the shared context: decoders stop, the
// sink aborts, and the staged partial output is removed.
//
// The orchestrator reports a terminal Outcome with diagnostics rather than
// logging-and-forgetting, so callers (CLI, batch workflow) can persist or
// render the result.
package pipeline
