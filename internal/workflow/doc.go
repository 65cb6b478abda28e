// Package workflow drains the batch queue through the pipeline.
//
// The Manager claims pending items one at a time, stamps each run with a
// correlation ID, hands the item to the handler for its kind, and persists
// the terminal outcome with its diagnostics. Batch runs are single-pass:
// the queue is drained and the manager returns a summary rather than
// polling forever.
package workflow
