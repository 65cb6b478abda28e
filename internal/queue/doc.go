// Package queue persists batch jobs in a SQLite database.
//
// Each item is one pipeline run (a merge of a capture pair or a format
// conversion) with its status, failing stage, and the run diagnostics as
// JSON. A file lock next to the database keeps concurrent batch runners off
// the same queue directory; the schema carries a version so incompatible
// databases fail loudly instead of misbehaving.
package queue
