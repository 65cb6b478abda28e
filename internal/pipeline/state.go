package pipeline

// State names a phase of a production run. A run moves through the working
// states in order, never re-entering one, and ends in exactly one of the
// terminal states.
type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateCorrecting  State = "correcting"
	StateCompositing State = "compositing"
	StateTranscoding State = "transcoding"
	StateDone        State = "done"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Diagnostics accumulates per-run counters. Counters are facts about the
// run, not errors: a desync drop is expected behavior for cameras started
// by hand.
type Diagnostics struct {
	FramesPaired    int   `json:"frames_paired"`
	DesyncDropped   int   `json:"desync_dropped"`
	UnmatchedRight  int   `json:"unmatched_right"`
	TrailingDropped int   `json:"trailing_dropped"`
	BorderFilled    int64 `json:"border_filled"`
	FramesEncoded   int64 `json:"frames_encoded"`
	ElapsedMillis   int64 `json:"elapsed_millis"`
}

// Outcome is the terminal report of a run.
type Outcome struct {
	State State `json:"state"`
	// FailedStage is the stage that produced the terminal error. Empty for
	// successful runs.
	FailedStage State       `json:"failed_stage,omitempty"`
	OutputPath  string      `json:"output_path,omitempty"`
	Diagnostics Diagnostics `json:"diagnostics"`
}
