package pipeline

// State is the lifecycle state of one Processor.
//
// Idle -> Processing on stream start, Processing -> Idle on end-of-stream.
// Configuration failures move Processing -> Error; only an explicit Reset
// leaves Error. Per-frame failures never change state.
type State int

const (
	// StateIdle means no stream is active.
	StateIdle State = iota
	// StateProcessing means frames are being accepted.
	StateProcessing
	// StateError means a configuration failure stopped the stream.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateError:
		return "error"
	}
	return "unknown"
}
