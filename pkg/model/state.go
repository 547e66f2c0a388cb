package model

// SourceState represents the lifecycle state of a source.
type SourceState string

const (
	// SourceStateActive means the source is still accepting new jobs.
	SourceStateActive SourceState = "ACTIVE"
	// SourceStateEnded means the stream closed but queued or in-flight
	// jobs may remain.
	SourceStateEnded SourceState = "ENDED"
	// SourceStateDrained is terminal: stream ended, queue empty,
	// nothing in flight. The source is eligible for removal.
	SourceStateDrained SourceState = "DRAINED"
)

// String returns the string representation of the source state.
func (s SourceState) String() string {
	return string(s)
}

// IsTerminal returns true if the source is in a final state.
func (s SourceState) IsTerminal() bool {
	return s == SourceStateDrained
}

// ValidSourceTransitions defines the allowed state transitions for sources.
var ValidSourceTransitions = map[SourceState][]SourceState{
	SourceStateActive: {SourceStateEnded},
	SourceStateEnded:  {SourceStateDrained},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s SourceState) CanTransitionTo(next SourceState) bool {
	for _, allowed := range ValidSourceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ExecutionState represents the outcome of a dispatched job.
type ExecutionState string

const (
	ExecutionStateRunning ExecutionState = "RUNNING"
	ExecutionStateSuccess ExecutionState = "SUCCESS"
	ExecutionStateFailed  ExecutionState = "FAILED"
)

// String returns the string representation of the execution state.
func (s ExecutionState) String() string {
	return string(s)
}

// IsTerminal returns true if the execution is in a final state.
func (s ExecutionState) IsTerminal() bool {
	switch s {
	case ExecutionStateSuccess, ExecutionStateFailed:
		return true
	}
	return false
}
