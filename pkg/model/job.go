package model

import "fmt"

// Signature is an opaque comparable key identifying a serialization
// group. Two sequential jobs from the same source with equal signatures
// must never run concurrently and must start in enqueue order.
type Signature string

// Workload is a Job's concurrency class: independent (no ordering
// constraint) or sequential with a signature.
type Workload struct {
	Ordered   bool      `json:"ordered"`
	Signature Signature `json:"signature,omitempty"`
}

// Independent returns the workload class with no ordering constraint.
func Independent() Workload {
	return Workload{}
}

// Sequential returns the workload class that serializes with all other
// jobs sharing sig on the same source.
func Sequential(sig Signature) Workload {
	return Workload{Ordered: true, Signature: sig}
}

// String returns "independent" or "sequential(<sig>)".
func (w Workload) String() string {
	if !w.Ordered {
		return "independent"
	}
	return fmt.Sprintf("sequential(%s)", w.Signature)
}

// ExecutorType identifies which executor backend runs a Job's payload.
type ExecutorType string

const (
	ExecutorTypeLocal  ExecutorType = "local"
	ExecutorTypeScript ExecutorType = "script"
	ExecutorTypeSleep  ExecutorType = "sleep"
)

// Job is one unit of work produced by a source.
//
// Payload carries the executor-facing description of the work. For
// server-submitted jobs it is a JSON object interpreted by the
// executor named in ExecutorType; embedders driving the Manager
// directly may put anything here that their RunFunc understands.
type Job struct {
	ExecutorType ExecutorType   `json:"executor_type,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	Workload     Workload       `json:"workload"`

	// Run, when non-nil, is executed instead of dispatching through an
	// executor backend. Used by embedders and tests.
	Run RunPayload `json:"-"`
}

// RunPayload is an in-process job body.
type RunPayload func() (ExecutionDetails, error)

// JobInfo locates the in-flight slot a completion belongs to.
// Seq is unique per dispatch within one source; Workload identifies the
// ordering group, if any.
type JobInfo struct {
	Seq      uint64   `json:"seq"`
	Workload Workload `json:"workload"`
}
