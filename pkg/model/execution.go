package model

import "time"

// ExecutionDetails carries the result of running one job's payload.
type ExecutionDetails struct {
	Output   string `json:"output,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exit_code"`
	Err      string `json:"error,omitempty"`
}

// Completion is produced exactly once per dispatched job and delivered
// back to the Manager through the completion channel.
type Completion struct {
	SourceID SourceID         `json:"source_id"`
	JobInfo  JobInfo          `json:"job_info"`
	Details  ExecutionDetails `json:"details"`
}

// Failed returns true if the execution reported an error.
func (c Completion) Failed() bool {
	return c.Details.Err != ""
}

// Execution is one recorded dispatch in the history store.
type Execution struct {
	ID           string           `json:"id"`
	SourceID     SourceID         `json:"source_id"`
	Seq          uint64           `json:"seq"`
	ExecutorType ExecutorType     `json:"executor_type,omitempty"`
	Workload     Workload         `json:"workload"`
	State        ExecutionState   `json:"state"`
	Details      ExecutionDetails `json:"details"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}
