// Package executor provides the pluggable backends that run job
// payloads. The scheduler itself never knows what a payload means; it
// hands the job to a RunFunc built from a Registry of executors and
// waits for the completion to come back.
package executor

import (
	"context"

	"github.com/me/goflux/pkg/model"
)

// Executor is a pluggable backend that runs job payloads.
type Executor interface {
	// Type returns the executor type identifier.
	Type() model.ExecutorType

	// Execute runs the job's payload to completion and returns its
	// result. It is called on a dispatch goroutine and may block.
	Execute(ctx context.Context, sourceID model.SourceID, job model.Job) (model.ExecutionDetails, error)
}
