// Package scheduler is the GoFlux core: it accepts any number of
// independently-produced job streams ("sources"), decides which jobs
// may run now versus must wait, dispatches eligible jobs, and reacts
// to completions to unblock further work.
//
// Two guarantees hold under concurrency:
//
//   - No source is starved or blocked by another source's slow or hung
//     work.
//   - Within a single source, sequential jobs sharing an ordering
//     signature start in enqueue order and never overlap, while
//     unrelated jobs run in parallel.
//
// All scheduling state (registry, per-source handlers) is owned by the
// Manager's event loop and never touched off it, so none of it is
// locked. Job execution is fire-and-forget: payloads run on their own
// goroutines and report back through the Manager's event channel.
package scheduler

import (
	"context"

	"github.com/me/goflux/pkg/model"
)

// SourceItem is one element of a source's item stream: either a job or
// an error. Closing the stream channel signals end of stream.
//
// An Err wrapping model.ErrBadItem is recoverable: the item is dropped
// and the stream keeps going. Any other error is unrecoverable and
// ends the source.
type SourceItem struct {
	Job model.Job
	Err error
}

// RunFunc executes one job's payload. It is invoked on a dedicated
// goroutine and may block; the scheduler never waits on it.
type RunFunc func(ctx context.Context, sourceID model.SourceID, job model.Job) (model.ExecutionDetails, error)

// Recorder observes dispatches and completions, e.g. for the execution
// history store. Calls happen on dispatch goroutines, never on the
// Manager loop. A nil Recorder disables recording.
type Recorder interface {
	JobDispatched(ctx context.Context, exec model.Execution) error
	JobCompleted(ctx context.Context, execID string, c model.Completion) error
}
