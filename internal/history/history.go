// Package history records finished and in-flight job executions for
// observability. Pending work is deliberately never persisted: the
// scheduler's queues are in-memory only, and the history store is an
// audit surface, not a recovery mechanism.
package history

import (
	"context"

	"github.com/me/goflux/pkg/model"
)

// Store defines the persistence layer for execution records. It also
// satisfies the scheduler's Recorder interface, so a Store can be
// plugged straight into the Manager.
type Store interface {
	// JobDispatched records a new execution in the RUNNING state.
	JobDispatched(ctx context.Context, exec model.Execution) error

	// JobCompleted finalizes the execution's state and details.
	JobCompleted(ctx context.Context, execID string, c model.Completion) error

	// GetExecution returns one execution, or nil if unknown.
	GetExecution(ctx context.Context, id string) (*model.Execution, error)

	// ListExecutions returns executions newest-first with optional
	// state and source filters, plus the unpaginated total.
	ListExecutions(ctx context.Context, opts model.ListOptions) ([]*model.Execution, int, error)

	// ListExecutionsAfter returns executions recorded after the given
	// cursor in insertion order, along with the new cursor. A zero
	// cursor starts from the beginning.
	ListExecutionsAfter(ctx context.Context, cursor int64) ([]*model.Execution, int64, error)

	// CountBySource returns how many executions a source has recorded.
	CountBySource(ctx context.Context, id model.SourceID) (int, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
