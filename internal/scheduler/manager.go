package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/me/goflux/pkg/model"
)

// ErrStopped is returned by Manager calls made after the loop exited.
var ErrStopped = errors.New("scheduler stopped")

// Config holds Manager configuration.
type Config struct {
	// Run executes job payloads that carry no in-process Run body.
	// May be nil when every job provides its own (e.g. library use).
	Run RunFunc

	// Recorder receives dispatch/completion notifications. Optional.
	Recorder Recorder

	// EventBuffer is the capacity of the fan-in event channel.
	EventBuffer int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{EventBuffer: 64}
}

// Manager is the scheduling event loop. It owns the source registry
// and every source handler, consumes multiplexed events one at a time,
// and after every state change sweeps all registered sources to start
// whatever became eligible.
type Manager struct {
	config   Config
	logger   *slog.Logger
	registry *registry
	events   chan event
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a Manager. Start must be called before Subscribe.
func New(cfg Config, logger *slog.Logger) *Manager {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	return &Manager{
		config:   cfg,
		logger:   logger.With("component", "scheduler"),
		registry: newRegistry(),
		events:   make(chan event, cfg.EventBuffer),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the event loop. It blocks until ctx is cancelled or Stop
// is called. The loop suspends only while waiting for the next event;
// handler logic is synchronous and never blocks.
func (m *Manager) Start(ctx context.Context) error {
	m.logger.Info("scheduler started", "event_buffer", m.config.EventBuffer)
	defer close(m.doneCh)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("scheduler stopping (context cancelled)")
			return ctx.Err()
		case <-m.stopCh:
			m.logger.Info("scheduler stopping (stop called)")
			return nil
		case ev := <-m.events:
			m.handleEvent(ctx, ev)
		}
	}
}

// Stop shuts the loop down and waits for it to exit. In-flight jobs
// are not cancelled: a source's hung job keeps its goroutine until it
// returns on its own (known limitation, see package docs).
func (m *Manager) Stop() error {
	close(m.stopCh)
	<-m.doneCh
	return nil
}

// Subscribe registers a new source whose jobs arrive on items, and
// returns its allocated id. Closing items ends the source; it is then
// removed from the registry once its queue and in-flight work drain.
func (m *Manager) Subscribe(ctx context.Context, name string, items <-chan SourceItem) (model.SourceID, error) {
	reply := make(chan model.SourceID, 1)
	select {
	case m.events <- newSourceEvent{name: name, items: items, reply: reply}:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-m.doneCh:
		return 0, ErrStopped
	}

	select {
	case id := <-reply:
		return id, nil
	case <-m.doneCh:
		return 0, ErrStopped
	}
}

// Snapshot returns the current status of every registered source. The
// query runs on the loop itself, so the result is a consistent view.
func (m *Manager) Snapshot(ctx context.Context) ([]model.SourceStatus, error) {
	reply := make(chan []model.SourceStatus, 1)
	select {
	case m.events <- snapshotEvent{reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.doneCh:
		return nil, ErrStopped
	}

	select {
	case statuses := <-reply:
		return statuses, nil
	case <-m.doneCh:
		return nil, ErrStopped
	}
}

func (m *Manager) handleEvent(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case newSourceEvent:
		h := newSourceHandler(ev.name)
		id := m.registry.register(h)
		go m.pump(id, ev.items)
		m.logger.Info("source registered", "source_id", id, "name", ev.name)
		ev.reply <- id

	case itemEvent:
		h := m.registry.mustGet(ev.sourceID)
		if ev.item.Err != nil {
			// Recoverable by contract with the pump: drop and keep going.
			m.logger.Warn("dropping bad item", "source_id", ev.sourceID, "error", ev.item.Err)
			return
		}
		h.enqueue(ev.item.Job)
		m.advance(ctx)

	case sourceEndedEvent:
		h := m.registry.mustGet(ev.sourceID)
		h.markEnded()
		if m.registry.removeIfDrained(ev.sourceID) {
			m.logger.Info("source removed", "source_id", ev.sourceID)
		}
		m.advance(ctx)

	case completionEvent:
		c := ev.completion
		h := m.registry.mustGet(c.SourceID)
		h.onCompletion(c.JobInfo)
		if m.registry.removeIfDrained(c.SourceID) {
			m.logger.Info("source removed", "source_id", c.SourceID)
		}
		m.advance(ctx)

	case snapshotEvent:
		statuses := make([]model.SourceStatus, 0, m.registry.len())
		for _, id := range m.registry.ids() {
			h := m.registry.mustGet(id)
			statuses = append(statuses, h.status(id))
		}
		ev.reply <- statuses

	default:
		panic(fmt.Sprintf("scheduler: unknown event %T", ev))
	}
}

// advance sweeps every registered source and starts all currently
// eligible jobs. Sweeping the whole registry, not just the source the
// event touched, is what guarantees cross-source fairness: a source
// that was ineligible before this event may have become eligible.
func (m *Manager) advance(ctx context.Context) {
	for _, id := range m.registry.ids() {
		h, ok := m.registry.get(id)
		if !ok {
			continue
		}
		for h.tryStartNext(func(seq uint64, job model.Job) {
			m.dispatch(ctx, id, seq, job)
		}) {
		}
	}
}

// dispatch hands a job to its own goroutine and arranges for exactly
// one completion event to come back, whatever the payload does —
// including panicking.
func (m *Manager) dispatch(ctx context.Context, id model.SourceID, seq uint64, job model.Job) {
	info := model.JobInfo{Seq: seq, Workload: job.Workload}
	m.logger.Debug("job dispatched", "source_id", id, "seq", seq, "workload", job.Workload.String())

	go func() {
		execID := "exec_" + uuid.New().String()
		startedAt := time.Now().UTC()

		if m.config.Recorder != nil {
			exec := model.Execution{
				ID:           execID,
				SourceID:     id,
				Seq:          seq,
				ExecutorType: job.ExecutorType,
				Workload:     job.Workload,
				State:        model.ExecutionStateRunning,
				StartedAt:    startedAt,
			}
			if err := m.config.Recorder.JobDispatched(ctx, exec); err != nil {
				m.logger.Error("record dispatch", "execution_id", execID, "error", err)
			}
		}

		details, err := m.runJob(ctx, id, job)
		if err != nil {
			details.Err = err.Error()
			if details.ExitCode == 0 {
				details.ExitCode = 1
			}
		}

		c := model.Completion{SourceID: id, JobInfo: info, Details: details}

		if m.config.Recorder != nil {
			if err := m.config.Recorder.JobCompleted(ctx, execID, c); err != nil {
				m.logger.Error("record completion", "execution_id", execID, "error", err)
			}
		}

		m.send(completionEvent{completion: c})
	}()
}

// runJob executes the payload, preferring an in-process Run body over
// the configured RunFunc. A panic in the payload becomes an error so
// the completion is still delivered.
func (m *Manager) runJob(ctx context.Context, id model.SourceID, job model.Job) (details model.ExecutionDetails, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	if job.Run != nil {
		return job.Run()
	}
	if m.config.Run == nil {
		return model.ExecutionDetails{}, errors.New("no run function configured")
	}
	return m.config.Run(ctx, id, job)
}
