package scheduler

import (
	"fmt"

	"github.com/me/goflux/pkg/model"
)

// pendingJob is a queued job plus its per-source dispatch sequence
// number, assigned at enqueue time so arrival order survives the
// first-eligible scan.
type pendingJob struct {
	seq uint64
	job model.Job
}

// sourceHandler owns one source's pending queue and in-flight
// bookkeeping. It is mutated only by the Manager loop.
//
// Lifecycle: Active (accepting jobs) -> Ended (stream closed, queue or
// in-flight may be non-empty) -> Drained (terminal, eligible for
// registry removal).
type sourceHandler struct {
	name    string
	nextSeq uint64

	pending []pendingJob

	// inflightOrdered maps an ordering signature to the seq of the one
	// sequential job currently running under it. At most one entry per
	// signature ever exists.
	inflightOrdered map[model.Signature]uint64

	// inflightFree holds the seqs of running independent jobs.
	inflightFree map[uint64]struct{}

	ended bool
}

func newSourceHandler(name string) *sourceHandler {
	return &sourceHandler{
		name:            name,
		inflightOrdered: make(map[model.Signature]uint64),
		inflightFree:    make(map[uint64]struct{}),
	}
}

// enqueue appends a job to the pending queue. It does not dispatch.
func (h *sourceHandler) enqueue(job model.Job) {
	if h.ended {
		panic(fmt.Sprintf("scheduler: enqueue on ended source %q", h.name))
	}
	h.nextSeq++
	h.pending = append(h.pending, pendingJob{seq: h.nextSeq, job: job})
}

// tryStartNext scans the pending queue in arrival order and starts the
// first eligible job: independent jobs are always eligible, sequential
// jobs only while no in-flight job holds their signature. The started
// job is removed from the queue, recorded in-flight, and handed to
// start. Returns whether anything was started.
//
// First eligible rather than first queued: a blocked sequential group
// must not starve independent or differently-grouped work queued
// behind it.
func (h *sourceHandler) tryStartNext(start func(seq uint64, job model.Job)) bool {
	for i, p := range h.pending {
		w := p.job.Workload
		if w.Ordered {
			if _, busy := h.inflightOrdered[w.Signature]; busy {
				continue
			}
			h.inflightOrdered[w.Signature] = p.seq
		} else {
			h.inflightFree[p.seq] = struct{}{}
		}

		h.pending = append(h.pending[:i], h.pending[i+1:]...)
		start(p.seq, p.job)
		return true
	}
	return false
}

// onCompletion clears the in-flight record identified by info: by
// signature for sequential jobs, by seq for independent ones. A
// completion that matches no record means the scheduler's own state is
// inconsistent, which is unrecoverable.
func (h *sourceHandler) onCompletion(info model.JobInfo) {
	if info.Workload.Ordered {
		seq, ok := h.inflightOrdered[info.Workload.Signature]
		if !ok || seq != info.Seq {
			panic(fmt.Sprintf("scheduler: completion for unknown sequential job seq=%d sig=%q on source %q",
				info.Seq, info.Workload.Signature, h.name))
		}
		delete(h.inflightOrdered, info.Workload.Signature)
		return
	}
	if _, ok := h.inflightFree[info.Seq]; !ok {
		panic(fmt.Sprintf("scheduler: completion for unknown independent job seq=%d on source %q", info.Seq, h.name))
	}
	delete(h.inflightFree, info.Seq)
}

// markEnded records that no more items will arrive. Queue and in-flight
// state are left to drain naturally.
func (h *sourceHandler) markEnded() {
	h.ended = true
}

// isDrained reports whether the source reached its terminal state:
// stream ended, queue empty, nothing in flight.
func (h *sourceHandler) isDrained() bool {
	return h.ended && len(h.pending) == 0 && h.inflightCount() == 0
}

func (h *sourceHandler) inflightCount() int {
	return len(h.inflightOrdered) + len(h.inflightFree)
}

func (h *sourceHandler) state() model.SourceState {
	switch {
	case h.isDrained():
		return model.SourceStateDrained
	case h.ended:
		return model.SourceStateEnded
	default:
		return model.SourceStateActive
	}
}

func (h *sourceHandler) status(id model.SourceID) model.SourceStatus {
	return model.SourceStatus{
		ID:       id,
		Name:     h.name,
		State:    h.state(),
		Pending:  len(h.pending),
		InFlight: h.inflightCount(),
	}
}
