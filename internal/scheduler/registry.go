package scheduler

import (
	"fmt"
	"sort"

	"github.com/me/goflux/pkg/model"
)

// registry maps source ids to their handlers and owns id allocation.
// Ids are monotonic and never reused while the owning source is live.
// Only the Manager loop touches it.
type registry struct {
	nextID  model.SourceID
	sources map[model.SourceID]*sourceHandler
}

func newRegistry() *registry {
	return &registry{sources: make(map[model.SourceID]*sourceHandler)}
}

// register allocates a fresh id and stores the handler. Never fails.
func (r *registry) register(h *sourceHandler) model.SourceID {
	r.nextID++
	r.sources[r.nextID] = h
	return r.nextID
}

func (r *registry) get(id model.SourceID) (*sourceHandler, bool) {
	h, ok := r.sources[id]
	return h, ok
}

// mustGet looks up a source that is required to exist. A miss means
// some component mutated the registry outside the Manager's control;
// continuing with inconsistent scheduling state is unsafe.
func (r *registry) mustGet(id model.SourceID) *sourceHandler {
	h, ok := r.sources[id]
	if !ok {
		panic(fmt.Sprintf("scheduler: source %d missing from registry", id))
	}
	return h
}

// removeIfDrained removes the entry iff the source's stream has ended,
// its queue is empty, and nothing is in flight. Otherwise a no-op.
// Returns whether the entry was removed.
func (r *registry) removeIfDrained(id model.SourceID) bool {
	h, ok := r.sources[id]
	if !ok || !h.isDrained() {
		return false
	}
	delete(r.sources, id)
	return true
}

// ids returns all registered source ids in ascending order, so the
// advance sweep visits sources deterministically.
func (r *registry) ids() []model.SourceID {
	ids := make([]model.SourceID, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *registry) len() int {
	return len(r.sources)
}
