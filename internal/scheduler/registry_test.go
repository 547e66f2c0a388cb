package scheduler

import (
	"testing"

	"github.com/me/goflux/pkg/model"
)

func TestRegistryMonotonicIDs(t *testing.T) {
	r := newRegistry()

	a := r.register(newSourceHandler("a"))
	b := r.register(newSourceHandler("b"))
	if b <= a {
		t.Fatalf("ids not monotonic: %d then %d", a, b)
	}

	// Removing a source must not cause id reuse.
	h, _ := r.get(a)
	h.markEnded()
	if !r.removeIfDrained(a) {
		t.Fatal("drained source not removed")
	}
	c := r.register(newSourceHandler("c"))
	if c <= b {
		t.Fatalf("id %d reused after removal", c)
	}
}

func TestRegistryRemoveIfDrainedNoOp(t *testing.T) {
	r := newRegistry()
	id := r.register(newSourceHandler("busy"))

	h := r.mustGet(id)
	h.enqueue(freeJob())

	// Active source: no-op.
	if r.removeIfDrained(id) {
		t.Fatal("removed a source that is still active")
	}

	// Ended but queue non-empty: still a no-op.
	h.markEnded()
	if r.removeIfDrained(id) {
		t.Fatal("removed a source with pending work")
	}
	if _, ok := r.get(id); !ok {
		t.Fatal("source vanished from registry")
	}
}

func TestRegistryMustGetPanicsOnMissing(t *testing.T) {
	r := newRegistry()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for missing source")
		}
	}()
	r.mustGet(model.SourceID(404))
}

func TestRegistryIDsSorted(t *testing.T) {
	r := newRegistry()
	for i := 0; i < 5; i++ {
		r.register(newSourceHandler("s"))
	}
	ids := r.ids()
	if len(ids) != 5 {
		t.Fatalf("len(ids) = %d, want 5", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids not ascending: %v", ids)
		}
	}
}
