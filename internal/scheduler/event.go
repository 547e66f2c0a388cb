package scheduler

import "github.com/me/goflux/pkg/model"

// event is the tagged sum carried on the Manager's fan-in channel.
// Any number of producers write it (one pump per source, the
// registration path, dispatch goroutines); the Manager loop is the
// sole reader. The channel holds no scheduling policy.
type event interface{ isEvent() }

// newSourceEvent asks the Manager to register a source and subscribe
// its item stream. The allocated id is sent on reply.
type newSourceEvent struct {
	name  string
	items <-chan SourceItem
	reply chan<- model.SourceID
}

// itemEvent carries one stream element tagged with its owning source.
// item.Err, when set, is always recoverable: the pump converts
// unrecoverable errors into sourceEndedEvent instead.
type itemEvent struct {
	sourceID model.SourceID
	item     SourceItem
}

// sourceEndedEvent is the single terminal event emitted when a
// source's stream closes or fails unrecoverably.
type sourceEndedEvent struct {
	sourceID model.SourceID
}

// completionEvent reports that a dispatched job finished.
type completionEvent struct {
	completion model.Completion
}

// snapshotEvent asks the loop for a point-in-time view of all sources.
type snapshotEvent struct {
	reply chan<- []model.SourceStatus
}

func (newSourceEvent) isEvent()   {}
func (itemEvent) isEvent()        {}
func (sourceEndedEvent) isEvent() {}
func (completionEvent) isEvent()  {}
func (snapshotEvent) isEvent()    {}

// pump forwards one source's item stream into the event channel,
// tagging every element with the source id. It emits exactly one
// sourceEndedEvent — on stream close, on an unrecoverable item error,
// or on a panic in the stream's producer path — and then stops polling.
// A misbehaving source therefore never faults the Manager.
func (m *Manager) pump(id model.SourceID, items <-chan SourceItem) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("source stream panicked", "source_id", id, "panic", r)
		}
		m.send(sourceEndedEvent{sourceID: id})
	}()

	for it := range items {
		if it.Err != nil && !model.IsRecoverable(it.Err) {
			m.logger.Warn("source failed, ending stream", "source_id", id, "error", it.Err)
			return
		}
		if !m.send(itemEvent{sourceID: id, item: it}) {
			return
		}
	}
}

// send delivers an event unless the Manager has stopped. Returns false
// once the loop is gone so producers can bail out.
func (m *Manager) send(ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.doneCh:
		return false
	}
}
