package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/goflux/internal/scheduler"
	"github.com/me/goflux/pkg/model"
)

const defaultItemBuffer = 64

type createSourceRequest struct {
	Name   string `json:"name"`
	Buffer int    `json:"buffer,omitempty"`
}

type pushJobRequest struct {
	ExecutorType string         `json:"executor_type"`
	Payload      map[string]any `json:"payload"`
	Ordered      bool           `json:"ordered"`
	Signature    string         `json:"signature,omitempty"`

	// Invalid injects a recoverable bad item: the scheduler drops it
	// and the source keeps going.
	Invalid bool `json:"invalid,omitempty"`
	// Fail injects an unrecoverable stream error, ending the source.
	Fail string `json:"fail,omitempty"`
}

// handleCreateSource registers a new source with the Manager.
// POST /api/v1/sources
func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if req.Name == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("missing required field",
			model.FieldError{Field: "name", Message: "name is required"}))
		return
	}
	buffer := req.Buffer
	if buffer <= 0 {
		buffer = defaultItemBuffer
	}

	items := make(chan scheduler.SourceItem, buffer)
	id, err := s.manager.Subscribe(r.Context(), req.Name, items)
	if err != nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewInternalError(err.Error()))
		return
	}

	s.mu.Lock()
	s.feeds[id] = &sourceFeed{name: req.Name, items: items}
	s.mu.Unlock()

	s.logger.Info("source created", "source_id", id, "name", req.Name, "buffer", buffer)
	respondCreated(w, reqID, model.SourceStatus{ID: id, Name: req.Name, State: model.SourceStateActive})
}

// handleListSources returns a consistent snapshot of all live sources.
// GET /api/v1/sources
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	statuses, err := s.manager.Snapshot(r.Context())
	if err != nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewInternalError(err.Error()))
		return
	}
	s.pruneFeeds(statuses)
	respondOK(w, reqID, statuses)
}

// handleGetSource returns one source's status.
// GET /api/v1/sources/{id}
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, err := model.ParseSourceID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid source id"))
		return
	}

	statuses, err := s.manager.Snapshot(r.Context())
	if err != nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewInternalError(err.Error()))
		return
	}
	for _, st := range statuses {
		if st.ID == id {
			executed, err := s.store.CountBySource(r.Context(), id)
			if err != nil {
				respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
				return
			}
			respondOK(w, reqID, sourceDetail{SourceStatus: st, Executions: executed})
			return
		}
	}
	respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("source", id.String()))
}

// sourceDetail extends the live status with the history count.
type sourceDetail struct {
	model.SourceStatus
	Executions int `json:"executions"`
}

// handlePushJob appends one item to a source's stream.
// POST /api/v1/sources/{id}/jobs
func (s *Server) handlePushJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, err := model.ParseSourceID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid source id"))
		return
	}

	var req pushJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if req.Ordered && req.Signature == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("missing required field",
			model.FieldError{Field: "signature", Message: "ordered jobs need a signature"}))
		return
	}

	item := buildItem(req)

	s.mu.Lock()
	feed, ok := s.feeds[id]
	if !ok {
		s.mu.Unlock()
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("source", id.String()))
		return
	}
	if feed.closed {
		s.mu.Unlock()
		respondError(w, reqID, http.StatusConflict, model.NewConflictError("source stream is closed"))
		return
	}
	select {
	case feed.items <- item:
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewInternalError("source buffer full"))
		return
	}

	// An unrecoverable item ends the stream; no further pushes land.
	if item.Err != nil && !model.IsRecoverable(item.Err) {
		s.closeFeed(id)
	}

	respondOK(w, reqID, map[string]any{"source_id": id, "accepted": true})
}

// handleCloseSource ends a source's stream. Queued and in-flight jobs
// still run to completion; the source is removed once drained.
// DELETE /api/v1/sources/{id}
func (s *Server) handleCloseSource(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, err := model.ParseSourceID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid source id"))
		return
	}

	s.mu.Lock()
	feed, ok := s.feeds[id]
	if !ok {
		s.mu.Unlock()
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("source", id.String()))
		return
	}
	if feed.closed {
		s.mu.Unlock()
		respondError(w, reqID, http.StatusConflict, model.NewConflictError("source stream is already closed"))
		return
	}
	feed.closed = true
	close(feed.items)
	s.mu.Unlock()

	s.logger.Info("source closed", "source_id", id)
	respondOK(w, reqID, map[string]any{"source_id": id, "closed": true})
}

func buildItem(req pushJobRequest) scheduler.SourceItem {
	if req.Invalid {
		return scheduler.SourceItem{Err: fmt.Errorf("%w: rejected by producer", model.ErrBadItem)}
	}
	if req.Fail != "" {
		return scheduler.SourceItem{Err: fmt.Errorf("stream failure: %s", req.Fail)}
	}

	workload := model.Independent()
	if req.Ordered {
		workload = model.Sequential(model.Signature(req.Signature))
	}
	return scheduler.SourceItem{Job: model.Job{
		ExecutorType: model.ExecutorType(req.ExecutorType),
		Payload:      req.Payload,
		Workload:     workload,
	}}
}

func (s *Server) closeFeed(id model.SourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if feed, ok := s.feeds[id]; ok && !feed.closed {
		feed.closed = true
		close(feed.items)
	}
}

// pruneFeeds drops feed entries whose sources the Manager has already
// removed, using the snapshot as the authoritative live set.
func (s *Server) pruneFeeds(statuses []model.SourceStatus) {
	live := make(map[model.SourceID]struct{}, len(statuses))
	for _, st := range statuses {
		live[st.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, feed := range s.feeds {
		if _, ok := live[id]; !ok && feed.closed {
			delete(s.feeds, id)
		}
	}
}
