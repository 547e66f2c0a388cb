package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/me/goflux/pkg/model"
)

// handleListExecutions returns recorded executions newest-first.
// GET /api/v1/executions?limit=&offset=&state=&source_id=
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts := listOptionsFromQuery(r)
	execs, total, err := s.store.ListExecutions(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	respondPage(w, reqID, execs, len(execs), total, opts)
}

// handleGetExecution returns one execution record.
// GET /api/v1/executions/{id}
func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	exec, err := s.store.GetExecution(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if exec == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("execution", id))
		return
	}
	respondOK(w, reqID, exec)
}

func listOptionsFromQuery(r *http.Request) model.ListOptions {
	opts := model.DefaultListOptions()
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}
	opts.State = q.Get("state")
	opts.SourceID = q.Get("source_id")
	opts.Clamp()
	return opts
}
