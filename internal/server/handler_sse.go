package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/me/goflux/pkg/model"
)

// handleSSEExecutions streams execution records via Server-Sent Events.
// The feed replays everything past the given cursor, then polls the
// store for new records until the client disconnects.
// GET /api/v1/sse/executions?cursor=N
func (s *Server) handleSSEExecutions(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var cursor int64
	if v := r.URL.Query().Get("cursor"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid cursor"))
			return
		}
		cursor = n
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Replay records already past the cursor.
	cursor, err := s.streamNew(w, flusher, r, cursor)
	if err != nil {
		s.logger.Debug("sse client disconnected", "error", err)
		return
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			next, err := s.streamNew(w, flusher, r, cursor)
			if err != nil {
				s.logger.Debug("sse client disconnected", "error", err)
				return
			}
			if next == cursor {
				// Heartbeat so idle connections stay alive.
				fmt.Fprintf(w, ": heartbeat\n\n")
				flusher.Flush()
			}
			cursor = next
		}
	}
}

// streamNew sends every record past the cursor and returns the new
// cursor. Store errors are logged and skipped so a transient failure
// does not kill the stream.
func (s *Server) streamNew(w http.ResponseWriter, flusher http.Flusher, r *http.Request, cursor int64) (int64, error) {
	execs, next, err := s.store.ListExecutionsAfter(r.Context(), cursor)
	if err != nil {
		s.logger.Error("sse fetch error", "cursor", cursor, "error", err)
		return cursor, nil
	}
	for _, exec := range execs {
		if err := sendSSEEvent(w, flusher, "execution", exec); err != nil {
			return cursor, err
		}
	}
	return next, nil
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	if err != nil {
		return err
	}

	flusher.Flush()
	return nil
}
