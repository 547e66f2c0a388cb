package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/me/goflux/internal/config"
	"github.com/me/goflux/internal/history"
	"github.com/me/goflux/internal/scheduler"
	"github.com/me/goflux/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer wires a real manager and an in-memory history store. Jobs
// echo their payload back instantly.
func testServer(t *testing.T) *Server {
	t.Helper()

	store, err := history.NewSQLiteStore(":memory:", testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	run := func(ctx context.Context, id model.SourceID, job model.Job) (model.ExecutionDetails, error) {
		echo, _ := job.Payload["echo"].(string)
		return model.ExecutionDetails{Output: echo}, nil
	}
	mgr := scheduler.New(scheduler.Config{Run: run, Recorder: store}, testLogger())
	go mgr.Start(context.Background())
	t.Cleanup(func() { mgr.Stop() })

	return New(config.DefaultServerConfig(), store, mgr, testLogger())
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, model.Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var resp model.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope (%s): %v", w.Body.String(), err)
	}
	return w, resp
}

func createSource(t *testing.T, srv *Server, name string) model.SourceID {
	t.Helper()

	w, resp := doJSON(t, srv, http.MethodPost, "/api/v1/sources", map[string]any{"name": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create source: status = %d, body = %s", w.Code, w.Body.String())
	}
	data, _ := json.Marshal(resp.Data)
	var st model.SourceStatus
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("decode source status: %v", err)
	}
	return st.ID
}

// waitExecutions polls the history until n executions reach a terminal
// state or the deadline passes.
func waitExecutions(t *testing.T, srv *Server, n int) []*model.Execution {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w, resp := doJSON(t, srv, http.MethodGet, "/api/v1/executions?limit=100", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("list executions: status = %d", w.Code)
		}
		data, _ := json.Marshal(resp.Data)
		var execs []*model.Execution
		if err := json.Unmarshal(data, &execs); err != nil {
			t.Fatalf("decode executions: %v", err)
		}
		done := 0
		for _, e := range execs {
			if e.State.IsTerminal() {
				done++
			}
		}
		if done >= n {
			return execs
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d terminal executions", n)
	return nil
}

func TestCreatePushAndComplete(t *testing.T) {
	srv := testServer(t)

	id := createSource(t, srv, "api-test")

	w, _ := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/v1/sources/%s/jobs", id), map[string]any{
		"payload": map[string]any{"echo": "hello"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("push job: status = %d, body = %s", w.Code, w.Body.String())
	}

	execs := waitExecutions(t, srv, 1)
	if execs[0].State != model.ExecutionStateSuccess {
		t.Errorf("state = %s, want SUCCESS", execs[0].State)
	}
	if execs[0].Details.Output != "hello" {
		t.Errorf("output = %q, want %q", execs[0].Details.Output, "hello")
	}
	if execs[0].SourceID != id {
		t.Errorf("source id = %s, want %s", execs[0].SourceID, id)
	}
}

func TestCreateSourceValidation(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, http.MethodPost, "/api/v1/sources", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != model.ErrValidation {
		t.Fatalf("error = %+v, want VALIDATION_ERROR", resp.Error)
	}
}

func TestPushToUnknownSource(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, http.MethodPost, "/api/v1/sources/999/jobs", map[string]any{
		"payload": map[string]any{"echo": "x"},
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != model.ErrNotFound {
		t.Fatalf("error = %+v, want NOT_FOUND", resp.Error)
	}
}

func TestOrderedJobNeedsSignature(t *testing.T) {
	srv := testServer(t)
	id := createSource(t, srv, "sig-test")

	w, _ := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/v1/sources/%s/jobs", id), map[string]any{
		"ordered": true,
		"payload": map[string]any{"echo": "x"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCloseSourceRejectsFurtherPushes(t *testing.T) {
	srv := testServer(t)
	id := createSource(t, srv, "close-test")

	w, _ := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/sources/%s", id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("close: status = %d", w.Code)
	}

	w, resp := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/v1/sources/%s/jobs", id), map[string]any{
		"payload": map[string]any{"echo": "late"},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("push after close: status = %d, want 409", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != model.ErrConflict {
		t.Fatalf("error = %+v, want CONFLICT", resp.Error)
	}
}

func TestInvalidItemIsSkipped(t *testing.T) {
	srv := testServer(t)
	id := createSource(t, srv, "bad-item-test")
	base := fmt.Sprintf("/api/v1/sources/%s/jobs", id)

	if w, _ := doJSON(t, srv, http.MethodPost, base, map[string]any{"invalid": true}); w.Code != http.StatusOK {
		t.Fatalf("push invalid: status = %d", w.Code)
	}
	if w, _ := doJSON(t, srv, http.MethodPost, base, map[string]any{
		"payload": map[string]any{"echo": "survivor"},
	}); w.Code != http.StatusOK {
		t.Fatalf("push: status = %d", w.Code)
	}

	execs := waitExecutions(t, srv, 1)
	if len(execs) != 1 {
		t.Fatalf("executions = %d, want 1 (bad item skipped)", len(execs))
	}
	if execs[0].Details.Output != "survivor" {
		t.Errorf("output = %q, want %q", execs[0].Details.Output, "survivor")
	}
}

func TestStreamFailureEndsSource(t *testing.T) {
	srv := testServer(t)
	id := createSource(t, srv, "fail-test")
	base := fmt.Sprintf("/api/v1/sources/%s/jobs", id)

	if w, _ := doJSON(t, srv, http.MethodPost, base, map[string]any{"fail": "upstream gone"}); w.Code != http.StatusOK {
		t.Fatalf("push fail item: status = %d", w.Code)
	}

	// The stream is closed server-side; further pushes conflict.
	if w, _ := doJSON(t, srv, http.MethodPost, base, map[string]any{
		"payload": map[string]any{"echo": "x"},
	}); w.Code != http.StatusConflict {
		t.Fatalf("push after failure: status = %d, want 409", w.Code)
	}

	// Eventually the source drains out of the live snapshot.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w, resp := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/sources/%s", id), nil)
		if w.Code == http.StatusNotFound {
			return
		}
		if w.Code != http.StatusOK {
			t.Fatalf("get source: status = %d, resp = %+v", w.Code, resp)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("source never drained after stream failure")
}

func TestListExecutionsPaginationEnvelope(t *testing.T) {
	srv := testServer(t)
	id := createSource(t, srv, "pages")

	for i := 0; i < 3; i++ {
		w, _ := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/v1/sources/%s/jobs", id), map[string]any{
			"payload": map[string]any{"echo": "n"},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("push job: status = %d", w.Code)
		}
	}
	waitExecutions(t, srv, 3)

	_, resp := doJSON(t, srv, http.MethodGet, "/api/v1/executions?limit=2", nil)
	if resp.Pagination == nil {
		t.Fatal("list response missing pagination block")
	}
	if resp.Pagination.Total != 3 || resp.Pagination.Limit != 2 {
		t.Errorf("pagination = %+v, want total 3 limit 2", resp.Pagination)
	}
	if !resp.Pagination.HasMore {
		t.Error("has_more = false for a partial first page")
	}

	_, resp = doJSON(t, srv, http.MethodGet, "/api/v1/executions?limit=2&offset=2", nil)
	if resp.Pagination == nil || resp.Pagination.HasMore {
		t.Errorf("pagination = %+v, want has_more false on final page", resp.Pagination)
	}
}

func TestGetExecutionNotFound(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, http.MethodGet, "/api/v1/executions/exec_missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHealthAndDiscovery(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: status = %d", w.Code)
	}
	if resp.Status != "ok" {
		t.Errorf("envelope status = %q, want ok", resp.Status)
	}

	w, _ = doJSON(t, srv, http.MethodGet, "/api/v1/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("discovery: status = %d", w.Code)
	}
}

func TestListSourcesSnapshot(t *testing.T) {
	srv := testServer(t)

	createSource(t, srv, "one")
	createSource(t, srv, "two")

	w, resp := doJSON(t, srv, http.MethodGet, "/api/v1/sources", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data, _ := json.Marshal(resp.Data)
	var statuses []model.SourceStatus
	if err := json.Unmarshal(data, &statuses); err != nil {
		t.Fatalf("decode statuses: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("sources = %d, want 2", len(statuses))
	}
	for _, st := range statuses {
		if st.State != model.SourceStateActive {
			t.Errorf("source %s state = %s, want ACTIVE", st.ID, st.State)
		}
	}
}
