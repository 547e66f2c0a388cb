package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/me/goflux/internal/config"
	"github.com/me/goflux/internal/executor"
	"github.com/me/goflux/internal/history"
	"github.com/me/goflux/internal/scheduler"
	"github.com/me/goflux/internal/server"
)

// startTestServer starts a full server (manager, sleep executor,
// in-memory history) and returns its URL.
func startTestServer(t *testing.T) string {
	t.Helper()
	srvLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := history.NewSQLiteStore(":memory:", srvLogger)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	reg := executor.NewRegistry(srvLogger)
	reg.Register(executor.NewSleepExecutor(srvLogger))

	mgr := scheduler.New(scheduler.Config{Run: reg.Run, Recorder: st}, srvLogger)
	go mgr.Start(context.Background())
	t.Cleanup(func() { mgr.Stop() })

	srv := server.New(config.DefaultServerConfig(), st, mgr, srvLogger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)

	// Command bodies print with fmt.Printf, so capture stdout too.
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := root.Execute()

	w.Close()
	os.Stdout = old

	var out bytes.Buffer
	out.ReadFrom(r)
	return out.String() + buf.String(), err
}

func TestSourceCreateAndList(t *testing.T) {
	url := startTestServer(t)

	output, err := runCLI(t, "--server", url, "source", "create", "ingest")
	if err != nil {
		t.Fatalf("source create error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Source created: 1") {
		t.Errorf("expected 'Source created: 1' in output, got: %s", output)
	}

	output, err = runCLI(t, "--server", url, "source", "list")
	if err != nil {
		t.Fatalf("source list error: %v", err)
	}
	if !strings.Contains(output, "ingest") {
		t.Errorf("expected source name in output, got: %s", output)
	}
	if !strings.Contains(output, "ACTIVE") {
		t.Errorf("expected ACTIVE state in output, got: %s", output)
	}
}

func TestPushAndExecutions(t *testing.T) {
	url := startTestServer(t)

	if _, err := runCLI(t, "--server", url, "source", "create", "jobs"); err != nil {
		t.Fatalf("source create error: %v", err)
	}

	output, err := runCLI(t, "--server", url, "push", "1",
		"--type", "sleep",
		"--payload", `{"echo": "cli-job"}`,
		"--signature", "batch")
	if err != nil {
		t.Fatalf("push error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Job pushed to source 1") {
		t.Errorf("expected push confirmation, got: %s", output)
	}

	// Wait for the job to land in history.
	deadline := time.Now().Add(5 * time.Second)
	for {
		output, err = runCLI(t, "--server", url, "executions", "--state", "SUCCESS")
		if err != nil {
			t.Fatalf("executions error: %v", err)
		}
		if strings.Contains(output, "SUCCESS") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed, last output: %s", output)
		}
		time.Sleep(20 * time.Millisecond)
	}

	// Single-execution detail view.
	id := extractExecutionID(t, output)
	output, err = runCLI(t, "--server", url, "executions", id)
	if err != nil {
		t.Fatalf("executions %s error: %v", id, err)
	}
	if !strings.Contains(output, "sequential(batch)") {
		t.Errorf("expected ordering in output, got: %s", output)
	}
	if !strings.Contains(output, "cli-job") {
		t.Errorf("expected job output in output, got: %s", output)
	}
}

func extractExecutionID(t *testing.T, listing string) string {
	t.Helper()
	for _, line := range strings.Split(listing, "\n") {
		if strings.HasPrefix(line, "exec_") {
			return strings.Fields(line)[0]
		}
	}
	t.Fatalf("no execution id in listing: %s", listing)
	return ""
}

func TestSourceClose(t *testing.T) {
	url := startTestServer(t)

	if _, err := runCLI(t, "--server", url, "source", "create", "short-lived"); err != nil {
		t.Fatalf("source create error: %v", err)
	}

	output, err := runCLI(t, "--server", url, "source", "close", "1")
	if err != nil {
		t.Fatalf("source close error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Source 1 closed") {
		t.Errorf("expected close confirmation, got: %s", output)
	}

	// Closing again is a conflict.
	if _, err := runCLI(t, "--server", url, "source", "close", "1"); err == nil {
		t.Fatal("expected error closing an already-closed source")
	}
}

func TestHealthCommand(t *testing.T) {
	url := startTestServer(t)

	output, err := runCLI(t, "--server", url, "health")
	if err != nil {
		t.Fatalf("health error: %v", err)
	}
	if !strings.Contains(output, "Status:    healthy") {
		t.Errorf("expected healthy status, got: %s", output)
	}
	if !strings.Contains(output, "Scheduler: running") {
		t.Errorf("expected running scheduler, got: %s", output)
	}
}

func TestPushInvalidPayload(t *testing.T) {
	url := startTestServer(t)

	if _, err := runCLI(t, "--server", url, "source", "create", "x"); err != nil {
		t.Fatalf("source create error: %v", err)
	}
	if _, err := runCLI(t, "--server", url, "push", "1", "--payload", "not json"); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
