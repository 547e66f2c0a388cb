package executor

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/me/goflux/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalExecutorRunsCommand(t *testing.T) {
	e := NewLocalExecutor("", testLogger())

	job := model.Job{
		ExecutorType: model.ExecutorTypeLocal,
		Payload:      map[string]any{"command": []any{"echo", "hello"}},
	}
	details, err := e.Execute(context.Background(), 1, job)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(details.Output) != "hello" {
		t.Errorf("output = %q, want %q", details.Output, "hello")
	}
	if details.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", details.ExitCode)
	}
}

func TestLocalExecutorMissingCommand(t *testing.T) {
	e := NewLocalExecutor("", testLogger())

	_, err := e.Execute(context.Background(), 1, model.Job{Payload: map[string]any{}})
	if err == nil {
		t.Fatal("expected error for missing command")
	}
}

func TestLocalExecutorNonZeroExit(t *testing.T) {
	e := NewLocalExecutor("", testLogger())

	job := model.Job{Payload: map[string]any{"command": []any{"sh", "-c", "exit 3"}}}
	details, err := e.Execute(context.Background(), 1, job)
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if details.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", details.ExitCode)
	}
}

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    int
	}{
		{"string slice", map[string]any{"command": []string{"ls", "-l"}}, 2},
		{"any slice", map[string]any{"command": []any{"ls"}}, 1},
		{"mixed any slice", map[string]any{"command": []any{"ls", 42}}, 0},
		{"absent", map[string]any{}, 0},
	}
	for _, tt := range tests {
		if got := extractCommand(tt.payload); len(got) != tt.want {
			t.Errorf("%s: len = %d, want %d", tt.name, len(got), tt.want)
		}
	}
}
