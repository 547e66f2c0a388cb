package executor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/me/goflux/pkg/model"
)

// LocalExecutor runs command payloads as local OS processes.
//
// Payload shape:
//
//	{"command": ["echo", "hello"], "dir": "/optional/workdir"}
type LocalExecutor struct {
	logger  *slog.Logger
	workDir string
}

// NewLocalExecutor creates a LocalExecutor. workDir is the default
// working directory for spawned processes; empty means the process
// inherits the server's.
func NewLocalExecutor(workDir string, logger *slog.Logger) *LocalExecutor {
	return &LocalExecutor{
		workDir: workDir,
		logger:  logger.With("component", "local-executor"),
	}
}

// Type returns model.ExecutorTypeLocal.
func (e *LocalExecutor) Type() model.ExecutorType {
	return model.ExecutorTypeLocal
}

// Execute runs the payload's command synchronously and captures its
// stdout, stderr, and exit code.
func (e *LocalExecutor) Execute(ctx context.Context, sourceID model.SourceID, job model.Job) (model.ExecutionDetails, error) {
	parts := extractCommand(job.Payload)
	if len(parts) == 0 {
		return model.ExecutionDetails{}, fmt.Errorf("source %s: command is missing or empty", sourceID)
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	if dir, ok := job.Payload["dir"].(string); ok && dir != "" {
		cmd.Dir = dir
	} else if e.workDir != "" {
		cmd.Dir = e.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("running command", "source_id", sourceID, "command", parts[0])

	err := cmd.Run()
	details := model.ExecutionDetails{
		Output: stdout.String(),
		Stderr: stderr.String(),
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		details.ExitCode = exitErr.ExitCode()
		return details, fmt.Errorf("command %q exited %d", parts[0], exitErr.ExitCode())
	}
	if err != nil {
		return details, fmt.Errorf("run %q: %w", parts[0], err)
	}
	return details, nil
}

// extractCommand pulls the command argv out of a payload map, handling
// both []string and the []any produced by JSON decoding.
func extractCommand(payload map[string]any) []string {
	switch v := payload["command"].(type) {
	case []string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			s, ok := p.(string)
			if !ok {
				return nil
			}
			parts = append(parts, s)
		}
		return parts
	}
	return nil
}
