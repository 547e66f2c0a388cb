package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/goflux/pkg/model"
)

// SleepExecutor waits for the configured duration and then echoes its
// payload. Useful for exercising the scheduler's ordering behavior in
// demos and tests without real workloads.
//
// Payload shape:
//
//	{"duration": "50ms", "echo": "anything"}
type SleepExecutor struct {
	logger *slog.Logger
}

// NewSleepExecutor creates a SleepExecutor.
func NewSleepExecutor(logger *slog.Logger) *SleepExecutor {
	return &SleepExecutor{logger: logger.With("component", "sleep-executor")}
}

// Type returns model.ExecutorTypeSleep.
func (e *SleepExecutor) Type() model.ExecutorType {
	return model.ExecutorTypeSleep
}

// Execute sleeps, honoring context cancellation, then returns the echo
// value as output.
func (e *SleepExecutor) Execute(ctx context.Context, sourceID model.SourceID, job model.Job) (model.ExecutionDetails, error) {
	d := time.Duration(0)
	if raw, ok := job.Payload["duration"].(string); ok && raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return model.ExecutionDetails{}, fmt.Errorf("parse duration %q: %w", raw, err)
		}
		d = parsed
	}

	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return model.ExecutionDetails{}, ctx.Err()
		}
	}

	echo, _ := job.Payload["echo"].(string)
	return model.ExecutionDetails{Output: echo}, nil
}
