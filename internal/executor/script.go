package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"
	"github.com/me/goflux/pkg/model"
)

// ScriptExecutor runs JavaScript payloads on an embedded goja runtime.
//
// Payload shape:
//
//	{"source": "inputs.a + inputs.b", "inputs": {"a": 1, "b": 2}}
//
// The script's final expression value is serialized to JSON and
// returned as the execution output. Each execution gets a fresh VM so
// scripts cannot observe each other.
type ScriptExecutor struct {
	logger *slog.Logger

	// lib contains JavaScript code loaded into every VM before the
	// payload runs (shared helper functions).
	lib []string
}

// NewScriptExecutor creates a ScriptExecutor. lib entries are loaded
// into each VM in order before the payload source runs.
func NewScriptExecutor(lib []string, logger *slog.Logger) *ScriptExecutor {
	return &ScriptExecutor{
		lib:    lib,
		logger: logger.With("component", "script-executor"),
	}
}

// Type returns model.ExecutorTypeScript.
func (e *ScriptExecutor) Type() model.ExecutorType {
	return model.ExecutorTypeScript
}

// Execute evaluates the payload's source with its inputs bound to the
// global "inputs" object.
func (e *ScriptExecutor) Execute(ctx context.Context, sourceID model.SourceID, job model.Job) (model.ExecutionDetails, error) {
	src, ok := job.Payload["source"].(string)
	if !ok || src == "" {
		return model.ExecutionDetails{}, fmt.Errorf("source %s: script source is missing", sourceID)
	}

	vm, err := e.setupVM(job.Payload["inputs"])
	if err != nil {
		return model.ExecutionDetails{}, err
	}

	// goja has no native cancellation; interrupt the VM if the context
	// ends while the script runs.
	watchdog := make(chan struct{})
	defer close(watchdog)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-watchdog:
		}
	}()

	value, err := vm.RunString(src)
	if err != nil {
		return model.ExecutionDetails{}, fmt.Errorf("script: %w", err)
	}

	out, err := json.Marshal(value.Export())
	if err != nil {
		return model.ExecutionDetails{}, fmt.Errorf("serialize script result: %w", err)
	}

	e.logger.Debug("script evaluated", "source_id", sourceID, "bytes", len(out))
	return model.ExecutionDetails{Output: string(out)}, nil
}

// setupVM creates a VM with the shared library loaded and inputs bound.
func (e *ScriptExecutor) setupVM(inputs any) (*goja.Runtime, error) {
	vm := goja.New()
	for i, lib := range e.lib {
		if _, err := vm.RunString(lib); err != nil {
			return nil, fmt.Errorf("script lib[%d]: %w", i, err)
		}
	}
	if inputs == nil {
		inputs = map[string]any{}
	}
	if err := vm.Set("inputs", inputs); err != nil {
		return nil, fmt.Errorf("set inputs: %w", err)
	}
	return vm, nil
}
