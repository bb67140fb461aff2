package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/code-runner/internal/apperror"
	"github.com/sakif/code-runner/internal/language"
	"github.com/sakif/code-runner/internal/workspace"
)

// Engine is a Backend that stages every request in a workspace and hands it
// to a Runner.
type Engine struct {
	registry   *language.Registry
	workspaces *workspace.Manager
	runner     Runner
	logger     *slog.Logger
}

// NewEngine wires a runner into the prepare/run/format/dispose pipeline.
func NewEngine(registry *language.Registry, workspaces *workspace.Manager, runner Runner, logger *slog.Logger) *Engine {
	return &Engine{
		registry:   registry,
		workspaces: workspaces,
		runner:     runner,
		logger:     logger,
	}
}

// Name returns the underlying runner's name.
func (e *Engine) Name() string {
	return e.runner.Name()
}

// Supports reports whether the runner can execute the language here.
func (e *Engine) Supports(desc language.Descriptor) bool {
	return desc.LocalCapable() && e.runner.Supports(desc)
}

// CheckAvailability delegates to the runner.
func (e *Engine) CheckAvailability(ctx context.Context) Availability {
	return e.runner.CheckAvailability(ctx)
}

// Execute runs one request to completion.
//
// The workspace is disposed from a deferred call, so it is removed on every
// exit path: success, user-code failure, runner error and runner panic.
func (e *Engine) Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error) {
	desc, err := e.registry.Resolve(req.Language)
	if err != nil {
		return nil, err
	}
	if !desc.LocalCapable() {
		return nil, apperror.Unavailable(fmt.Sprintf("%s can only run on a remote backend", desc.DisplayName))
	}

	ws, err := e.workspaces.Prepare(req.Code, desc, req.Stdin)
	if err != nil {
		e.logger.Error("failed to prepare workspace",
			slog.String("language", desc.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer e.workspaces.Dispose(ws)

	start := time.Now()
	raw, err := e.runner.Run(ctx, desc, ws)
	if err != nil {
		e.logger.Error("runner failed",
			slog.String("runner", e.runner.Name()),
			slog.String("language", desc.ID),
			slog.String("token", ws.Token),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("running %s on %s: %w", desc.ID, e.runner.Name(), err)
	}
	if raw.Elapsed == 0 {
		raw.Elapsed = time.Since(start)
	}

	res := Format(raw, desc.ID, false)
	e.logger.Info("execution finished",
		slog.String("runner", e.runner.Name()),
		slog.String("language", desc.ID),
		slog.String("token", ws.Token),
		slog.Bool("success", res.Success),
		slog.String("classification", string(res.Classification)),
		slog.Int("exitCode", res.ExitCode),
		slog.Int64("ms", res.ExecutionTimeMs),
	)
	return res, nil
}
