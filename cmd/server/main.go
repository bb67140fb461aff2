// Package main is the entry point for the code execution server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (from env vars)
// 2. Create dependencies (logger, execution engine)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/executor, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// This project has two: cmd/server (the HTTP API) and cmd/coderun (the CLI).
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/code-runner/internal/config"
	"github.com/sakif/code-runner/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Every variable has a default, see config.DefaultConfig.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_LEVEL=debug shows every dispatch decision; LOG_FORMAT=json for log shippers.
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	// === 3. BUILD THE EXECUTION ENGINE ===
	// SANDBOX picks how code runs here (process, docker, embedded) and
	// PISTON_URL where it runs when it can't run here.
	engine, err := config.Build(cfg, logger)
	if err != nil {
		logger.Error("failed to build execution engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// A dead backend is not fatal: /api/health reports it and auto mode may
	// still fall back to the other one.
	if a := engine.CheckAvailability(context.Background(), cfg.Strategy); !a.Available {
		logger.Warn("no backend is available yet", slog.String("detail", a.Detail))
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(server.Config{
		Port:         cfg.Port,
		Strategy:     cfg.Strategy,
		MaxCodeBytes: cfg.MaxCodeBytes,
		JWTSecret:    cfg.JWTSecret,
		WriteTimeout: cfg.CompileTimeout + cfg.ExecTimeout + cfg.RemoteTimeout,
	}, engine, logger, engine.Close)
	if err != nil {
		_ = engine.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
