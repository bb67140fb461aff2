package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/executor/docker"
	"github.com/sakif/code-runner/internal/executor/embedded"
	"github.com/sakif/code-runner/internal/executor/local"
	"github.com/sakif/code-runner/internal/executor/remote"
	"github.com/sakif/code-runner/internal/language"
	"github.com/sakif/code-runner/internal/workspace"
)

// Engine is the assembled execution stack.
type Engine struct {
	*executor.Dispatcher
	closers []func() error
}

// Close releases what Build started (docker pools). Safe to call once.
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Build wires the runner chosen by Sandbox into an Engine behind the local
// slot of a Dispatcher, and the Piston adapter behind the remote slot.
// Both are built whenever they are configured; Strategy only picks the
// default, so a request may still ask for the other one by name.
//
// A backend that is switched off is left as a nil interface, never as a
// typed nil pointer, so the Dispatcher's nil checks work.
func Build(cfg Config, logger *slog.Logger) (*Engine, error) {
	registry := language.Default()
	out := &Engine{}

	runner, closer, err := newRunner(cfg, registry, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		out.closers = append(out.closers, closer)
	}

	ws, err := workspace.NewManager(cfg.WorkspaceDir, logger)
	if err != nil {
		_ = out.Close()
		return nil, err
	}
	var localBackend executor.Backend = executor.NewEngine(registry, ws, runner, logger)

	var remoteBackend executor.Backend
	if cfg.PistonURL != "" {
		rc := remote.DefaultConfig()
		rc.BaseURL = cfg.PistonURL
		rc.RequestTimeout = cfg.RemoteTimeout
		remoteBackend = remote.New(rc, registry, logger)
	}

	out.Dispatcher = executor.NewDispatcher(registry, localBackend, remoteBackend, logger)
	logger.Info("execution engine ready",
		slog.String("strategy", string(cfg.Strategy)),
		slog.String("sandbox", string(cfg.Sandbox)),
		slog.Bool("remote", remoteBackend != nil),
		slog.Duration("timeout", cfg.ExecTimeout),
	)
	return out, nil
}

func newRunner(cfg Config, registry *language.Registry, logger *slog.Logger) (executor.Runner, func() error, error) {
	switch cfg.Sandbox {
	case SandboxDocker:
		dc := docker.DefaultConfig()
		dc.Timeout = cfg.ExecTimeout
		dc.CompileTimeout = cfg.CompileTimeout
		dc.MaxOutputBytes = cfg.MaxOutputBytes
		dc.PoolSize = cfg.DockerPoolSize
		dc.MemoryLimit = cfg.DockerMemoryMB * 1024 * 1024
		dc.GoCacheVolume = cfg.DockerGoCacheVolume
		r, err := docker.New(dc, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("starting docker sandbox: %w", err)
		}
		return r, r.Close, nil

	case SandboxEmbedded:
		ec := embedded.DefaultConfig()
		ec.Timeout = cfg.ExecTimeout
		ec.MaxOutputBytes = cfg.MaxOutputBytes
		return embedded.New(ec, logger), nil, nil

	default:
		lc := local.DefaultConfig()
		lc.Timeout = cfg.ExecTimeout
		lc.CompileTimeout = cfg.CompileTimeout
		lc.MaxOutputBytes = cfg.MaxOutputBytes
		if cfg.GoCacheDir != "" {
			if err := os.MkdirAll(cfg.GoCacheDir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating go cache dir: %w", err)
			}
			lc.GoCacheDir = cfg.GoCacheDir
		}
		return local.New(lc, registry, logger), nil, nil
	}
}
