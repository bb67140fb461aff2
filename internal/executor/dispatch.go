package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/code-runner/internal/apperror"
	"github.com/sakif/code-runner/internal/language"
)

// Strategy selects the backend for one call.
type Strategy string

const (
	// StrategyAuto prefers the local backend and falls back to the remote
	// one when the local toolchain for the language is not installed.
	StrategyAuto   Strategy = "auto"
	StrategyLocal  Strategy = "local"
	StrategyRemote Strategy = "remote"
)

// ParseStrategy accepts "auto", "local" or "remote" in any case.
// The empty string means StrategyAuto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyLocal:
		return StrategyLocal, nil
	case StrategyRemote:
		return StrategyRemote, nil
	default:
		return "", apperror.ValidationFailed("backend",
			fmt.Sprintf("unknown backend %q, expected auto, local or remote", s))
	}
}

// Dispatcher routes requests to a local or remote Backend. Either backend
// may be nil. It holds no per-request state and is safe for concurrent use.
type Dispatcher struct {
	registry *language.Registry
	local    Backend
	remote   Backend
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(registry *language.Registry, local, remote Backend, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		local:    local,
		remote:   remote,
		logger:   logger,
	}
}

// Registry exposes the language registry shared by both backends.
func (d *Dispatcher) Registry() *language.Registry {
	return d.registry
}

// Languages lists every language the registry knows.
func (d *Dispatcher) Languages() []language.Info {
	return d.registry.List()
}

// Templates returns starter programs for a language.
func (d *Dispatcher) Templates(id string) (map[string]string, error) {
	return d.registry.Templates(id)
}

// Select picks the backend that would serve desc under strategy.
func (d *Dispatcher) Select(desc language.Descriptor, strategy Strategy) (Backend, error) {
	localOK := d.local != nil && d.local.Supports(desc)
	remoteOK := d.remote != nil && d.remote.Supports(desc)

	switch strategy {
	case StrategyLocal:
		if localOK {
			return d.local, nil
		}
		return nil, apperror.Unavailable(fmt.Sprintf("no local toolchain installed for %s", desc.DisplayName))
	case StrategyRemote:
		if remoteOK {
			return d.remote, nil
		}
		return nil, apperror.Unavailable(fmt.Sprintf("remote execution is not available for %s", desc.DisplayName))
	default:
		if localOK {
			return d.local, nil
		}
		if remoteOK {
			return d.remote, nil
		}
		return nil, apperror.Unavailable(fmt.Sprintf("no backend can run %s", desc.DisplayName))
	}
}

// Execute resolves the language, selects a backend and runs the request.
func (d *Dispatcher) Execute(ctx context.Context, req ExecutionRequest, strategy Strategy) (*ExecutionResult, error) {
	desc, err := d.registry.Resolve(req.Language)
	if err != nil {
		return nil, err
	}

	backend, err := d.Select(desc, strategy)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("dispatching execution",
		slog.String("language", desc.ID),
		slog.String("strategy", string(strategy)),
		slog.String("backend", backend.Name()),
	)

	req.Language = desc.ID
	return backend.Execute(ctx, req)
}

// CheckAvailability probes the backends the strategy could use.
// For StrategyAuto the engine is available if either backend is.
func (d *Dispatcher) CheckAvailability(ctx context.Context, strategy Strategy) Availability {
	var candidates []Backend
	switch strategy {
	case StrategyLocal:
		candidates = []Backend{d.local}
	case StrategyRemote:
		candidates = []Backend{d.remote}
	default:
		candidates = []Backend{d.local, d.remote}
	}

	var (
		available bool
		details   []string
	)
	for _, b := range candidates {
		if b == nil {
			continue
		}
		a := b.CheckAvailability(ctx)
		available = available || a.Available
		details = append(details, fmt.Sprintf("%s: %s", b.Name(), a.Detail))
	}
	if len(details) == 0 {
		return Availability{Available: false, Detail: fmt.Sprintf("no backend configured for strategy %s", strategy)}
	}
	return Availability{Available: available, Detail: strings.Join(details, "; ")}
}
