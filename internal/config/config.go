// Package config reads the service configuration from the environment and
// assembles the execution engine from it.
//
// WHY ENV VARS?
// The server runs in containers and under systemd, where environment
// variables are the one configuration channel every platform offers. The CLI
// reads the same variables and lets flags override them, so `coderun run`
// behaves like the server it is debugging.
//
// Every knob has a default, so an empty environment is a valid config:
//
//	PORT=8080 EXECUTION_BACKEND=auto SANDBOX=process EXEC_TIMEOUT=10s
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/executor/remote"
)

// Sandbox selects the Runner behind the local backend.
type Sandbox string

const (
	// SandboxProcess runs host toolchains in resource-limited process groups.
	SandboxProcess Sandbox = "process"
	// SandboxDocker runs every submission in a throwaway container.
	SandboxDocker Sandbox = "docker"
	// SandboxEmbedded runs JavaScript in an in-process interpreter only.
	SandboxEmbedded Sandbox = "embedded"
)

// Config is the complete service configuration.
type Config struct {
	Port      int
	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	// GoCacheDir is shared by every Go compile; it outlives workspaces.
	GoCacheDir     string
	WorkspaceDir   string
	ExecTimeout    time.Duration
	CompileTimeout time.Duration
	MaxOutputBytes int64
	MaxCodeBytes   int

	Strategy executor.Strategy
	Sandbox  Sandbox

	// PistonURL is the remote backend's base URL. Empty disables it.
	PistonURL     string
	RemoteTimeout time.Duration

	// JWTSecret enables bearer-token auth on /api/execute when set.
	JWTSecret string

	DockerPoolSize int
	DockerMemoryMB int64
	// DockerGoCacheVolume is the named volume holding GOCACHE for the Go
	// image. Empty keeps the cache on the container's tmpfs.
	DockerGoCacheVolume string
}

// DefaultConfig provides the values used for unset variables.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		LogLevel:       slog.LevelInfo,
		LogFormat:      "text",
		WorkspaceDir:   filepath.Join(os.TempDir(), "coderunner"),
		GoCacheDir:     filepath.Join(os.TempDir(), "coderunner-gocache"),
		ExecTimeout:    10 * time.Second,
		CompileTimeout: 20 * time.Second,
		MaxOutputBytes: 1 << 20,
		MaxCodeBytes:   100_000,
		Strategy:       executor.StrategyAuto,
		Sandbox:        SandboxProcess,
		PistonURL:      remote.DefaultBaseURL,
		RemoteTimeout:  15 * time.Second,
		DockerPoolSize: 1,
		DockerMemoryMB: 256,

		DockerGoCacheVolume: "coderunner-gocache",
	}
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the configuration through lookup, which has the signature
// of os.LookupEnv. Tests pass a map-backed lookup.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	p := parser{lookup: lookup}

	p.intVar("PORT", &cfg.Port)
	p.levelVar("LOG_LEVEL", &cfg.LogLevel)
	p.oneOfVar("LOG_FORMAT", &cfg.LogFormat, "text", "json")
	p.stringVar("WORKSPACE_DIR", &cfg.WorkspaceDir)
	p.stringVar("GO_CACHE_DIR", &cfg.GoCacheDir)
	p.durationVar("EXEC_TIMEOUT", &cfg.ExecTimeout)
	p.durationVar("COMPILE_TIMEOUT", &cfg.CompileTimeout)
	p.int64Var("MAX_OUTPUT_BYTES", &cfg.MaxOutputBytes)
	p.intVar("MAX_CODE_BYTES", &cfg.MaxCodeBytes)
	p.strategyVar("EXECUTION_BACKEND", &cfg.Strategy)

	sandbox := string(cfg.Sandbox)
	p.oneOfVar("SANDBOX", &sandbox, string(SandboxProcess), string(SandboxDocker), string(SandboxEmbedded))
	cfg.Sandbox = Sandbox(sandbox)

	// Set-but-empty is meaningful here: it turns the remote backend off.
	if v, ok := lookup("PISTON_URL"); ok {
		cfg.PistonURL = strings.TrimSpace(v)
	}
	p.durationVar("REMOTE_TIMEOUT", &cfg.RemoteTimeout)
	p.stringVar("JWT_SECRET", &cfg.JWTSecret)
	p.intVar("DOCKER_POOL_SIZE", &cfg.DockerPoolSize)
	p.int64Var("DOCKER_MEMORY_MB", &cfg.DockerMemoryMB)
	if v, ok := lookup("DOCKER_GO_CACHE_VOLUME"); ok {
		cfg.DockerGoCacheVolume = strings.TrimSpace(v)
	}

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, cfg.Validate()
}

// Validate rejects values no component could work with.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("PORT %d out of range", c.Port)
	case c.ExecTimeout <= 0:
		return fmt.Errorf("EXEC_TIMEOUT must be positive")
	case c.CompileTimeout <= 0:
		return fmt.Errorf("COMPILE_TIMEOUT must be positive")
	case c.MaxOutputBytes < 0:
		return fmt.Errorf("MAX_OUTPUT_BYTES must not be negative")
	case c.Strategy == executor.StrategyRemote && c.PistonURL == "":
		return fmt.Errorf("EXECUTION_BACKEND=remote needs PISTON_URL")
	case c.DockerPoolSize < 1:
		return fmt.Errorf("DOCKER_POOL_SIZE must be at least 1")
	}
	return nil
}

// NewLogger builds the slog.Logger described by the config.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// parser keeps the first error so Load reads like a list of fields.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) get(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, value string, err error) {
	p.err = fmt.Errorf("invalid %s value %q: %w", key, value, err)
}

func (p *parser) stringVar(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) intVar(key string, dst *int) {
	if v, ok := p.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *parser) int64Var(key string, dst *int64) {
	if v, ok := p.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

// durationVar accepts Go durations ("2s", "1500ms") and bare seconds ("10").
func (p *parser) durationVar(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = d
}

func (p *parser) levelVar(key string, dst *slog.Level) {
	if v, ok := p.get(key); ok {
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			p.fail(key, v, err)
		}
	}
}

func (p *parser) strategyVar(key string, dst *executor.Strategy) {
	if v, ok := p.get(key); ok {
		s, err := executor.ParseStrategy(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = s
	}
}

func (p *parser) oneOfVar(key string, dst *string, allowed ...string) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			*dst = v
			return
		}
	}
	p.fail(key, v, fmt.Errorf("expected one of %s", strings.Join(allowed, ", ")))
}
