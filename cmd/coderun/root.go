package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/code-runner/internal/config"
	"github.com/sakif/code-runner/internal/executor"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coderun",
		Short: "Compile and run code in many languages",
		Long: `coderun - run a program in any supported language and get a
normalized result back.

Code runs in a resource-limited process group on this machine, in a Docker
container, in an embedded JavaScript interpreter, or on a remote Piston
instance, depending on --sandbox and --backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("backend", "", "Backend: auto, local, remote (default: $EXECUTION_BACKEND or auto)")
	root.PersistentFlags().String("sandbox", "", "Local sandbox: process, docker, embedded (default: $SANDBOX or process)")
	root.PersistentFlags().Duration("timeout", 0, "Run timeout (default: $EXEC_TIMEOUT or 10s)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log engine activity to stderr")

	root.AddCommand(
		newRunCmd(),
		newLanguagesCmd(),
		newHealthCmd(),
		newTokenCmd(),
		newMCPCmd(),
	)
	return root
}

// loadConfig reads the environment and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		s, err := executor.ParseStrategy(backend)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Strategy = s
	}
	if sandbox, _ := cmd.Flags().GetString("sandbox"); sandbox != "" {
		switch s := config.Sandbox(sandbox); s {
		case config.SandboxProcess, config.SandboxDocker, config.SandboxEmbedded:
			cfg.Sandbox = s
		default:
			return config.Config{}, fmt.Errorf("unknown sandbox %q, expected process, docker or embedded", sandbox)
		}
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.ExecTimeout = timeout
	}
	return cfg, cfg.Validate()
}

// newLogger writes to stderr so stdout stays the program's (or the MCP
// protocol's) alone. Quiet unless --verbose.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// buildEngine loads the config and assembles the engine. The caller must
// Close the engine.
func buildEngine(cmd *cobra.Command) (*config.Engine, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}
	engine, err := config.Build(cfg, newLogger(cmd))
	if err != nil {
		return nil, config.Config{}, err
	}
	return engine, cfg, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// waitBudget bounds a whole CLI invocation: compile, run and remote round trip.
func waitBudget(cfg config.Config) time.Duration {
	return cfg.CompileTimeout + cfg.ExecTimeout + cfg.RemoteTimeout + 5*time.Second
}
