// Package local runs submissions as host processes.
//
// Each step (compile, then run) is a single execve of an argument vector
// built from the language descriptor; no shell is involved. The process is
// placed in its own process group so a timeout kills everything it spawned,
// and prlimit(2) caps CPU time and file sizes. This is process-per-request
// isolation bounded by resource limits, not a security sandbox: use the
// docker runner when submissions are untrusted.
//
// A child that calls setsid(2) leaves the process group and is not killed on
// timeout. RLIMIT_CPU still ends it if it spins, but a sleeping child can
// outlive the execution; only the docker runner, which removes the whole
// container, reaps those.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/language"
	"github.com/sakif/code-runner/internal/workspace"
)

// Runner implements executor.Runner with host processes.
type Runner struct {
	config   Config
	logger   *slog.Logger
	registry *language.Registry

	mu       sync.Mutex
	lookups  map[string]bool
	lookPath func(string) (string, error)
}

// New creates a local Runner. The registry is only used by
// CheckAvailability to report which toolchains are installed.
func New(cfg Config, registry *language.Registry, logger *slog.Logger) *Runner {
	return &Runner{
		config:   cfg,
		logger:   logger,
		registry: registry,
		lookups:  make(map[string]bool),
		lookPath: exec.LookPath,
	}
}

// Name identifies the runner in logs and health output.
func (r *Runner) Name() string {
	return "local"
}

// Supports reports whether every toolchain binary the language needs is on PATH.
func (r *Runner) Supports(desc language.Descriptor) bool {
	if !desc.LocalCapable() {
		return false
	}
	for _, bin := range desc.Binaries() {
		if !r.installed(bin) {
			return false
		}
	}
	return true
}

func (r *Runner) installed(bin string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ok, cached := r.lookups[bin]; cached {
		return ok
	}
	_, err := r.lookPath(bin)
	r.lookups[bin] = err == nil
	return err == nil
}

// CheckAvailability lists the languages whose toolchains are installed.
func (r *Runner) CheckAvailability(_ context.Context) executor.Availability {
	var ready []string
	for _, d := range r.registry.Descriptors() {
		if r.Supports(d) {
			ready = append(ready, d.ID)
		}
	}
	sort.Strings(ready)
	if len(ready) == 0 {
		return executor.Availability{Available: false, Detail: "no local toolchains installed"}
	}
	return executor.Availability{
		Available: true,
		Detail:    fmt.Sprintf("%d toolchains installed: %s", len(ready), strings.Join(ready, ", ")),
	}
}

// Run compiles the workspace if the language needs it, then runs it with
// the workspace stdin file as standard input. A failed compile
// short-circuits: the run step is never attempted.
func (r *Runner) Run(ctx context.Context, desc language.Descriptor, ws *workspace.Workspace) (*executor.RawOutcome, error) {
	paths := language.Paths{
		Source:   ws.SourcePath,
		Dir:      ws.Dir,
		Artifact: ws.ArtifactPath,
		Name:     ws.Name.Value,
	}

	var compileElapsed time.Duration
	if desc.RequiresCompilation() {
		out, err := r.step(ctx, executor.StageCompile, language.Expand(desc.Compile, paths), ws.Dir, nil, r.config.CompileTimeout)
		if err != nil {
			return nil, err
		}
		if out.TimedOut || out.ExitCode != 0 {
			return out, nil
		}
		compileElapsed = out.Elapsed
	}

	stdin, err := os.Open(ws.StdinPath)
	if err != nil {
		return nil, fmt.Errorf("opening stdin: %w", err)
	}
	defer stdin.Close()

	out, err := r.step(ctx, executor.StageRun, language.Expand(desc.Run, paths), ws.Dir, stdin, r.config.Timeout)
	if err != nil {
		return nil, err
	}
	out.Elapsed += compileElapsed
	return out, nil
}

// step runs one command under a wall-clock bound and collects its outcome.
func (r *Runner) step(ctx context.Context, stage executor.Stage, argv []string, dir string, stdin io.Reader, limit time.Duration) (*executor.RawOutcome, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%s: empty command", stage)
	}

	stepCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	stdout := executor.NewCappedBuffer(r.config.MaxOutputBytes)
	stderr := executor.NewCappedBuffer(r.config.MaxOutputBytes)

	cmd := exec.CommandContext(stepCtx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = r.environ(dir)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// Kill the whole group, not just the direct child: a submission that
	// forks must not outlive its timeout.
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = r.config.KillGrace

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: starting %s: %w", stage, argv[0], err)
	}
	pid := cmd.Process.Pid
	r.applyLimits(pid, limit)

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	// Reap background children the process left behind. ESRCH just means
	// the group is already gone.
	_ = unix.Kill(-pid, unix.SIGKILL)

	if cmd.ProcessState == nil {
		return nil, fmt.Errorf("%s: waiting for %s: %w", stage, argv[0], waitErr)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, fmt.Errorf("%s: %w", stage, ctx.Err())
	}

	out := &executor.RawOutcome{
		Stage:     stage,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  cmd.ProcessState.ExitCode(),
		TimedOut:  errors.Is(stepCtx.Err(), context.DeadlineExceeded),
		Truncated: stdout.Truncated() || stderr.Truncated(),
		Limit:     limit,
		Elapsed:   elapsed,
	}

	if status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		out.ExitCode = 128 + int(status.Signal())
		if !out.TimedOut {
			out.Stderr += fmt.Sprintf("\nProcess killed by signal %s\n", unix.SignalName(status.Signal()))
		}
	}

	r.logger.Debug("process finished",
		slog.String("stage", string(stage)),
		slog.String("command", argv[0]),
		slog.Int("pid", pid),
		slog.Int("exitCode", out.ExitCode),
		slog.Bool("timedOut", out.TimedOut),
		slog.Duration("elapsed", elapsed),
	)
	return out, nil
}

// environ builds the minimal environment for a submission. Nothing from the
// server's own environment leaks through except PATH.
func (r *Runner) environ(dir string) []string {
	path := os.Getenv("PATH")
	if path == "" {
		path = "/usr/local/bin:/usr/bin:/bin"
	}
	env := []string{
		"PATH=" + path,
		"HOME=" + dir,
		"TMPDIR=" + dir,
		"LANG=C.UTF-8",
	}
	if r.config.GoCacheDir != "" {
		env = append(env, "GOCACHE="+r.config.GoCacheDir)
	}
	return append(env, r.config.Env...)
}
