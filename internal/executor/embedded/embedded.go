// Package embedded runs JavaScript submissions inside the server process
// with the goja interpreter, so JavaScript works on hosts without node.
//
// The VM gets a small host surface instead of node's runtime:
//
//	console.log / info / debug   write a line to stdout
//	console.error / warn         write a line to stderr
//	process.stdout.write(s)      write s to stdout without a newline
//	process.stderr.write(s)
//	process.exit(code)           stop with the given exit code
//	readline()                   next stdin line, or undefined at EOF
//	input                        the whole stdin as a string
//
// There is no require, no filesystem and no network. The wall-clock bound
// is enforced with vm.Interrupt; memory is not bounded, so use the process
// or docker runners for untrusted heavy workloads.
package embedded

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/language"
	"github.com/sakif/code-runner/internal/workspace"
)

// Config holds the limits applied to every VM.
type Config struct {
	Timeout        time.Duration
	MaxOutputBytes int64
	// MaxCallStackSize turns runaway recursion into a RangeError.
	MaxCallStackSize int
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:          10 * time.Second,
		MaxOutputBytes:   1 << 20,
		MaxCallStackSize: 10000,
	}
}

// Runner implements executor.Runner for JavaScript.
type Runner struct {
	config Config
	logger *slog.Logger
}

// New creates an embedded Runner.
func New(cfg Config, logger *slog.Logger) *Runner {
	return &Runner{config: cfg, logger: logger}
}

// Name identifies the runner in logs and health output.
func (r *Runner) Name() string {
	return "embedded"
}

// Supports reports true for JavaScript only.
func (r *Runner) Supports(desc language.Descriptor) bool {
	return desc.ID == "javascript"
}

// CheckAvailability always succeeds: the interpreter is compiled in.
func (r *Runner) CheckAvailability(context.Context) executor.Availability {
	return executor.Availability{Available: true, Detail: "embedded JavaScript interpreter (goja)"}
}

// exitSignal unwinds the VM when the program calls process.exit.
type exitSignal struct {
	code int
}

var errTimeout = errors.New("timeout")

// Run evaluates the workspace source file.
func (r *Runner) Run(ctx context.Context, desc language.Descriptor, ws *workspace.Workspace) (*executor.RawOutcome, error) {
	if !r.Supports(desc) {
		return nil, fmt.Errorf("embedded runner cannot run %s", desc.ID)
	}
	src, err := os.ReadFile(ws.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	stdin, err := os.ReadFile(ws.StdinPath)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}

	stdout := executor.NewCappedBuffer(r.config.MaxOutputBytes)
	stderr := executor.NewCappedBuffer(r.config.MaxOutputBytes)

	vm := goja.New()
	if r.config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(r.config.MaxCallStackSize)
	}
	if err := bindHost(vm, string(stdin), stdout, stderr); err != nil {
		return nil, fmt.Errorf("binding host functions: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan struct{})
	var (
		runErr   error
		exitCode = -1
	)
	go func() {
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				if sig, ok := p.(exitSignal); ok {
					exitCode = sig.code
					return
				}
				runErr = fmt.Errorf("panic: %v", p)
			}
		}()
		_, runErr = vm.RunScript(ws.SourcePath, string(src))
	}()

	select {
	case <-done:
	case <-runCtx.Done():
		vm.Interrupt(errTimeout)
		<-done
	}
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, fmt.Errorf("run: %w", ctx.Err())
	}

	out := &executor.RawOutcome{
		Stage:   executor.StageRun,
		Limit:   r.config.Timeout,
		Elapsed: elapsed,
	}

	var interrupted *goja.InterruptedError
	switch {
	case errors.As(runErr, &interrupted):
		out.TimedOut = true
		out.ExitCode = executor.TimeoutExitCode
	case runErr != nil:
		// Uncaught exception or syntax error, reported like node does.
		_, _ = stderr.Write([]byte(exceptionText(runErr) + "\n"))
		out.ExitCode = 1
	case exitCode >= 0:
		out.ExitCode = exitCode
	}

	out.Stdout = stdout.String()
	out.Stderr = stderr.String()
	out.Truncated = stdout.Truncated() || stderr.Truncated()

	r.logger.Debug("script finished",
		slog.Int("exitCode", out.ExitCode),
		slog.Bool("timedOut", out.TimedOut),
		slog.Duration("elapsed", elapsed),
	)
	return out, nil
}

func exceptionText(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.String()
	}
	return err.Error()
}

// bindHost installs console, process, readline and input on the VM.
func bindHost(vm *goja.Runtime, stdin string, stdout, stderr *executor.CappedBuffer) error {
	format := func(call goja.FunctionCall) string {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = display(vm, arg)
		}
		return strings.Join(parts, " ")
	}
	line := func(w *executor.CappedBuffer) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			_, _ = w.Write([]byte(format(call) + "\n"))
			return goja.Undefined()
		}
	}
	raw := func(w *executor.CappedBuffer) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			_, _ = w.Write([]byte(call.Argument(0).String()))
			return vm.ToValue(true)
		}
	}

	console := vm.NewObject()
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"log":   line(stdout),
		"info":  line(stdout),
		"debug": line(stdout),
		"error": line(stderr),
		"warn":  line(stderr),
	} {
		if err := console.Set(name, fn); err != nil {
			return err
		}
	}

	outStream := vm.NewObject()
	if err := outStream.Set("write", raw(stdout)); err != nil {
		return err
	}
	errStream := vm.NewObject()
	if err := errStream.Set("write", raw(stderr)); err != nil {
		return err
	}

	process := vm.NewObject()
	if err := process.Set("stdout", outStream); err != nil {
		return err
	}
	if err := process.Set("stderr", errStream); err != nil {
		return err
	}
	if err := process.Set("exit", func(call goja.FunctionCall) goja.Value {
		code := 0
		if len(call.Arguments) > 0 {
			code = int(call.Argument(0).ToInteger())
		}
		panic(exitSignal{code: code})
	}); err != nil {
		return err
	}

	lines := strings.SplitAfter(stdin, "\n")
	next := 0
	readline := func(goja.FunctionCall) goja.Value {
		for next < len(lines) {
			l := lines[next]
			next++
			if l == "" {
				continue
			}
			return vm.ToValue(strings.TrimRight(l, "\r\n"))
		}
		return goja.Undefined()
	}

	for name, v := range map[string]any{
		"console":  console,
		"process":  process,
		"readline": readline,
		"input":    stdin,
	} {
		if err := vm.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// display renders a value the way console.log would for common cases:
// strings verbatim, objects and arrays as JSON.
func display(vm *goja.Runtime, v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}
	if _, isFn := goja.AssertFunction(obj); isFn {
		return v.String()
	}
	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return v.String()
	}
	s, err := stringify(goja.Undefined(), v)
	if err != nil || goja.IsUndefined(s) {
		return v.String()
	}
	return s.String()
}
