// Package remote provides a backend that executes code on a hosted Piston
// instance instead of on this machine.
//
// The adapter owns no files and starts no processes. It translates an
// ExecutionRequest into a Piston /execute call and folds the answer back
// into the same ExecutionResult the local backends produce, with Online set.
//
// TRANSPORT FAILURES ARE RESULTS:
// When the service is unreachable or rejects the request, callers still get
// a populated ExecutionResult (exit code -1, Error explaining what happened)
// rather than a Go error. Only caller mistakes (unknown language) and a
// caller-cancelled context come back as errors.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/code-runner/internal/apperror"
	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/language"
	"github.com/sakif/code-runner/internal/workspace"
)

// DefaultBaseURL is the public Piston instance.
const DefaultBaseURL = "https://emkc.org/api/v2/piston"

// TransportExitCode is reported when the service could not be asked at all.
const TransportExitCode = -1

// Config configures the remote backend.
type Config struct {
	// BaseURL is the Piston API root, without a trailing slash.
	BaseURL string
	// CompileTimeout and RunTimeout are forwarded to the service, which
	// enforces them on its side.
	CompileTimeout time.Duration
	RunTimeout     time.Duration
	// RequestTimeout bounds the whole HTTP round trip.
	RequestTimeout time.Duration
	// HealthTimeout bounds the /runtimes probe.
	HealthTimeout time.Duration
}

// DefaultConfig matches the limits the public instance accepts.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		CompileTimeout: 10 * time.Second,
		RunTimeout:     3 * time.Second,
		RequestTimeout: 15 * time.Second,
		HealthTimeout:  5 * time.Second,
	}
}

// Backend implements executor.Backend against the Piston API.
type Backend struct {
	config   Config
	registry *language.Registry
	http     *http.Client
	logger   *slog.Logger
}

// New creates a remote Backend.
func New(cfg Config, registry *language.Registry, logger *slog.Logger) *Backend {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Backend{
		config:   cfg,
		registry: registry,
		http:     &http.Client{Timeout: cfg.RequestTimeout},
		logger:   logger,
	}
}

var _ executor.Backend = (*Backend)(nil)

// Name identifies the backend in logs and health output.
func (b *Backend) Name() string {
	return "remote"
}

// Supports reports whether the service knows the language.
func (b *Backend) Supports(desc language.Descriptor) bool {
	return desc.RemoteCapable()
}

// Execute runs one request on the service.
func (b *Backend) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	desc, err := b.registry.Resolve(req.Language)
	if err != nil {
		return nil, err
	}
	if !desc.RemoteCapable() {
		return nil, apperror.Unavailable(fmt.Sprintf("remote execution is not available for %s", desc.DisplayName))
	}

	name := workspace.DeclaredName(req.Code, desc)
	payload := pistonRequest{
		Language:           desc.Remote.Language,
		Version:            desc.Remote.Version,
		Files:              []pistonFile{{Name: name.Value + desc.Extension, Content: req.Code}},
		Stdin:              req.Stdin,
		Args:               []string{},
		CompileTimeout:     b.config.CompileTimeout.Milliseconds(),
		RunTimeout:         b.config.RunTimeout.Milliseconds(),
		CompileMemoryLimit: -1,
		RunMemoryLimit:     -1,
	}

	start := time.Now()
	resp, err := b.post(ctx, payload)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return nil, fmt.Errorf("remote execution: %w", ctxErr)
		}
		b.logger.Error("online compiler error",
			slog.String("language", desc.ID),
			slog.String("error", err.Error()),
		)
		return failure(desc.ID, err), nil
	}

	raw := b.outcome(resp)
	raw.Elapsed = time.Since(start)

	res := executor.Format(raw, desc.ID, true)
	b.logger.Info("remote execution finished",
		slog.String("language", desc.ID),
		slog.Bool("success", res.Success),
		slog.String("classification", string(res.Classification)),
		slog.Int("exitCode", res.ExitCode),
		slog.Int64("ms", res.ExecutionTimeMs),
	)
	return res, nil
}

// apiError is a response the service produced but refused to run.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return e.message
}

func (b *Backend) post(ctx context.Context, payload pistonRequest) (*pistonResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.BaseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := b.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var out pistonResponse
	decodeErr := json.Unmarshal(data, &out)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		msg := out.Message
		if decodeErr != nil || msg == "" {
			msg = httpResp.Status
		}
		return nil, &apiError{status: httpResp.StatusCode, message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %w", decodeErr)
	}
	if out.Run == nil && out.Compile == nil {
		msg := out.Message
		if msg == "" {
			msg = "response has no run stage"
		}
		return nil, &apiError{status: httpResp.StatusCode, message: msg}
	}
	return &out, nil
}

// outcome maps a Piston response onto the compile or run stage it ended in.
func (b *Backend) outcome(resp *pistonResponse) *executor.RawOutcome {
	if c := resp.Compile; c != nil && (c.timedOut() || c.exitCode() != 0) {
		return &executor.RawOutcome{
			Stage:    executor.StageCompile,
			Stdout:   c.Stdout,
			Stderr:   c.Stderr,
			ExitCode: c.exitCode(),
			TimedOut: c.timedOut(),
			Limit:    b.config.CompileTimeout,
		}
	}

	run := resp.Run
	if run == nil {
		run = &pistonStage{}
	}
	return &executor.RawOutcome{
		Stage:    executor.StageRun,
		Stdout:   run.Stdout,
		Stderr:   run.Stderr,
		ExitCode: run.exitCode(),
		TimedOut: run.timedOut(),
		Limit:    b.config.RunTimeout,
	}
}

// failure builds the result reported when the service could not be used.
func failure(lang string, err error) *executor.ExecutionResult {
	msg := "Execution failed: " + err.Error()
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		msg = "API Error: " + apiErr.message
	}
	return &executor.ExecutionResult{
		Success:       false,
		Output:        "",
		Error:         msg,
		ExitCode:      TransportExitCode,
		ExecutionTime: "0ms",
		Language:      lang,
		Online:        true,
	}
}

// CheckAvailability lists the service's runtimes.
func (b *Backend) CheckAvailability(ctx context.Context) executor.Availability {
	ctx, cancel := context.WithTimeout(ctx, b.config.HealthTimeout)
	defer cancel()

	runtimes, err := b.runtimes(ctx)
	if err != nil {
		return executor.Availability{Available: false, Detail: fmt.Sprintf("Service unavailable: %v", err)}
	}
	return executor.Availability{
		Available: true,
		Detail:    fmt.Sprintf("Online compiler service is available (%d runtimes)", len(runtimes)),
	}
}

func (b *Backend) runtimes(ctx context.Context) ([]pistonRuntime, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.config.BaseURL+"/runtimes", nil)
	if err != nil {
		return nil, err
	}
	httpResp, err := b.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", httpResp.Status)
	}
	var runtimes []pistonRuntime
	if err := json.NewDecoder(httpResp.Body).Decode(&runtimes); err != nil {
		return nil, fmt.Errorf("decoding runtimes: %w", err)
	}
	return runtimes, nil
}
