// Package executor runs untrusted source code and normalizes what happened
// into a stable ExecutionResult, whichever backend did the work.
//
// The pipeline for a workspace-based backend is:
//
//	Registry.Resolve → Manager.Prepare → Runner.Run → Format → Manager.Dispose
//
// Engine wires that pipeline around any Runner (host processes or a
// container sandbox). The remote adapter skips the workspace and talks to a
// hosted API, but returns the same ExecutionResult. Dispatcher picks between
// them per call according to a Strategy.
package executor

import (
	"context"

	"github.com/sakif/code-runner/internal/language"
	"github.com/sakif/code-runner/internal/workspace"
)

// ExecutionRequest is one submission to run.
type ExecutionRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Stdin    string `json:"stdin,omitempty"`
}

// ExecutionResult is the stable, backend-independent outcome of a run.
//
// Output and Error are always strings, never absent: "no output" is the
// empty string. Error is empty on success; Stderr always carries the raw
// standard error, so informational stderr from a successful run is kept.
type ExecutionResult struct {
	Success         bool           `json:"success"`
	Output          string         `json:"output"`
	Error           string         `json:"error"`
	Stderr          string         `json:"stderr"`
	ExitCode        int            `json:"exitCode"`
	ExecutionTimeMs int64          `json:"executionTimeMs"`
	ExecutionTime   string         `json:"executionTime"`
	Language        string         `json:"language"`
	Online          bool           `json:"online"`
	Classification  Classification `json:"classification,omitempty"`
	Truncated       bool           `json:"truncated,omitempty"`
}

// Executor represents the core interface for running code.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

// Availability is the answer to a health probe.
type Availability struct {
	Available bool   `json:"available"`
	Detail    string `json:"detail"`
}

// Backend is an Executor that can say which languages it serves and
// whether it is reachable at all.
type Backend interface {
	Executor
	Name() string
	Supports(desc language.Descriptor) bool
	CheckAvailability(ctx context.Context) Availability
}

// Runner compiles (if needed) and runs a prepared workspace.
//
// Contract:
//   - Expected failures of user code (non-zero exit, timeout) are reported in
//     RawOutcome, never as an error.
//   - An error means the runner itself failed (toolchain missing, daemon down).
//   - Run must not return before every process it started has exited.
type Runner interface {
	Name() string
	Supports(desc language.Descriptor) bool
	Run(ctx context.Context, desc language.Descriptor, ws *workspace.Workspace) (*RawOutcome, error)
	CheckAvailability(ctx context.Context) Availability
}
