package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/code-runner/internal/apperror"
)

// TimeoutExitCode is reported for runs killed by the wall-clock bound,
// matching the convention of the unix timeout command.
const TimeoutExitCode = 124

// Stage is the pipeline step a RawOutcome came from.
type Stage string

const (
	StageCompile Stage = "compile"
	StageRun     Stage = "run"
)

// Classification names why a run did not succeed.
type Classification string

const (
	ClassNone                Classification = ""
	ClassCompileError        Classification = "compile_error"
	ClassRuntimeError        Classification = "runtime_error"
	ClassTimeout             Classification = "timeout"
	ClassUnsupportedLanguage Classification = "unsupported_language"
)

// RawOutcome is what a Runner observed, before normalization.
type RawOutcome struct {
	Stage     Stage
	Stdout    string
	Stderr    string
	ExitCode  int
	TimedOut  bool
	Truncated bool
	// Limit is the wall-clock bound that applied to Stage.
	Limit   time.Duration
	Elapsed time.Duration
}

// Format converts a RawOutcome into the stable ExecutionResult.
func Format(raw *RawOutcome, lang string, online bool) *ExecutionResult {
	ms := raw.Elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}

	res := &ExecutionResult{
		Output:          raw.Stdout,
		Stderr:          raw.Stderr,
		ExitCode:        raw.ExitCode,
		ExecutionTimeMs: ms,
		ExecutionTime:   fmt.Sprintf("%dms", ms),
		Language:        lang,
		Online:          online,
		Truncated:       raw.Truncated,
	}

	switch {
	case raw.TimedOut:
		res.Classification = ClassTimeout
		res.ExitCode = TimeoutExitCode
		msg := "Execution timed out"
		if raw.Limit > 0 {
			msg = fmt.Sprintf("Execution timed out after %s", raw.Limit)
		}
		res.Error = joinLines(raw.Stderr, msg)
	case raw.ExitCode != 0 && raw.Stage == StageCompile:
		res.Classification = ClassCompileError
		res.Error = firstNonEmpty(raw.Stderr, raw.Stdout, "Compilation failed")
	case raw.ExitCode != 0:
		res.Classification = ClassRuntimeError
		res.Error = firstNonEmpty(raw.Stderr, fmt.Sprintf("Process exited with code %d", raw.ExitCode))
	default:
		res.Success = true
	}

	return res
}

// Classify maps an error returned by an Executor to a Classification.
// Errors that are not about the submission map to ClassNone.
func Classify(err error) Classification {
	if errors.Is(err, apperror.ErrUnsupportedLanguage) {
		return ClassUnsupportedLanguage
	}
	return ClassNone
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinLines(head, tail string) string {
	if strings.TrimSpace(head) == "" {
		return tail
	}
	return strings.TrimRight(head, "\n") + "\n" + tail
}
