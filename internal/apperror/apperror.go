// Package apperror defines the error taxonomy shared by the execution engine
// and its HTTP surface.
//
// Only infrastructure and request problems are Go errors. A submission that
// fails to compile, exits non-zero or runs out of time is NOT an error here:
// it comes back as a populated executor.ExecutionResult.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrWorkspace           = errors.New("workspace error")
	ErrUnavailable         = errors.New("backend unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// UnsupportedLanguage reports an unknown language identifier together with
// every identifier the registry does know, so callers can show actionable
// feedback instead of a generic failure.
func UnsupportedLanguage(id string, known []string) *AppError {
	return &AppError{
		Err: ErrUnsupportedLanguage,
		Message: fmt.Sprintf("unsupported language %q, supported languages: %s",
			id, strings.Join(known, ", ")),
		Field: "language",
	}
}

// Workspace wraps a filesystem failure while staging or cleaning up an
// execution. It is an infrastructure failure, not a problem with user code.
func Workspace(op string, err error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrWorkspace, err),
		Message: fmt.Sprintf("workspace %s failed", op),
	}
}

// Unavailable reports that no backend can run the requested language.
func Unavailable(message string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: message,
	}
}
