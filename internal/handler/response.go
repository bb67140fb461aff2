package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// WHY HELPERS?
// Without helpers, every handler repeats the same boilerplate:
//   w.Header().Set("Content-Type", "application/json")
//   w.WriteHeader(statusCode)
//   json.NewEncoder(w).Encode(data)
//
// With helpers, handlers are cleaner and more consistent:
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"success": false, "error": "unsupported_language",
//    "message": "unsupported language \"cobol\", supported languages: bash, c, ...",
//    "field": "language"}
//
// Clients always know what fields to expect, whether it's a 400, 404, 503 or 500.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/code-runner/internal/apperror"
	"github.com/sakif/code-runner/internal/executor"
)

// ErrorResponse is the standard error format returned by all API endpoints.
// Having a struct ensures consistent JSON shape across all error responses.
type ErrorResponse struct {
	Success bool   `json:"success"`         // Always false
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Request field at fault, if any
	// Classification matches ExecutionResult.classification when the error
	// is about the submission itself (e.g. "unsupported_language").
	Classification executor.Classification `json:"classification,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
// Any header changes after that are silently ignored.
//
// That's why we do:
//  1. w.Header().Set(...)     ← set headers
//  2. w.WriteHeader(status)   ← send status + headers
//  3. json.Encode(data)       ← send body
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// If encoding fails, the headers are already sent, so we can only log it.
			// This is rare (usually means the data has an unencodable type like a channel).
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
// This is where engine errors get translated to HTTP:
//
//	ErrValidation, ErrUnsupportedLanguage → 400 (the caller can fix the request)
//	ErrNotFound                           → 404
//	ErrUnavailable                        → 503 (no backend can run it right now)
//	anything else, incl. ErrWorkspace     → 500
//
// WHY HERE AND NOT IN THE ENGINE?
// The engine should not know about HTTP status codes. The CLI maps the very
// same errors to exit codes instead.
//
// errors.Is() UNWRAPPING:
// errors.Is(err, target) walks the entire error chain (via Unwrap())
// to see if `target` appears anywhere. This works because:
//
//	engine returns:  fmt.Errorf("running java on local: %w", apperror.Unavailable(...))
//	which wraps:     AppError{Err: ErrUnavailable, Message: "..."}
//	errors.Is walks: outer error → AppError → ErrUnavailable ✓ match!
func writeError(w http.ResponseWriter, err error) {
	// Try to extract our AppError for the human-readable message
	var appErr *apperror.AppError

	// errors.As() is like errors.Is() but extracts the error value.
	// It walks the chain and fills appErr if it finds an *AppError.
	if errors.As(err, &appErr) {
		// We have a typed application error; map it to HTTP
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnsupportedLanguage):
			status = http.StatusBadRequest // 400
			errorType = "unsupported_language"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
			errorType = "not_found"
		case errors.Is(err, apperror.ErrUnavailable):
			status = http.StatusServiceUnavailable // 503
			errorType = "unavailable"
		}

		message := appErr.Message
		if status == http.StatusInternalServerError {
			// e.g. a WorkspaceError: an infrastructure failure, not the caller's fault
			message = "An internal error occurred"
		}

		writeJSON(w, status, ErrorResponse{
			Error:          errorType,
			Message:        message,
			Field:          appErr.Field,
			Classification: executor.Classify(err),
		})
		return
	}

	// Unknown error: return a generic 500
	// NEVER expose internal error details to the client in production!
	// The raw error message might contain file paths or toolchain details.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
