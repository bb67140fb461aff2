// Package handler contains the HTTP handlers of the execution API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, a function with the right signature (http.HandlerFunc).
// Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (URL params, body, headers)
// 2. Call the engine through the Service interface
// 3. Write the HTTP response (status code, headers, body)
//
// A failed submission (compile error, non-zero exit, timeout) is still a
// 200 response: the request was served, the program just didn't succeed.
// Non-2xx statuses are reserved for requests the engine could not serve.
package handler

import (
	"context"
	"time"

	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/language"
)

// Service is what the handlers need from the engine.
// *executor.Dispatcher satisfies it; tests use a mock.
type Service interface {
	Execute(ctx context.Context, req executor.ExecutionRequest, strategy executor.Strategy) (*executor.ExecutionResult, error)
	Languages() []language.Info
	Templates(id string) (map[string]string, error)
	CheckAvailability(ctx context.Context, strategy executor.Strategy) executor.Availability
}

// now is swapped in tests.
var now = time.Now

func timestamp() string {
	return now().UTC().Format(time.RFC3339Nano)
}
