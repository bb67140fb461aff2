package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/code-runner/internal/apperror"
	"github.com/sakif/code-runner/internal/auth"
	"github.com/sakif/code-runner/internal/executor"
)

// ExecuteHandler handles code execution requests.
type ExecuteHandler struct {
	svc          Service
	strategy     executor.Strategy
	maxCodeBytes int
	logger       *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler. strategy is used when the
// request does not name a backend; maxCodeBytes <= 0 disables the size check.
func NewExecuteHandler(svc Service, strategy executor.Strategy, maxCodeBytes int, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		svc:          svc,
		strategy:     strategy,
		maxCodeBytes: maxCodeBytes,
		logger:       logger,
	}
}

// executeRequest is the JSON body of POST /api/execute. "input" is accepted
// as an older name for "stdin"; "backend" overrides the server's strategy.
type executeRequest struct {
	Code     string  `json:"code"`
	Language string  `json:"language"`
	Stdin    *string `json:"stdin"`
	Input    *string `json:"input"`
	Backend  string  `json:"backend"`
}

// executeResponse is the ExecutionResult flattened with a timestamp.
type executeResponse struct {
	*executor.ExecutionResult
	Timestamp string `json:"timestamp"`
}

// HandleExecute runs one submission.
//
// HTTP: POST /api/execute
//
//	{"code": "print(1+1)", "language": "python", "stdin": ""}
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	req, strategy, err := h.decode(r)
	if err != nil {
		h.logger.Warn("invalid execution request", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	subject, _ := auth.SubjectFromContext(r.Context())
	h.logger.Info("executing code",
		slog.String("language", req.Language),
		slog.String("strategy", string(strategy)),
		slog.Int("bytes", len(req.Code)),
		slog.String("caller", subject),
	)

	result, err := h.svc.Execute(r.Context(), req, strategy)
	if err != nil {
		if !errors.Is(err, apperror.ErrUnsupportedLanguage) {
			h.logger.Error("code execution failed", slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, executeResponse{
		ExecutionResult: result,
		Timestamp:       timestamp(),
	})
}

func (h *ExecuteHandler) decode(r *http.Request) (executor.ExecutionRequest, executor.Strategy, error) {
	var body executeRequest
	// Bound the body well above the code limit so JSON escaping still fits.
	reader := io.Reader(r.Body)
	if h.maxCodeBytes > 0 {
		reader = io.LimitReader(r.Body, int64(h.maxCodeBytes)*6+64<<10)
	}
	if err := json.NewDecoder(reader).Decode(&body); err != nil {
		return executor.ExecutionRequest{}, "", apperror.ValidationFailed("body", "request body must be a JSON object")
	}

	if strings.TrimSpace(body.Code) == "" || strings.TrimSpace(body.Language) == "" {
		return executor.ExecutionRequest{}, "", apperror.ValidationFailed("code", "Code and language are required")
	}
	if h.maxCodeBytes > 0 && len(body.Code) > h.maxCodeBytes {
		return executor.ExecutionRequest{}, "", apperror.ValidationFailed("code",
			fmt.Sprintf("code is %d bytes, the limit is %d", len(body.Code), h.maxCodeBytes))
	}

	strategy := h.strategy
	if body.Backend != "" {
		s, err := executor.ParseStrategy(body.Backend)
		if err != nil {
			return executor.ExecutionRequest{}, "", err
		}
		strategy = s
	}

	req := executor.ExecutionRequest{Code: body.Code, Language: body.Language}
	switch {
	case body.Stdin != nil:
		req.Stdin = *body.Stdin
	case body.Input != nil:
		req.Stdin = *body.Input
	}
	return req, strategy, nil
}
