package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-runner/internal/apperror"
	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/handler"
	"github.com/sakif/code-runner/internal/language"
)

// MockService implements handler.Service without running anything.
type MockService struct {
	CapturedReq      executor.ExecutionRequest
	CapturedStrategy executor.Strategy
	ReturnRes        *executor.ExecutionResult
	ReturnErr        error
	Availability     executor.Availability
}

func (m *MockService) Execute(_ context.Context, req executor.ExecutionRequest, s executor.Strategy) (*executor.ExecutionResult, error) {
	m.CapturedReq = req
	m.CapturedStrategy = s
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnRes, nil
}

func (m *MockService) Languages() []language.Info {
	return language.Default().List()
}

func (m *MockService) Templates(id string) (map[string]string, error) {
	return language.Default().Templates(id)
}

func (m *MockService) CheckAvailability(context.Context, executor.Strategy) executor.Availability {
	return m.Availability
}

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

func post(h *handler.ExecuteHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.HandleExecute(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func TestExecuteHandler_HandleExecute(t *testing.T) {
	t.Run("valid execution", func(t *testing.T) {
		mock := &MockService{
			ReturnRes: &executor.ExecutionResult{
				Success:         true,
				Output:          "2\n",
				ExecutionTimeMs: 12,
				ExecutionTime:   "12ms",
				Language:        "python",
			},
		}
		h := handler.NewExecuteHandler(mock, executor.StrategyAuto, 1000, logger)

		// A non-UTC clock checks the stamp is normalized.
		at := time.Date(2024, 3, 9, 14, 5, 7, 250_000_000, time.FixedZone("UTC+2", 2*60*60))
		t.Cleanup(handler.SetNow(func() time.Time { return at }))

		rr := post(h, `{"code":"print(1+1)","language":"python","stdin":"x"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeMap(t, rr)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "2\n", body["output"])
		assert.Equal(t, "", body["error"], "error is an empty string, never absent")
		assert.EqualValues(t, 0, body["exitCode"])
		assert.Equal(t, "12ms", body["executionTime"])
		assert.Equal(t, false, body["online"])
		assert.Equal(t, "2024-03-09T12:05:07.25Z", body["timestamp"])

		assert.Equal(t, "print(1+1)", mock.CapturedReq.Code)
		assert.Equal(t, "x", mock.CapturedReq.Stdin)
		assert.Equal(t, executor.StrategyAuto, mock.CapturedStrategy)
	})

	t.Run("failed program is still 200", func(t *testing.T) {
		mock := &MockService{ReturnRes: &executor.ExecutionResult{
			Success: false, Error: "Execution timed out after 2s", ExitCode: 124,
			Classification: executor.ClassTimeout,
		}}
		h := handler.NewExecuteHandler(mock, executor.StrategyAuto, 0, logger)

		rr := post(h, `{"code":"while True: pass","language":"python"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeMap(t, rr)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "timeout", body["classification"])
	})

	t.Run("input is an alias of stdin", func(t *testing.T) {
		mock := &MockService{ReturnRes: &executor.ExecutionResult{}}
		h := handler.NewExecuteHandler(mock, executor.StrategyAuto, 0, logger)

		post(h, `{"code":"x","language":"python","input":"42\n"}`)
		assert.Equal(t, "42\n", mock.CapturedReq.Stdin)

		post(h, `{"code":"x","language":"python","input":"ignored","stdin":"wins"}`)
		assert.Equal(t, "wins", mock.CapturedReq.Stdin)
	})

	t.Run("backend override", func(t *testing.T) {
		mock := &MockService{ReturnRes: &executor.ExecutionResult{}}
		h := handler.NewExecuteHandler(mock, executor.StrategyLocal, 0, logger)

		post(h, `{"code":"x","language":"python","backend":"remote"}`)
		assert.Equal(t, executor.StrategyRemote, mock.CapturedStrategy)

		rr := post(h, `{"code":"x","language":"python","backend":"cloud"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid request body", func(t *testing.T) {
		h := handler.NewExecuteHandler(&MockService{}, executor.StrategyAuto, 0, logger)

		rr := post(h, `{"invalid_json":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", decodeMap(t, rr)["error"])
	})

	t.Run("empty code or language", func(t *testing.T) {
		h := handler.NewExecuteHandler(&MockService{}, executor.StrategyAuto, 0, logger)

		assert.Equal(t, http.StatusBadRequest, post(h, `{"code":"","language":"python"}`).Code)
		assert.Equal(t, http.StatusBadRequest, post(h, `{"code":"print(1)"}`).Code)
	})

	t.Run("code too large", func(t *testing.T) {
		h := handler.NewExecuteHandler(&MockService{}, executor.StrategyAuto, 10, logger)

		rr := post(h, `{"code":"`+strings.Repeat("a", 11)+`","language":"python"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeMap(t, rr)["message"], "limit is 10")
	})

	t.Run("unsupported language lists known ids", func(t *testing.T) {
		mock := &MockService{ReturnErr: apperror.UnsupportedLanguage("cobol", []string{"c", "python"})}
		h := handler.NewExecuteHandler(mock, executor.StrategyAuto, 0, logger)

		rr := post(h, `{"code":"x","language":"cobol"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeMap(t, rr)
		assert.Equal(t, "unsupported_language", body["error"])
		assert.Equal(t, "language", body["field"])
		assert.Equal(t, "unsupported_language", body["classification"])
		assert.Contains(t, body["message"], "c, python")
	})

	t.Run("no backend", func(t *testing.T) {
		mock := &MockService{ReturnErr: apperror.Unavailable("no backend can run Haskell")}
		h := handler.NewExecuteHandler(mock, executor.StrategyAuto, 0, logger)

		rr := post(h, `{"code":"x","language":"haskell"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.NotContains(t, decodeMap(t, rr), "classification", "not the submission's fault")
	})

	t.Run("infrastructure failure hides details", func(t *testing.T) {
		mock := &MockService{ReturnErr: apperror.Workspace("prepare", errors.New("open /var/secret: permission denied"))}
		h := handler.NewExecuteHandler(mock, executor.StrategyAuto, 0, logger)

		rr := post(h, `{"code":"x","language":"python"}`)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "/var/secret")
	})
}

func TestLanguagesHandler(t *testing.T) {
	mock := &MockService{}
	h := handler.NewLanguagesHandler(mock, executor.StrategyAuto, logger)

	r := chi.NewRouter()
	r.Get("/api/languages", h.HandleList)
	r.Get("/api/languages/{language}/templates", h.HandleTemplates)
	r.Get("/api/health", h.HandleHealth)

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	t.Run("list", func(t *testing.T) {
		rr := get("/api/languages")
		require.Equal(t, http.StatusOK, rr.Code)

		var body struct {
			Success   bool            `json:"success"`
			Languages []language.Info `json:"languages"`
			Count     int             `json:"count"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.True(t, body.Success)
		assert.Equal(t, len(body.Languages), body.Count)
		i := indexOf(body.Languages, "python")
		require.GreaterOrEqual(t, i, 0)
		assert.Equal(t, "Python", body.Languages[i].DisplayName)
	})

	t.Run("templates", func(t *testing.T) {
		rr := get("/api/languages/python/templates")
		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeMap(t, rr)
		templates := body["templates"].(map[string]any)
		assert.Contains(t, templates, "hello")
	})

	t.Run("templates for unknown language", func(t *testing.T) {
		rr := get("/api/languages/cobol/templates")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("templates for language without starters", func(t *testing.T) {
		rr := get("/api/languages/haskell/templates")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("health ok", func(t *testing.T) {
		mock.Availability = executor.Availability{Available: true, Detail: "local: 3 toolchains installed"}
		rr := get("/api/health")
		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeMap(t, rr)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, true, body["available"])
	})

	t.Run("health unavailable", func(t *testing.T) {
		mock.Availability = executor.Availability{Available: false, Detail: "remote: Service unavailable"}
		rr := get("/api/health")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "unavailable", decodeMap(t, rr)["status"])
	})
}

func indexOf(infos []language.Info, name string) int {
	for i, info := range infos {
		if info.Name == name {
			return i
		}
	}
	return -1
}
