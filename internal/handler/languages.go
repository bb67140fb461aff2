package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/language"
)

// LanguagesHandler serves registry introspection and the health probe.
type LanguagesHandler struct {
	svc      Service
	strategy executor.Strategy
	logger   *slog.Logger
}

// NewLanguagesHandler creates a LanguagesHandler. strategy selects which
// backends the health probe checks.
func NewLanguagesHandler(svc Service, strategy executor.Strategy, logger *slog.Logger) *LanguagesHandler {
	return &LanguagesHandler{svc: svc, strategy: strategy, logger: logger}
}

type languagesResponse struct {
	Success   bool            `json:"success"`
	Languages []language.Info `json:"languages"`
	Count     int             `json:"count"`
}

// HandleList returns every supported language.
//
// HTTP: GET /api/languages
func (h *LanguagesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	langs := h.svc.Languages()
	writeJSON(w, http.StatusOK, languagesResponse{
		Success:   true,
		Languages: langs,
		Count:     len(langs),
	})
}

type templatesResponse struct {
	Success   bool              `json:"success"`
	Language  string            `json:"language"`
	Templates map[string]string `json:"templates"`
}

// HandleTemplates returns starter programs for one language.
//
// HTTP: GET /api/languages/{language}/templates
//
// chi.URLParam reads the {language} segment matched by the router.
func (h *LanguagesHandler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "language")

	templates, err := h.svc.Templates(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templatesResponse{
		Success:   true,
		Language:  id,
		Templates: templates,
	})
}

type healthResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Available bool   `json:"available"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
}

// HandleHealth probes the configured backends.
//
// HTTP: GET /api/health
//
// Returns 503 when nothing can run code, so load balancers can act on it.
func (h *LanguagesHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	a := h.svc.CheckAvailability(r.Context(), h.strategy)

	status, code := "healthy", http.StatusOK
	if !a.Available {
		status, code = "unavailable", http.StatusServiceUnavailable
		h.logger.Warn("health check failed", slog.String("detail", a.Detail))
	}
	writeJSON(w, code, healthResponse{
		Success:   a.Available,
		Status:    status,
		Available: a.Available,
		Detail:    a.Detail,
		Timestamp: timestamp(),
	})
}
