package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tabcli/internal/services"
	"tabcli/internal/template"
)

// EngineHandler exposes the engine service over HTTP.
type EngineHandler struct {
	service *services.EngineService
	version string
	log     *slog.Logger
}

// NewEngineHandler builds the handler set.
func NewEngineHandler(service *services.EngineService, version string, log *slog.Logger) *EngineHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EngineHandler{
		service: service,
		version: version,
		log:     log.With(slog.String("handler", "engine")),
	}
}

// Preview handles POST /api/v1/preview.
func (h *EngineHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req services.PreviewRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, errInvalidRequest(err))
		return
	}
	if req.Path == "" {
		h.renderError(w, r, newAPIError(http.StatusBadRequest, "MISSING_PARAMETER", "path is required"))
		return
	}

	result, err := h.service.Preview(r.Context(), req)
	if err != nil {
		h.renderError(w, r, h.classify(err))
		return
	}
	render.JSON(w, r, result)
}

// Process handles POST /api/v1/process.
func (h *EngineHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req services.ProcessRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, errInvalidRequest(err))
		return
	}
	if req.Source == "" || req.OutputDir == "" {
		h.renderError(w, r, newAPIError(http.StatusBadRequest, "MISSING_PARAMETER",
			"source and output_dir are required"))
		return
	}

	result, err := h.service.Process(r.Context(), req)
	if err != nil {
		h.renderError(w, r, h.classify(err))
		return
	}
	render.JSON(w, r, result)
}

// Learn handles POST /api/v1/synonyms. The body is a header-to-field
// mapping confirmed by the caller.
func (h *EngineHandler) Learn(w http.ResponseWriter, r *http.Request) {
	var mapping map[string]string
	if err := render.DecodeJSON(r.Body, &mapping); err != nil {
		h.renderError(w, r, errInvalidRequest(err))
		return
	}

	added, path, err := h.service.Learn(mapping)
	if err != nil {
		h.renderError(w, r, errInternal(err))
		return
	}
	render.JSON(w, r, map[string]interface{}{"added": added, "path": path})
}

// TestConnection handles POST /api/v1/connections/{name}/test.
func (h *EngineHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	message, err := h.service.TestConnection(r.Context(), name)
	if err != nil {
		h.renderError(w, r, errInternal(err))
		return
	}
	render.JSON(w, r, map[string]string{"message": message})
}

// Health handles GET /api/health.
func (h *EngineHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Health(h.version))
}

func (h *EngineHandler) classify(err error) *APIError {
	switch {
	case errors.Is(err, services.ErrBusy):
		return errEngineBusy
	case errors.Is(err, template.ErrNotFound), errors.Is(err, template.ErrLegacyName):
		return errNotFound(err.Error())
	default:
		return errInternal(err)
	}
}

func (h *EngineHandler) renderError(w http.ResponseWriter, r *http.Request, apiErr *APIError) {
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("code", apiErr.ErrorCode),
			slog.Any("details", apiErr.Details))
	}
	if err := render.Render(w, r, apiErr); err != nil {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
	}
}
