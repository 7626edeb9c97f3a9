// Package api provides HTTP handlers for the AppForge registration API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/artpar/appforge/internal/core/domain"
	"github.com/artpar/appforge/internal/core/scaffold"
	"github.com/artpar/appforge/internal/shell/api/openapi"
	"github.com/artpar/appforge/internal/shell/registration"
	"github.com/artpar/appforge/internal/shell/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps request bodies; titles and descriptions are short.
const maxBodyBytes = 64 << 10

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	service *registration.Service
	spec    *openapi.Generator
	logger  *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *registration.Service, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		service: svc,
		spec:    NewSpec(),
		logger:  l,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	r.Get("/health", h.handleHealth)
	r.Get("/openapi.json", h.spec.Handler())

	r.Route("/api/v1/apps", func(r chi.Router) {
		r.Post("/", h.handleRegisterApp)
		r.Get("/", h.handleListApps)
		r.Post("/preview", h.handlePreviewApp)
		r.Get("/{slug}", h.handleGetApp)
		r.Delete("/{slug}", h.handleDeregisterApp)
		r.Get("/{slug}/scaffold", h.handleGetScaffold)
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// =============================================================================
// App Handlers
// =============================================================================

func (h *Handler) handleRegisterApp(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRegisterRequest(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to register app")
		return
	}

	w.Header().Set("Location", "/api/v1/apps/"+rec.Slug)
	h.writeJSON(w, http.StatusCreated, appToResponse(rec))
}

func (h *Handler) handlePreviewApp(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRegisterRequest(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Preview(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to preview app")
		return
	}

	h.writeJSON(w, http.StatusOK, appToResponse(rec))
}

func (h *Handler) handleGetApp(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	rec, err := h.service.Get(r.Context(), slug)
	if err != nil {
		h.writeServiceError(w, err, "failed to get app")
		return
	}

	h.writeJSON(w, http.StatusOK, appToResponse(rec))
}

func (h *Handler) handleListApps(w http.ResponseWriter, r *http.Request) {
	opts := store.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}
	opts = opts.Normalize()

	apps, err := h.service.List(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, err, "failed to list apps")
		return
	}

	resp := ListAppsResponse{
		Apps:   make([]AppResponse, 0, len(apps)),
		Total:  len(apps),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	for _, a := range apps {
		resp.Apps = append(resp.Apps, appToResponse(a))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeregisterApp(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if err := h.service.Deregister(r.Context(), slug); err != nil {
		h.writeServiceError(w, err, "failed to deregister app")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetScaffold(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	fs, err := h.service.Scaffold(r.Context(), slug)
	if err != nil {
		h.writeServiceError(w, err, "failed to emit scaffold")
		return
	}

	h.writeJSON(w, http.StatusOK, scaffoldToResponse(fs))
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) decodeRegisterRequest(w http.ResponseWriter, r *http.Request) (domain.AppRequest, bool) {
	var req RegisterAppRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return domain.AppRequest{}, false
	}
	return domain.AppRequest{Title: req.Title, Description: req.Description}, true
}

// writeServiceError maps registration and store errors to HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidTitle):
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_title")
	case errors.Is(err, domain.ErrTextBoundViolation):
		h.writeError(w, http.StatusBadRequest, err.Error(), "text_bound_violation")
	case store.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, "app not found", "app_not_found")
	case errors.Is(err, domain.ErrRegistryCorruption):
		h.logger.Error(msg, "error", err)
		h.writeError(w, http.StatusInternalServerError, "registry corruption", "registry_corruption")
	default:
		h.logger.Error(msg, "error", err)
		h.writeError(w, http.StatusInternalServerError, msg, "internal_error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func appToResponse(rec domain.AppRecord) AppResponse {
	return AppResponse{
		ID:          rec.ReferenceID,
		Slug:        rec.Slug,
		Title:       rec.Title,
		Description: rec.Description,
		Sequence:    rec.Sequence,
		CreatedAt:   rec.CreatedAt,
	}
}

func scaffoldToResponse(fs scaffold.FileSet) ScaffoldResponse {
	resp := ScaffoldResponse{
		Root:   fs.Root,
		Digest: fs.Digest(),
		Files:  make([]ScaffoldFileResponse, 0, len(fs.Files)),
		Assets: fs.Assets,
	}
	for _, f := range fs.Files {
		resp.Files = append(resp.Files, ScaffoldFileResponse{
			Path:    f.Path,
			Mode:    f.Mode,
			Content: string(f.Content),
		})
	}
	return resp
}
