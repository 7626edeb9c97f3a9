package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artpar/appforge/internal/core/scaffold"
	"github.com/artpar/appforge/internal/shell/registration"
	"github.com/artpar/appforge/internal/shell/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := registration.NewService(store.NewMemoryStore(), registration.Config{}, logger)
	return NewHandler(svc, logger).Routes()
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// =============================================================================
// Health Tests
// =============================================================================

func TestHealth(t *testing.T) {
	h := setupHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)
}

// =============================================================================
// Register Tests
// =============================================================================

func TestRegisterApp(t *testing.T) {
	h := setupHandler(t)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/apps", RegisterAppRequest{
		Title:       "BUILD me a",
		Description: "Build me a log anyltics tool wesbsite that showsthat auto capture events",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/apps/build-me-a", rec.Header().Get("Location"))

	app := decode[AppResponse](t, rec)
	assert.Equal(t, "build-me-a", app.Slug)
	assert.Equal(t, "BUILD me a", app.Title)
	assert.Equal(t, "Build me a log anyltics tool wesbsite that showsthat auto capt", app.Description)
	assert.Equal(t, int64(1), app.Sequence)
	assert.NotEmpty(t, app.ID)
}

func TestRegisterApp_Collision(t *testing.T) {
	h := setupHandler(t)
	doRequest(t, h, http.MethodPost, "/api/v1/apps", RegisterAppRequest{Title: "Blog"})
	rec := doRequest(t, h, http.MethodPost, "/api/v1/apps", RegisterAppRequest{Title: "BLOG"})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "blog-2", decode[AppResponse](t, rec).Slug)
}

func TestRegisterApp_InvalidTitle(t *testing.T) {
	h := setupHandler(t)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/apps", RegisterAppRequest{Title: "..."})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_title", decode[ErrorResponse](t, rec).Code)

	list := doRequest(t, h, http.MethodGet, "/api/v1/apps", nil)
	assert.Equal(t, 0, decode[ListAppsResponse](t, list).Total)
}

func TestRegisterApp_InvalidJSON(t *testing.T) {
	h := setupHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/apps", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode[ErrorResponse](t, rec).Code)
}

// =============================================================================
// Preview Tests
// =============================================================================

func TestPreviewApp_DoesNotRegister(t *testing.T) {
	h := setupHandler(t)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/apps/preview", RegisterAppRequest{Title: "is Make me"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "is-make-me", decode[AppResponse](t, rec).Slug)

	get := doRequest(t, h, http.MethodGet, "/api/v1/apps/is-make-me", nil)
	assert.Equal(t, http.StatusNotFound, get.Code)
}

// =============================================================================
// Get / List / Deregister Tests
// =============================================================================

func TestGetApp(t *testing.T) {
	h := setupHandler(t)
	doRequest(t, h, http.MethodPost, "/api/v1/apps", RegisterAppRequest{Title: "BULDMEA"})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/apps/buldmea", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BULDMEA", decode[AppResponse](t, rec).Title)
}

func TestGetApp_NotFound(t *testing.T) {
	h := setupHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/api/v1/apps/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "app_not_found", decode[ErrorResponse](t, rec).Code)
}

func TestListApps_OrderedBySequence(t *testing.T) {
	h := setupHandler(t)
	for _, title := range []string{"zeta", "alpha", "mid"} {
		doRequest(t, h, http.MethodPost, "/api/v1/apps", RegisterAppRequest{Title: title})
	}

	rec := doRequest(t, h, http.MethodGet, "/api/v1/apps?limit=2&offset=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ListAppsResponse](t, rec)
	require.Len(t, resp.Apps, 2)
	assert.Equal(t, "alpha", resp.Apps[0].Slug)
	assert.Equal(t, "mid", resp.Apps[1].Slug)
	assert.Equal(t, 2, resp.Limit)
	assert.Equal(t, 1, resp.Offset)
}

func TestDeregisterApp(t *testing.T) {
	h := setupHandler(t)
	doRequest(t, h, http.MethodPost, "/api/v1/apps", RegisterAppRequest{Title: "blog"})

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/apps/blog", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodDelete, "/api/v1/apps/blog", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// Scaffold Tests
// =============================================================================

func TestGetScaffold(t *testing.T) {
	h := setupHandler(t)
	doRequest(t, h, http.MethodPost, "/api/v1/apps", RegisterAppRequest{Title: "Log Tool", Description: "Events"})

	first := doRequest(t, h, http.MethodGet, "/api/v1/apps/log-tool/scaffold", nil)
	require.Equal(t, http.StatusOK, first.Code)
	second := doRequest(t, h, http.MethodGet, "/api/v1/apps/log-tool/scaffold", nil)
	require.Equal(t, http.StatusOK, second.Code)

	resp := decode[ScaffoldResponse](t, first)
	assert.Equal(t, "log-tool", resp.Root)
	assert.Equal(t, []string{scaffold.DefaultStylesheet}, resp.Assets)
	require.Len(t, resp.Files, 2)
	assert.Equal(t, scaffold.EntryShellPath, resp.Files[0].Path)
	assert.Contains(t, resp.Files[0].Content, `title: "Log Tool",`)
	assert.Equal(t, resp.Digest, decode[ScaffoldResponse](t, second).Digest)
}

func TestGetScaffold_NotFound(t *testing.T) {
	h := setupHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/api/v1/apps/missing/scaffold", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// OpenAPI Tests
// =============================================================================

func TestOpenAPI(t *testing.T) {
	h := setupHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/openapi.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/v1/apps")
	assert.Contains(t, paths, "/api/v1/apps/{slug}/scaffold")
}
