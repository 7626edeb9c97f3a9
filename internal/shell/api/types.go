package api

import "time"

// =============================================================================
// Request Types
// =============================================================================

// RegisterAppRequest is the request body for registering or previewing an app.
type RegisterAppRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// =============================================================================
// Response Types
// =============================================================================

// AppResponse is the response for app operations.
type AppResponse struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Sequence    int64     `json:"sequence"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListAppsResponse is the response for listing apps.
type ListAppsResponse struct {
	Apps   []AppResponse `json:"apps"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ScaffoldFileResponse is one emitted file.
type ScaffoldFileResponse struct {
	Path    string `json:"path"`
	Mode    string `json:"mode"`
	Content string `json:"content"`
}

// ScaffoldResponse is the emitted file set of an app.
type ScaffoldResponse struct {
	Root   string                 `json:"root"`
	Digest string                 `json:"digest"`
	Files  []ScaffoldFileResponse `json:"files"`
	Assets []string               `json:"assets"`
}

// HealthResponse is the response for health checks.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
