package api

import (
	"net/http"

	"github.com/artpar/appforge/internal/shell/api/openapi"
)

// NewSpec describes the routes served by Handler.
func NewSpec() *openapi.Generator {
	g := openapi.NewGenerator()

	g.RegisterModel(openapi.Model{Name: "RegisterAppRequest", Value: RegisterAppRequest{}})
	g.RegisterModel(openapi.Model{Name: "App", Value: AppResponse{}})
	g.RegisterModel(openapi.Model{Name: "AppList", Value: ListAppsResponse{}})
	g.RegisterModel(openapi.Model{Name: "Scaffold", Value: ScaffoldResponse{}})
	g.RegisterModel(openapi.Model{Name: "Error", Value: ErrorResponse{}})
	g.RegisterModel(openapi.Model{Name: "Health", Value: HealthResponse{}})

	g.RegisterRoute(openapi.Route{
		Method: http.MethodGet, Path: "/health", OperationID: "health",
		Summary: "Liveness check", Tag: "Health",
		Responses: map[int]string{http.StatusOK: "Health"},
	})
	g.RegisterRoute(openapi.Route{
		Method: http.MethodPost, Path: "/api/v1/apps", OperationID: "registerApp",
		Summary: "Register an app", Tag: "Apps", Request: "RegisterAppRequest",
		Responses: map[int]string{http.StatusCreated: "App", http.StatusBadRequest: "Error"},
	})
	g.RegisterRoute(openapi.Route{
		Method: http.MethodGet, Path: "/api/v1/apps", OperationID: "listApps",
		Summary: "List apps in registration order", Tag: "Apps",
		Responses: map[int]string{http.StatusOK: "AppList"},
	})
	g.RegisterRoute(openapi.Route{
		Method: http.MethodPost, Path: "/api/v1/apps/preview", OperationID: "previewApp",
		Summary: "Preview a registration without storing it", Tag: "Apps", Request: "RegisterAppRequest",
		Responses: map[int]string{http.StatusOK: "App", http.StatusBadRequest: "Error"},
	})
	g.RegisterRoute(openapi.Route{
		Method: http.MethodGet, Path: "/api/v1/apps/{slug}", OperationID: "getApp",
		Summary: "Get an app", Tag: "Apps",
		Responses: map[int]string{http.StatusOK: "App", http.StatusNotFound: "Error"},
	})
	g.RegisterRoute(openapi.Route{
		Method: http.MethodDelete, Path: "/api/v1/apps/{slug}", OperationID: "deregisterApp",
		Summary: "Deregister an app", Tag: "Apps",
		Responses: map[int]string{http.StatusNoContent: "", http.StatusNotFound: "Error"},
	})
	g.RegisterRoute(openapi.Route{
		Method: http.MethodGet, Path: "/api/v1/apps/{slug}/scaffold", OperationID: "getScaffold",
		Summary: "Emit the scaffold of an app", Tag: "Apps",
		Responses: map[int]string{http.StatusOK: "Scaffold", http.StatusNotFound: "Error"},
	})

	return g
}
