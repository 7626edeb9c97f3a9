// Package openapi builds the OpenAPI 3.0 document of the registration API.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces an OpenAPI 3.0 document from registered models and routes.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string
	models      []Model
	routes      []Route
	mu          sync.RWMutex
	cachedSpec  *openapi3.T
}

// Model is a named request or response body type. Its schema is derived by
// reflecting on the json tags of Value.
type Model struct {
	Name  string
	Value any
}

// Route describes one operation.
type Route struct {
	Method      string // GET, POST, DELETE
	Path        string // e.g. /api/v1/apps/{slug}
	OperationID string
	Summary     string
	Tag         string
	Request     string         // model name of the request body, if any
	Responses   map[int]string // status -> model name ("" for no body)
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) {
		g.servers = append(g.servers, url)
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "AppForge API",
		version:     "1.0.0",
		description: "Registers generated apps and emits their scaffolds",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RegisterModel adds a body schema.
func (g *Generator) RegisterModel(m Model) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.models = append(g.models, m)
	g.cachedSpec = nil
}

// RegisterRoute adds an operation.
func (g *Generator) RegisterRoute(r Route) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes = append(g.routes, r)
	g.cachedSpec = nil
}

// Generate produces the complete OpenAPI 3.0 document.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double-check after acquiring write lock
	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Servers: make(openapi3.Servers, 0, len(g.servers)),
		Paths:   &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}

	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	for _, m := range g.models {
		spec.Components.Schemas[m.Name] = extractSchema(m.Value)
	}

	for _, r := range g.routes {
		item := spec.Paths.Value(r.Path)
		if item == nil {
			item = &openapi3.PathItem{Parameters: pathParameters(r.Path)}
			spec.Paths.Set(r.Path, item)
		}
		item.SetOperation(r.Method, buildOperation(r, spec.Components.Schemas))
	}

	g.cachedSpec = spec
	return spec
}

// Handler returns an HTTP handler that serves the OpenAPI document.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Operation Generation
// =============================================================================

func buildOperation(r Route, schemas openapi3.Schemas) *openapi3.Operation {
	op := &openapi3.Operation{
		OperationID: r.OperationID,
		Summary:     r.Summary,
		Responses:   &openapi3.Responses{},
	}
	if r.Tag != "" {
		op.Tags = []string{r.Tag}
	}

	if r.Request != "" {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(schemaRef(r.Request, schemas)),
		}
	}

	for status, model := range r.Responses {
		resp := openapi3.NewResponse().WithDescription(http.StatusText(status))
		if model != "" {
			resp = resp.WithJSONSchemaRef(schemaRef(model, schemas))
		}
		op.AddResponse(status, resp)
	}
	return op
}

// pathParameters declares every {name} segment of path as a string parameter.
func pathParameters(path string) openapi3.Parameters {
	var params openapi3.Parameters
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			params = append(params, &openapi3.ParameterRef{
				Value: openapi3.NewPathParameter(seg[1 : len(seg)-1]).
					WithSchema(openapi3.NewStringSchema()),
			})
		}
	}
	return params
}

// schemaRef points at a component schema, carrying its resolved value so the
// document validates without a loader pass.
func schemaRef(name string, schemas openapi3.Schemas) *openapi3.SchemaRef {
	var value *openapi3.Schema
	if ref := schemas[name]; ref != nil {
		value = ref.Value
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+name, value)
}

// =============================================================================
// Schema Generation
// =============================================================================

// extractSchema extracts an OpenAPI schema from a Go struct.
func extractSchema(model any) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		if propSchema := goTypeToSchema(field.Type); propSchema != nil {
			schema.Properties[name] = propSchema
		}
	}

	return &openapi3.SchemaRef{Value: schema}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func goTypeToSchema(t reflect.Type) *openapi3.SchemaRef {
	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}

	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Slice, reflect.Array:
		// []byte is marshalled by encoding/json as base64.
		if t.Elem().Kind() == reflect.Uint8 {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "byte"}}
		}
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: goTypeToSchema(t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: goTypeToSchema(t.Elem())},
			},
		}

	case reflect.Ptr:
		schema := goTypeToSchema(t.Elem())
		if schema != nil && schema.Value != nil {
			schema.Value.Nullable = true
		}
		return schema

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
			}
		}
		return extractSchema(reflect.New(t).Interface())

	default:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
}
