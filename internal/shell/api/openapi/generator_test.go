package openapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleBody struct {
	Name      string    `json:"name"`
	Count     int64     `json:"count"`
	Tags      []string  `json:"tags,omitempty"`
	Raw       []byte    `json:"raw"`
	CreatedAt time.Time `json:"created_at"`
	Hidden    string    `json:"-"`
}

func newSampleGenerator() *Generator {
	g := NewGenerator(WithTitle("Test API"), WithVersion("2.0.0"), WithServer("http://localhost:8080"))
	g.RegisterModel(Model{Name: "Sample", Value: sampleBody{}})
	g.RegisterRoute(Route{
		Method: http.MethodPost, Path: "/things", OperationID: "createThing",
		Request: "Sample", Responses: map[int]string{http.StatusCreated: "Sample"},
	})
	g.RegisterRoute(Route{
		Method: http.MethodGet, Path: "/things/{id}", OperationID: "getThing",
		Responses: map[int]string{http.StatusOK: "Sample"},
	})
	g.RegisterRoute(Route{
		Method: http.MethodDelete, Path: "/things/{id}", OperationID: "deleteThing",
		Responses: map[int]string{http.StatusNoContent: ""},
	})
	return g
}

func TestGenerate_Info(t *testing.T) {
	spec := newSampleGenerator().Generate()
	assert.Equal(t, "Test API", spec.Info.Title)
	assert.Equal(t, "2.0.0", spec.Info.Version)
	require.Len(t, spec.Servers, 1)
	assert.Equal(t, "http://localhost:8080", spec.Servers[0].URL)
}

func TestGenerate_Schema(t *testing.T) {
	spec := newSampleGenerator().Generate()
	schema := spec.Components.Schemas["Sample"].Value
	require.NotNil(t, schema)

	assert.Contains(t, schema.Properties, "name")
	assert.Contains(t, schema.Properties, "tags")
	assert.NotContains(t, schema.Properties, "Hidden")
	assert.Equal(t, "int64", schema.Properties["count"].Value.Format)
	assert.Equal(t, "byte", schema.Properties["raw"].Value.Format)
	assert.Equal(t, "date-time", schema.Properties["created_at"].Value.Format)
}

func TestGenerate_Paths(t *testing.T) {
	spec := newSampleGenerator().Generate()

	item := spec.Paths.Value("/things/{id}")
	require.NotNil(t, item)
	assert.Equal(t, "getThing", item.Get.OperationID)
	assert.Equal(t, "deleteThing", item.Delete.OperationID)
	require.Len(t, item.Parameters, 1)
	assert.Equal(t, "id", item.Parameters[0].Value.Name)

	create := spec.Paths.Value("/things").Post
	require.NotNil(t, create)
	assert.NotNil(t, create.RequestBody)
	assert.NotNil(t, create.Responses.Status(http.StatusCreated))
}

func TestGenerate_Validates(t *testing.T) {
	spec := newSampleGenerator().Generate()
	assert.NoError(t, spec.Validate(context.Background()))
}

func TestGenerate_Cached(t *testing.T) {
	g := newSampleGenerator()
	assert.Same(t, g.Generate(), g.Generate())

	before := g.Generate()
	g.RegisterModel(Model{Name: "Other", Value: sampleBody{}})
	assert.NotSame(t, before, g.Generate())
}
