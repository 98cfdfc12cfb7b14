package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerDescribesStoreAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterSwagger(g)

	page := get(g, "/swagger/index.html")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "/swagger/doc.json")

	w := get(g, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		OpenAPI string `json:"openapi"`
		Paths   map[string]map[string]struct {
			Responses map[string]json.RawMessage `json:"responses"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.0", doc.OpenAPI)

	writes := map[string]string{
		"/content/update": "post",
		"/pages":          "post",
		"/sections":       "post",
		"/product-images": "post",
	}
	for path, method := range writes {
		op, ok := doc.Paths[path][method]
		require.True(t, ok, "%s %s", method, path)
		assert.Contains(t, op.Responses, "409", "%s %s documents the conflict", method, path)
	}
	for _, path := range []string{"/content", "/directory/list", "/assets/metadata", "/health", "/ready"} {
		assert.Contains(t, doc.Paths, path)
	}
}
