package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the store service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>siteadmin-store - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Every write takes the sha the caller last read and answers 409 when it is stale.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "siteadmin-store", "version": "v0.1.0" },
  "components": {
    "responses": {
      "Conflict": { "description": "sha is stale; refresh and retry", "content": { "application/json": { "schema": {"type":"object","properties":{"error":{"type":"string"}}}}}},
      "Invalid": { "description": "document failed validation" }
    }
  },
  "paths": {
    "/content": {
      "get": { "summary": "Read the content document", "responses": { "200": { "description": "{content, sha}" } } }
    },
    "/content/update": {
      "post": {
        "summary": "Replace the content document",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"newContent":{"type":"object"},"sha":{"type":"string"}}}}}},
        "responses": { "200": { "description": "{newSha}" }, "409": { "$ref": "#/components/responses/Conflict" }, "422": { "$ref": "#/components/responses/Invalid" } }
      }
    },
    "/pages": {
      "get": { "summary": "Read the pages document", "responses": { "200": { "description": "{pages, sha}" } } },
      "post": {
        "summary": "Replace the pages document",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"pages":{"type":"object"},"sha":{"type":"string"}}}}}},
        "responses": { "200": { "description": "{sha, pages}" }, "409": { "$ref": "#/components/responses/Conflict" }, "422": { "$ref": "#/components/responses/Invalid" } }
      }
    },
    "/sections": {
      "get": { "summary": "Read the sections document", "responses": { "200": { "description": "{sections, sha}" } } },
      "post": {
        "summary": "Replace the sections document",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"sections":{"type":"array"},"sha":{"type":"string"}}}}}},
        "responses": { "200": { "description": "{sha, sections}" }, "409": { "$ref": "#/components/responses/Conflict" }, "422": { "$ref": "#/components/responses/Invalid" } }
      }
    },
    "/directory/list": {
      "get": { "summary": "List asset file names in a directory", "parameters": [{"name":"path","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "{files}" } } }
    },
    "/assets/metadata": {
      "get": { "summary": "Current sha of an asset", "parameters": [{"name":"path","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "{sha}" }, "404": { "description": "no such asset" } } }
    },
    "/product-images": {
      "post": {
        "summary": "Upload an asset; omit sha to create a new file",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"path":{"type":"string"},"contentBase64":{"type":"string"},"sha":{"type":"string"}}}}}},
        "responses": { "200": { "description": "{newSha, fileUrl}" }, "400": { "description": "bad path or content" }, "409": { "$ref": "#/components/responses/Conflict" } }
      }
    },
    "/auth/revoke": {
      "post": { "summary": "Revoke the bearer token of this request (needs Redis)", "responses": { "200": { "description": "{revoked}" }, "401": { "description": "missing or invalid token" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
