package handlers

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Endpoint describes one route for the docs page and the OpenAPI document.
type Endpoint struct {
	Method    string
	Path      string
	Summary   string
	Protected bool
	Body      bool
}

// Endpoints lists the public surface of the service.
var Endpoints = []Endpoint{
	{Method: http.MethodGet, Path: "/health", Summary: "Service and history store status"},
	{Method: http.MethodGet, Path: "/history", Summary: "Most recent inference requests", Protected: true},
	{Method: http.MethodPost, Path: "/sentiment", Summary: "Sentiment analysis of English text", Protected: true, Body: true},
	{Method: http.MethodPost, Path: "/translate", Summary: "English to French translation", Protected: true, Body: true},
	{Method: http.MethodGet, Path: "/metrics", Summary: "Prometheus metrics"},
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}} <small>{{.Version}}</small></h1>
<p>Protected endpoints require the <code>{{.Header}}</code> header.  Machine-readable schema: <a href="/openapi.json">/openapi.json</a>.</p>
<table border="1" cellpadding="4">
<tr><th>Method</th><th>Path</th><th>Auth</th><th>Description</th></tr>
{{range .Endpoints}}<tr><td>{{.Method}}</td><td><code>{{.Path}}</code></td><td>{{if .Protected}}API key{{else}}-{{end}}</td><td>{{.Summary}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// DocsHandler serves the root redirect, the docs page and the OpenAPI document.
type DocsHandler struct {
	title   string
	version string
	header  string
}

// NewDocsHandler creates a new DocsHandler.  header is the API key header name.
func NewDocsHandler(title, version, header string) *DocsHandler {
	return &DocsHandler{title: title, version: version, header: header}
}

// RegisterRoutes registers the documentation routes.
func (h *DocsHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/docs", h.Docs)
	r.GET("/openapi.json", h.OpenAPI)
}

// Root handles GET / with a temporary redirect to the docs page.
func (h *DocsHandler) Root(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, "/docs")
}

// Docs handles GET /docs.
func (h *DocsHandler) Docs(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := docsTemplate.Execute(c.Writer, map[string]any{
		"Title":     h.title,
		"Version":   h.version,
		"Header":    h.header,
		"Endpoints": Endpoints,
	})
	if err != nil {
		_ = c.Error(err)
	}
}

// OpenAPI handles GET /openapi.json.
func (h *DocsHandler) OpenAPI(c *gin.Context) {
	c.JSON(http.StatusOK, h.document())
}

func (h *DocsHandler) document() gin.H {
	paths := gin.H{}
	for _, ep := range Endpoints {
		op := gin.H{
			"summary":   ep.Summary,
			"responses": gin.H{"200": gin.H{"description": "Successful Response"}},
		}
		if ep.Protected {
			op["security"] = []gin.H{{"APIKeyHeader": []string{}}}
			op["responses"].(gin.H)["403"] = gin.H{"description": "Could not validate credentials"}
		}
		if ep.Body {
			op["requestBody"] = gin.H{
				"required": true,
				"content": gin.H{"application/json": gin.H{
					"schema": gin.H{"$ref": "#/components/schemas/TextRequest"},
				}},
			}
			op["responses"].(gin.H)["422"] = gin.H{"description": "Validation Error"}
		}
		entry, ok := paths[ep.Path].(gin.H)
		if !ok {
			entry = gin.H{}
			paths[ep.Path] = entry
		}
		entry[strings.ToLower(ep.Method)] = op
	}

	return gin.H{
		"openapi": "3.0.3",
		"info":    gin.H{"title": h.title, "version": h.version},
		"paths":   paths,
		"components": gin.H{
			"securitySchemes": gin.H{
				"APIKeyHeader": gin.H{"type": "apiKey", "in": "header", "name": h.header},
			},
			"schemas": gin.H{
				"TextRequest": gin.H{
					"type":       "object",
					"required":   []string{"text"},
					"properties": gin.H{"text": gin.H{"type": "string", "title": "Text"}},
				},
			},
		},
	}
}

//Personal.AI order the ending
