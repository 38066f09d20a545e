package http

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/toolsascode/restorm/internal/api/http/response"
	"github.com/toolsascode/restorm/internal/apperrors"
	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPISpecYAML []byte

// openAPITemplate is the JSON form of openapi.yaml, its {{.Title}} style
// placeholders are filled in by swag.Spec.ReadDoc
var openAPITemplate = sync.OnceValues(func() (string, error) {
	var spec map[string]interface{}
	if err := yaml.Unmarshal(openAPISpecYAML, &spec); err != nil {
		return "", fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("failed to encode OpenAPI spec: %w", err)
	}
	return string(data), nil
})

var registerDoc sync.Once

func newDoc(cfg *config.Config) *swag.Spec {
	tmpl, err := openAPITemplate()
	if err != nil {
		logger.Errorf("%v", err)
	}

	doc := &swag.Spec{
		Version:          cfg.Version,
		BasePath:         cfg.API.Prefix,
		Title:            cfg.App.Docs.Title,
		Description:      cfg.App.Docs.Description,
		InfoInstanceName: swag.Name,
		SwaggerTemplate:  tmpl,
	}
	if doc.Title == "" {
		doc.Title = cfg.App.Name
	}

	// the first handler is the process wide document
	registerDoc.Do(func() {
		swag.Register(doc.InstanceName(), doc)
	})
	return doc
}

// renderDoc fills in the document once, ReadDoc is not safe for concurrent use
func renderDoc(doc *swag.Spec) string {
	if doc.SwaggerTemplate == "" {
		return ""
	}
	return doc.ReadDoc()
}

// OpenAPISpec serves the OpenAPI specification in YAML format
func (h *Handler) OpenAPISpec(c *gin.Context) {
	c.Data(http.StatusOK, "application/x-yaml", openAPISpecYAML)
}

// OpenAPISpecJSON serves the OpenAPI specification in JSON format
func (h *Handler) OpenAPISpecJSON(c *gin.Context) {
	if h.docJSON == "" {
		response.Error(c, apperrors.Newf(apperrors.InternalServerError, "Failed to parse OpenAPI spec!"))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(h.docJSON))
}

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} - Docs</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
window.ui = SwaggerUIBundle({url: "{{.SpecURL}}", dom_id: "#swagger-ui"});
</script>
</body>
</html>
`))

// Docs serves the Swagger UI page
func (h *Handler) Docs(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := docsPage.Execute(c.Writer, map[string]string{
		"Title":   h.doc.Title,
		"SpecURL": h.cfg.API.Prefix + "/openapi.json",
	})
	if err != nil {
		logger.Errorf("Failed to render docs page: %v", err)
	}
}
