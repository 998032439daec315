package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Game Economy Ledger - API Docs</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/swagger/spec',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`

// APIDocs serves the OpenAPI document and a Swagger UI page for it.
type APIDocs struct {
	spec []byte
}

// NewAPIDocs wraps the OpenAPI YAML. A nil spec makes both endpoints 404.
func NewAPIDocs(spec []byte) *APIDocs {
	return &APIDocs{spec: spec}
}

// Spec handles GET /swagger/spec.
func (d *APIDocs) Spec(c *gin.Context) {
	if len(d.spec) == 0 {
		c.String(http.StatusNotFound, "OpenAPI spec not loaded")
		return
	}
	c.Data(http.StatusOK, "application/x-yaml", d.spec)
}

// UI handles GET /swagger.
func (d *APIDocs) UI(c *gin.Context) {
	if len(d.spec) == 0 {
		c.String(http.StatusNotFound, "OpenAPI spec not loaded")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerPage))
}
