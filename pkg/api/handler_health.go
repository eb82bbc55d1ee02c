package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// healthHandler handles GET /health. The process has no external hard
// dependencies at startup, so a live process is a healthy one.
func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &HealthResponse{Status: "ok"})
}
