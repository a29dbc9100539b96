package handler

import (
	"net/http"

	"auth-sync/internal/domain"

	"github.com/labstack/echo/v4"
)

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	probe domain.ReadinessProbe
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(probe domain.ReadinessProbe) *HealthHandler {
	return &HealthHandler{probe: probe}
}

// Handle processes the /health endpoint. The process is live as soon as it serves.
func (h *HealthHandler) Handle(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready processes /ready: 503 until the session bootstrap has resolved.
func (h *HealthHandler) Ready(c echo.Context) error {
	if !h.probe.IsReady() {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"ready": false})
	}
	return c.JSON(http.StatusOK, map[string]any{"ready": true})
}
