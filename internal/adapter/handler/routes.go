package handler

import (
	"auth-sync/internal/domain"

	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler of the service.
type Handlers struct {
	Session *SessionHandler
	Events  *EventsHandler
	Auth    *AuthHandler
	Health  *HealthHandler
}

// Register mounts the routes on e. authMiddleware guards the /auth group.
// Everything that reads or changes the session answers 503 until the
// bootstrap has resolved.
func Register(e *echo.Echo, h Handlers, authMiddleware ...echo.MiddlewareFunc) {
	ready := requireReady(h.Health.probe)

	e.GET("/health", h.Health.Handle)
	e.GET("/ready", h.Health.Ready)

	e.GET("/session", h.Session.Handle)
	e.POST("/session/refresh", h.Session.Refresh, ready)
	e.GET("/session/events", h.Events.Handle)

	auth := e.Group("/auth", authMiddleware...)
	auth.Use(ready)
	auth.POST("/signup", h.Auth.SignUp)
	auth.POST("/login", h.Auth.LogIn)
	auth.POST("/logout", h.Auth.LogOut)
}

// requireReady rejects requests until probe reports the bootstrap resolved.
func requireReady(probe domain.ReadinessProbe) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !probe.IsReady() {
				return mapDomainError(domain.ErrNotReady)
			}
			return next(c)
		}
	}
}
