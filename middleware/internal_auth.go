package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const internalAuthHeader = "X-Internal-Auth"

// InternalAuth guards the mutating /auth routes with a shared secret sent in
// X-Internal-Auth. An empty secret disables the check.
func InternalAuth(sharedSecret string, logger *slog.Logger) echo.MiddlewareFunc {
	secretBytes := []byte(sharedSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if len(secretBytes) == 0 {
			return next
		}
		return func(c echo.Context) error {
			provided := []byte(c.Request().Header.Get(internalAuthHeader))
			if len(provided) == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing internal auth header")
			}
			if subtle.ConstantTimeCompare(provided, secretBytes) != 1 {
				logger.WarnContext(c.Request().Context(), "rejected request with invalid internal auth",
					"path", c.Path(), "remote_addr", c.RealIP())
				return echo.NewHTTPError(http.StatusForbidden, "invalid internal auth")
			}
			return next(c)
		}
	}
}
