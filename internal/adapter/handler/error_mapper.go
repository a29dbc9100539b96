package handler

import (
	"errors"
	"net/http"

	"auth-sync/internal/domain"

	"github.com/labstack/echo/v4"
)

// mapDomainError converts a domain error into an appropriate echo.HTTPError.
// Validation and no-session errors carry the identity service's own message
// so clients can show it; transport details stay in the logs.
func mapDomainError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, domain.DisplayMessage(err))

	case errors.Is(err, domain.ErrNoSession):
		return echo.NewHTTPError(http.StatusUnauthorized, domain.DisplayMessage(err))

	case errors.Is(err, domain.ErrTransport),
		errors.Is(err, domain.ErrMissingUser):
		return echo.NewHTTPError(http.StatusBadGateway, "identity service unavailable")

	case errors.Is(err, domain.ErrSuperseded):
		return echo.NewHTTPError(http.StatusConflict, domain.ErrSuperseded.Error())

	case errors.Is(err, domain.ErrNotReady):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session bootstrap in progress")

	case errors.Is(err, domain.ErrTokenGeneration),
		errors.Is(err, domain.ErrSnapshotSecretWeak):
		return echo.NewHTTPError(http.StatusInternalServerError, "token generation error")

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
