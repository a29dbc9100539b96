package middleware

import (
	"auth-sync/utils/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates the caller's X-Request-ID, or a fresh UUID, into the
// request context so every log line of the request carries it.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(requestIDHeader)
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}

			ctx := logger.WithRequestID(req.Context(), requestID)
			ctx = logger.WithOperation(ctx, req.Method+" "+c.Path())
			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(requestIDHeader, requestID)

			return next(c)
		}
	}
}
