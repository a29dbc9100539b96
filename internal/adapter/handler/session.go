package handler

import (
	"net/http"

	"auth-sync/internal/usecase"

	"github.com/labstack/echo/v4"
)

// snapshotHeader carries the signed session snapshot when a signer is configured.
const snapshotHeader = "X-Session-Snapshot"

// SessionHandler serves the session store to clients.
type SessionHandler struct {
	get     *usecase.GetSession
	refresh *usecase.RefreshSession
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(get *usecase.GetSession, refresh *usecase.RefreshSession) *SessionHandler {
	return &SessionHandler{get: get, refresh: refresh}
}

// Handle processes GET /session.
func (h *SessionHandler) Handle(c echo.Context) error {
	result, err := h.get.Execute(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}

	if result.SnapshotToken != "" {
		c.Response().Header().Set(snapshotHeader, result.SnapshotToken)
	}
	return c.JSON(http.StatusOK, toSessionResponse(result.State))
}

// Refresh processes POST /session/refresh, re-reading the current user from
// the identity service.
func (h *SessionHandler) Refresh(c echo.Context) error {
	state, err := h.refresh.Execute(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(state))
}
