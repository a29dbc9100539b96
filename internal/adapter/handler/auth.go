package handler

import (
	"log/slog"
	"net/http"

	"auth-sync/internal/domain"
	"auth-sync/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AuthHandler serves the user-initiated sign-up, login and logout forms.
type AuthHandler struct {
	signUp *usecase.SignUp
	logIn  *usecase.LogIn
	logOut *usecase.LogOut
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(signUp *usecase.SignUp, logIn *usecase.LogIn, logOut *usecase.LogOut, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{signUp: signUp, logIn: logIn, logOut: logOut, logger: logger}
}

// SignUp processes POST /auth/signup.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var creds domain.Credentials
	if err := c.Bind(&creds); err != nil {
		creds.Clear()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	state, err := h.signUp.Execute(c.Request().Context(), &creds)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, toSessionResponse(state))
}

// LogIn processes POST /auth/login.
func (h *AuthHandler) LogIn(c echo.Context) error {
	var creds domain.Credentials
	if err := c.Bind(&creds); err != nil {
		creds.Clear()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	state, err := h.logIn.Execute(c.Request().Context(), &creds)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(state))
}

// LogOut processes POST /auth/logout.
func (h *AuthHandler) LogOut(c echo.Context) error {
	state, err := h.logOut.Execute(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(state))
}
