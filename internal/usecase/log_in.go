package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"auth-sync/internal/domain"
	"auth-sync/utils/logger"
)

// LogIn starts a session with email and password and reflects the signed-in
// user into the session store.
type LogIn struct {
	client    domain.IdentityClient
	store     domain.SessionStore
	validator domain.CredentialValidator
	logger    *slog.Logger
	timing    *logger.ContextLogger
}

// NewLogIn creates a new LogIn usecase.
func NewLogIn(c domain.IdentityClient, s domain.SessionStore, v domain.CredentialValidator, l *slog.Logger) *LogIn {
	return &LogIn{client: c, store: s, validator: v, logger: l, timing: logger.NewContextLogger(l)}
}

// Execute consumes creds: they are cleared before Execute returns. On any
// failure before the service confirms the user, the store is left as it was.
// A login overtaken by a later login or logout returns domain.ErrSuperseded
// and leaves no session behind.
func (uc *LogIn) Execute(ctx context.Context, creds *domain.Credentials) (domain.SessionState, error) {
	defer creds.Clear()
	start := time.Now()

	if err := uc.validator.ValidateLogin(*creds); err != nil {
		return uc.store.State(), err
	}

	ticket := uc.store.Begin()
	ctx = domain.WithTicket(ctx, ticket)
	if err := uc.client.StartSession(ctx, creds.Email, creds.Password); err != nil {
		if errors.Is(err, domain.ErrSuperseded) {
			uc.logger.InfoContext(ctx, "login superseded before the session was adopted")
		} else {
			uc.logger.InfoContext(ctx, "login rejected", "credentials", *creds, "error", err)
		}
		return uc.store.State(), err
	}
	creds.Clear()

	state, err := syncCurrentUser(ctx, uc.client, uc.store, ticket, uc.logger)
	if err != nil {
		if !errors.Is(err, domain.ErrSuperseded) {
			uc.logger.WarnContext(ctx, "session started but current user lookup failed", "error", err)
		}
		return state, err
	}

	if state.User != nil {
		ctx = logger.WithUserID(ctx, state.User.ID)
		uc.logger.InfoContext(ctx, "user logged in")
		uc.timing.LogDuration(ctx, "log_in", time.Since(start))
	}
	return state, nil
}
