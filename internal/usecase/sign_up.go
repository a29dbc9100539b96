package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"auth-sync/internal/domain"
	"auth-sync/utils/logger"
)

// SignUp creates an account, then logs it in.
type SignUp struct {
	client    domain.IdentityClient
	store     domain.SessionStore
	validator domain.CredentialValidator
	logger    *slog.Logger
	timing    *logger.ContextLogger
}

// NewSignUp creates a new SignUp usecase.
func NewSignUp(c domain.IdentityClient, s domain.SessionStore, v domain.CredentialValidator, l *slog.Logger) *SignUp {
	return &SignUp{client: c, store: s, validator: v, logger: l, timing: logger.NewContextLogger(l)}
}

// Execute consumes creds. If the account is created but the login that
// follows fails, the account remains and the error is returned.
func (uc *SignUp) Execute(ctx context.Context, creds *domain.Credentials) (domain.SessionState, error) {
	defer creds.Clear()
	start := time.Now()

	if err := uc.validator.ValidateSignUp(*creds); err != nil {
		return uc.store.State(), err
	}

	ticket := uc.store.Begin()
	user, err := uc.client.CreateAccount(ctx, *creds)
	if err != nil {
		uc.logger.InfoContext(ctx, "sign up rejected", "credentials", *creds, "error", err)
		return uc.store.State(), err
	}
	ctx = logger.WithUserID(ctx, user.ID)
	uc.logger.InfoContext(ctx, "account created")

	ctx = domain.WithTicket(ctx, ticket)
	if err := uc.client.StartSession(ctx, creds.Email, creds.Password); err != nil {
		if !errors.Is(err, domain.ErrSuperseded) {
			uc.timing.LogError(ctx, "sign_up_login", err)
		}
		return uc.store.State(), err
	}
	creds.Clear()

	state, err := syncCurrentUser(ctx, uc.client, uc.store, ticket, uc.logger)
	if err == nil {
		uc.timing.LogDuration(ctx, "sign_up", time.Since(start))
	}
	return state, err
}
