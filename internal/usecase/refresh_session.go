package usecase

import (
	"context"
	"errors"
	"log/slog"

	"auth-sync/internal/domain"
)

// RefreshSession re-reads the current user from the identity service and
// reflects it into the store. Unlike bootstrap, a transport failure keeps
// the last known state.
type RefreshSession struct {
	client domain.IdentityClient
	store  domain.SessionStore
	logger *slog.Logger
}

// NewRefreshSession creates a new RefreshSession usecase.
func NewRefreshSession(c domain.IdentityClient, s domain.SessionStore, l *slog.Logger) *RefreshSession {
	return &RefreshSession{client: c, store: s, logger: l}
}

// Execute returns the refreshed state. A missing session is not an error
// here, and neither is an answer overtaken by a newer operation.
func (uc *RefreshSession) Execute(ctx context.Context) (domain.SessionState, error) {
	ticket := uc.store.Begin()

	state, err := syncCurrentUser(ctx, uc.client, uc.store, ticket, uc.logger)
	if err != nil {
		if kind, _ := domain.KindOf(err); kind == domain.KindNoSession || errors.Is(err, domain.ErrSuperseded) {
			return state, nil
		}
		uc.logger.WarnContext(ctx, "session refresh failed", "error", err)
		return state, err
	}
	return state, nil
}
