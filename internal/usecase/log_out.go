package usecase

import (
	"context"
	"errors"
	"log/slog"

	"auth-sync/internal/domain"
)

// LogOut ends every session of the signed-in identity and clears the store.
type LogOut struct {
	client domain.IdentityClient
	store  domain.SessionStore
	logger *slog.Logger
}

// NewLogOut creates a new LogOut usecase.
func NewLogOut(c domain.IdentityClient, s domain.SessionStore, l *slog.Logger) *LogOut {
	return &LogOut{client: c, store: s, logger: l}
}

// Execute logs out. When the service reports there was no session the store
// is cleared anyway and the NoSession error is returned. A transport failure
// leaves the store unchanged, and so does a login that started later.
func (uc *LogOut) Execute(ctx context.Context) (domain.SessionState, error) {
	ticket := uc.store.Begin()
	ctx = domain.WithTicket(ctx, ticket)

	err := uc.client.EndSession(ctx)
	if errors.Is(err, domain.ErrSuperseded) {
		uc.logger.InfoContext(ctx, "logout superseded by a newer session operation")
		return uc.store.State(), err
	}
	if err != nil {
		if kind, _ := domain.KindOf(err); kind != domain.KindNoSession {
			uc.logger.WarnContext(ctx, "logout failed", "error", err)
			return uc.store.State(), err
		}
	}

	state, _ := uc.store.ApplyTicket(ticket, domain.Logout{})
	if err == nil {
		uc.logger.InfoContext(ctx, "user logged out")
	}
	return state, err
}
