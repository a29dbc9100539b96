package usecase

import (
	"context"
	"log/slog"

	"auth-sync/internal/domain"
)

// syncCurrentUser asks the identity service who is signed in and applies the
// answer under ticket. A transport failure leaves the store untouched; an
// answer that a newer operation has overtaken yields domain.ErrSuperseded.
func syncCurrentUser(ctx context.Context, client domain.IdentityClient, store domain.SessionStore, ticket domain.Ticket, logger *slog.Logger) (domain.SessionState, error) {
	switch result := client.CurrentUser(ctx).(type) {
	case domain.Authenticated:
		state, applied := store.ApplyTicket(ticket, domain.Login{User: result.User})
		if !applied {
			logger.InfoContext(ctx, "login superseded by a newer session operation", "user_id", result.User.ID)
			return state, domain.ErrSuperseded
		}
		return state, nil
	case domain.Unauthenticated:
		state, applied := store.ApplyTicket(ticket, domain.Logout{})
		if !applied {
			return state, domain.ErrSuperseded
		}
		return state, domain.NewIdentityError(domain.KindNoSession, "current_user", "", nil)
	case domain.TransportFailed:
		return store.State(), result.Err
	default:
		return store.State(), domain.NewIdentityError(domain.KindTransport, "current_user", "", nil)
	}
}
