package session

import (
	"log/slog"

	"auth-sync/internal/domain"
)

// NewTransitionLogger returns an observer that logs every state change.
func NewTransitionLogger(logger *slog.Logger) domain.SessionObserver {
	return func(state domain.SessionState) {
		if state.Authenticated {
			logger.Debug("session state changed",
				"authenticated", true,
				"user_id", state.User.ID,
				"version", state.Version)
			return
		}
		logger.Debug("session state changed",
			"authenticated", false,
			"version", state.Version)
	}
}
