package usecase

import (
	"context"
	"log/slog"

	"auth-sync/internal/domain"
)

// SessionResult holds the data returned by GetSession.
type SessionResult struct {
	State domain.SessionState
	// SnapshotToken is a signed copy of State; empty when no signer is configured.
	SnapshotToken string
}

// GetSession reads the session store once bootstrap has resolved.
type GetSession struct {
	store  domain.SessionStore
	probe  domain.ReadinessProbe
	signer domain.SnapshotSigner
	logger *slog.Logger
}

// NewGetSession creates a new GetSession usecase. signer may be nil.
func NewGetSession(s domain.SessionStore, p domain.ReadinessProbe, t domain.SnapshotSigner, l *slog.Logger) *GetSession {
	return &GetSession{store: s, probe: p, signer: t, logger: l}
}

// Execute returns domain.ErrNotReady while the bootstrap is still resolving.
func (uc *GetSession) Execute(ctx context.Context) (*SessionResult, error) {
	if !uc.probe.IsReady() {
		return nil, domain.ErrNotReady
	}

	result := &SessionResult{State: uc.store.State()}
	if uc.signer == nil {
		return result, nil
	}

	snapshot, err := uc.signer.SignSnapshot(result.State)
	if err != nil {
		uc.logger.ErrorContext(ctx, "failed to sign session snapshot", "error", err)
		return nil, err
	}
	result.SnapshotToken = snapshot
	return result, nil
}
