package usecase

import (
	"context"
	"errors"
	"testing"

	"auth-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshSession(t *testing.T) {
	tests := []struct {
		name          string
		loggedIn      bool
		result        domain.CurrentUserResult
		wantErr       error
		authenticated bool
	}{
		{name: "picks up a session", result: domain.Authenticated{User: userA()}, authenticated: true},
		{name: "notices an ended session", loggedIn: true, result: domain.Unauthenticated{}},
		{name: "transport failure keeps logged in", loggedIn: true, result: domain.TransportFailed{Err: transportErr()}, wantErr: domain.ErrTransport, authenticated: true},
		{name: "transport failure keeps logged out", result: domain.TransportFailed{Err: transportErr()}, wantErr: domain.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore()
			if tt.loggedIn {
				store.Apply(domain.Login{User: userA()})
			}
			client := &mockIdentityClient{currentUser: func() domain.CurrentUserResult { return tt.result }}

			uc := NewRefreshSession(client, store, testLogger())
			state, err := uc.Execute(context.Background())

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.authenticated, state.Authenticated)
			assert.Equal(t, tt.authenticated, store.State().Authenticated)
		})
	}
}

func TestRefreshSession_OvertakenAnswerIsDropped(t *testing.T) {
	store := newStore()
	client := &mockIdentityClient{currentUser: func() domain.CurrentUserResult {
		// A logout lands while the lookup is in flight.
		store.Apply(domain.Logout{})
		return domain.Authenticated{User: userA()}
	}}

	uc := NewRefreshSession(client, store, testLogger())
	state, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.False(t, state.Authenticated)
	assert.False(t, store.State().Authenticated)
}
