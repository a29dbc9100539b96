package handler

import (
	"errors"
	"net/http"
	"testing"

	"auth-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHandler_NotReady(t *testing.T) {
	env := newTestEnv(t, nil)
	env.probe.ready = false

	rec := env.do(http.MethodGet, "/session", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "session bootstrap in progress", decodeMessage(t, rec))
}

func TestSessionHandler_LoggedOut(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/session", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"authenticated":false,"user":null,"version":0}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Session-Snapshot"))
}

func TestSessionHandler_LoggedInWithSnapshot(t *testing.T) {
	env := newTestEnv(t, fakeSigner{})
	env.store.Apply(domain.Login{User: domain.NewUserRecord("u1", "a@b.com", "A", testTime, map[string]any{"email": "a@b.com"})})

	rec := env.do(http.MethodGet, "/session", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	assert.True(t, resp.Authenticated)
	require.NotNil(t, resp.User)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, "a@b.com", resp.User.Email)
	assert.Equal(t, "A", resp.User.Name)
	assert.Equal(t, uint64(1), resp.Version)
	assert.Equal(t, "snapshot-v1", rec.Header().Get("X-Session-Snapshot"))
}

func TestSessionHandler_Refresh(t *testing.T) {
	env := newTestEnv(t, nil)
	u := domain.NewUserRecord("u1", "a@b.com", "A", testTime, nil)
	env.client.user = &u

	rec := env.do(http.MethodPost, "/session/refresh", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeSession(t, rec).Authenticated)
	assert.True(t, env.store.State().Authenticated)
}

func TestSessionHandler_RefreshTransportFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.client.lookupFail = domain.NewIdentityError(domain.KindTransport, "current_user", "", errors.New("refused"))

	rec := env.do(http.MethodPost, "/session/refresh", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "identity service unavailable", decodeMessage(t, rec))
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ready", "").Code)

	env.probe.ready = false
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "").Code)
	rec := env.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"ready":false}`, rec.Body.String())
}
