package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"auth-sync/internal/domain"
	"auth-sync/internal/infrastructure/session"
	"auth-sync/internal/infrastructure/validation"
	"auth-sync/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liveKratos is a fake Kratos that issues real tokens and remembers which
// sessions are still live.
type liveKratos struct {
	t *testing.T

	mu   sync.Mutex
	live map[string]string // token -> email
	next int

	// loginArrived and loginRelease, when set, hold the login submission open.
	loginArrived chan struct{}
	loginRelease chan struct{}
}

func newLiveKratos(t *testing.T) (*liveKratos, *httptest.Server) {
	k := &liveKratos{t: t, live: make(map[string]string)}
	server := httptest.NewServer(k)
	t.Cleanup(server.Close)
	return k, server
}

func (k *liveKratos) liveTokens() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	tokens := make([]string, 0, len(k.live))
	for tok := range k.live {
		tokens = append(tokens, tok)
	}
	return tokens
}

func (k *liveKratos) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t := k.t
	unauthorized := map[string]any{"error": map[string]any{"code": 401, "reason": "No valid session credentials found in the request."}}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/self-service/login/api":
		writeJSON(t, w, http.StatusOK, flowJSON("login", r.URL.Path))

	case r.Method == http.MethodPost && r.URL.Path == "/self-service/login":
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if k.loginArrived != nil {
			close(k.loginArrived)
			<-k.loginRelease
		}
		k.mu.Lock()
		k.next++
		token := fmt.Sprintf("ory_st_%d", k.next)
		k.live[token] = body["identifier"].(string)
		k.mu.Unlock()
		writeJSON(t, w, http.StatusOK, map[string]any{
			"session":       map[string]any{"id": "sess-" + token, "active": true},
			"session_token": token,
		})

	case r.Method == http.MethodGet && r.URL.Path == "/sessions/whoami":
		k.mu.Lock()
		email, ok := k.live[r.Header.Get("X-Session-Token")]
		k.mu.Unlock()
		if !ok {
			writeJSON(t, w, http.StatusUnauthorized, unauthorized)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":       "sess-1",
			"active":   true,
			"identity": identityJSON("id-"+email, email, nil),
		})

	case r.Method == http.MethodDelete && r.URL.Path == "/sessions":
		k.mu.Lock()
		_, ok := k.live[r.Header.Get("X-Session-Token")]
		k.mu.Unlock()
		if !ok {
			writeJSON(t, w, http.StatusUnauthorized, unauthorized)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"count": 0})

	case r.Method == http.MethodDelete && r.URL.Path == "/self-service/logout/api":
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		token, _ := body["session_token"].(string)
		k.mu.Lock()
		_, ok := k.live[token]
		delete(k.live, token)
		k.mu.Unlock()
		if !ok {
			writeJSON(t, w, http.StatusUnauthorized, unauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestKratosGateway_StartSession_OlderTicketIsRevoked(t *testing.T) {
	kratos, server := newLiveKratos(t)
	gw := newTestGateway(server.URL)

	err := gw.EndSession(domain.WithTicket(context.Background(), 2))
	require.True(t, errors.Is(err, domain.ErrNoSession))

	err = gw.StartSession(domain.WithTicket(context.Background(), 1), "a@b.com", "pw")

	assert.True(t, errors.Is(err, domain.ErrSuperseded))
	assert.Empty(t, gw.SessionToken())
	assert.Empty(t, kratos.liveTokens(), "the issued session must not outlive the login")
	assert.IsType(t, domain.Unauthenticated{}, gw.CurrentUser(context.Background()))
}

func TestKratosGateway_StartSession_RevokesReplacedToken(t *testing.T) {
	kratos, server := newLiveKratos(t)
	gw := newTestGateway(server.URL)

	require.NoError(t, gw.StartSession(domain.WithTicket(context.Background(), 1), "a@b.com", "pw"))
	require.NoError(t, gw.StartSession(domain.WithTicket(context.Background(), 2), "c@d.com", "pw"))

	assert.Equal(t, []string{gw.SessionToken()}, kratos.liveTokens())
	auth, ok := gw.CurrentUser(context.Background()).(domain.Authenticated)
	require.True(t, ok)
	assert.Equal(t, "c@d.com", auth.User.Email)
}

func TestKratosGateway_EndSession_OlderTicketKeepsNewerSession(t *testing.T) {
	kratos, server := newLiveKratos(t)
	gw := newTestGateway(server.URL)

	require.NoError(t, gw.StartSession(domain.WithTicket(context.Background(), 3), "a@b.com", "pw"))
	token := gw.SessionToken()

	err := gw.EndSession(domain.WithTicket(context.Background(), 2))

	assert.True(t, errors.Is(err, domain.ErrSuperseded))
	assert.Equal(t, token, gw.SessionToken())
	assert.Equal(t, []string{token}, kratos.liveTokens())
}

func TestLoginOvertakenByLogout_LeavesNoSession(t *testing.T) {
	kratos, server := newLiveKratos(t)
	kratos.loginArrived = make(chan struct{})
	kratos.loginRelease = make(chan struct{})

	gw := newTestGateway(server.URL)
	logger := gw.logger
	store := session.NewStore(logger)
	login := usecase.NewLogIn(gw, store, validation.NewCredentialValidator(), logger)
	logout := usecase.NewLogOut(gw, store, logger)
	refresh := usecase.NewRefreshSession(gw, store, logger)

	var wg sync.WaitGroup
	var loginState domain.SessionState
	var loginErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		loginState, loginErr = login.Execute(context.Background(), &domain.Credentials{Email: "a@b.com", Password: "correct horse"})
	}()

	<-kratos.loginArrived
	_, err := logout.Execute(context.Background())
	require.True(t, errors.Is(err, domain.ErrNoSession))
	close(kratos.loginRelease)
	wg.Wait()

	assert.True(t, errors.Is(loginErr, domain.ErrSuperseded))
	assert.False(t, loginState.Authenticated)
	assert.Empty(t, gw.SessionToken())
	assert.Empty(t, kratos.liveTokens())

	state, err := refresh.Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Authenticated, "a later refresh must not bring the overtaken login back")
	assert.False(t, store.State().Authenticated)
}
