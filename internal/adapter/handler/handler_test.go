package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auth-sync/internal/domain"
	"auth-sync/internal/infrastructure/session"
	"auth-sync/internal/infrastructure/validation"
	"auth-sync/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// fakeIdentityClient implements domain.IdentityClient for testing.
type fakeIdentityClient struct {
	user       *domain.UserRecord
	loginErr   error
	signUpErr  error
	logoutErr  error
	lookupFail error
}

func (f *fakeIdentityClient) CreateAccount(_ context.Context, creds domain.Credentials) (domain.UserRecord, error) {
	if f.signUpErr != nil {
		return domain.UserRecord{}, f.signUpErr
	}
	return domain.NewUserRecord("u-new", creds.Email, creds.Name, time.Time{}, nil), nil
}

func (f *fakeIdentityClient) StartSession(_ context.Context, email, _ string) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	u := domain.NewUserRecord("u1", email, "A", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	f.user = &u
	return nil
}

func (f *fakeIdentityClient) CurrentUser(context.Context) domain.CurrentUserResult {
	if f.lookupFail != nil {
		return domain.TransportFailed{Err: f.lookupFail}
	}
	if f.user == nil {
		return domain.Unauthenticated{}
	}
	return domain.Authenticated{User: *f.user}
}

func (f *fakeIdentityClient) EndSession(context.Context) error {
	if f.logoutErr != nil {
		return f.logoutErr
	}
	if f.user == nil {
		return domain.NewIdentityError(domain.KindNoSession, "end_session", "", nil)
	}
	f.user = nil
	return nil
}

type fakeProbe struct{ ready bool }

func (p *fakeProbe) IsReady() bool { return p.ready }

type fakeSigner struct{}

func (fakeSigner) SignSnapshot(state domain.SessionState) (string, error) {
	return fmt.Sprintf("snapshot-v%d", state.Version), nil
}

type testEnv struct {
	e      *echo.Echo
	store  *session.Store
	client *fakeIdentityClient
	probe  *fakeProbe
}

func newTestEnv(t *testing.T, signer domain.SnapshotSigner) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client := &fakeIdentityClient{}
	store := session.NewStore(logger)
	probe := &fakeProbe{ready: true}
	validator := validation.NewCredentialValidator()

	e := echo.New()
	Register(e, Handlers{
		Session: NewSessionHandler(
			usecase.NewGetSession(store, probe, signer, logger),
			usecase.NewRefreshSession(client, store, logger),
		),
		Events: NewEventsHandler(store, store, probe, 50*time.Millisecond, logger),
		Auth: NewAuthHandler(
			usecase.NewSignUp(client, store, validator, logger),
			usecase.NewLogIn(client, store, validator, logger),
			usecase.NewLogOut(client, store, logger),
			logger,
		),
		Health: NewHealthHandler(probe),
	})

	return &testEnv{e: e, store: store, client: client, probe: probe}
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Message
}
