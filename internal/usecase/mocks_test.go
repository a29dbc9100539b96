package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"auth-sync/internal/domain"
	"auth-sync/internal/infrastructure/session"
	"auth-sync/internal/infrastructure/validation"
)

// mockIdentityClient implements domain.IdentityClient for testing.
type mockIdentityClient struct {
	mu      sync.Mutex
	calls   []string
	tickets map[string]domain.Ticket

	createAccount func(creds domain.Credentials) (domain.UserRecord, error)
	startSession  func(email, password string) error
	currentUser   func() domain.CurrentUserResult
	endSession    func() error
}

func (m *mockIdentityClient) record(ctx context.Context, call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	if t, ok := domain.TicketFrom(ctx); ok {
		if m.tickets == nil {
			m.tickets = make(map[string]domain.Ticket)
		}
		m.tickets[call] = t
	}
	m.mu.Unlock()
}

// Ticket returns the store ticket the last call of that name carried.
func (m *mockIdentityClient) Ticket(call string) (domain.Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[call]
	return t, ok
}

func (m *mockIdentityClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockIdentityClient) CreateAccount(ctx context.Context, creds domain.Credentials) (domain.UserRecord, error) {
	m.record(ctx, "create_account")
	return m.createAccount(creds)
}

func (m *mockIdentityClient) StartSession(ctx context.Context, email, password string) error {
	m.record(ctx, "start_session")
	return m.startSession(email, password)
}

func (m *mockIdentityClient) CurrentUser(ctx context.Context) domain.CurrentUserResult {
	m.record(ctx, "current_user")
	return m.currentUser()
}

func (m *mockIdentityClient) EndSession(ctx context.Context) error {
	m.record(ctx, "end_session")
	return m.endSession()
}

// mockProbe implements domain.ReadinessProbe for testing.
type mockProbe struct {
	ready bool
}

func (m *mockProbe) IsReady() bool { return m.ready }

// mockSigner implements domain.SnapshotSigner for testing.
type mockSigner struct {
	token string
	err   error
}

func (m *mockSigner) SignSnapshot(domain.SessionState) (string, error) {
	return m.token, m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore() *session.Store {
	return session.NewStore(testLogger())
}

func newValidator() domain.CredentialValidator {
	return validation.NewCredentialValidator()
}

func userA() domain.UserRecord {
	return domain.NewUserRecord("u1", "a@b.com", "A", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil)
}

func validationErr(msg string) error {
	return domain.NewIdentityError(domain.KindValidation, "start_session", msg, nil)
}

func transportErr() error {
	return domain.NewIdentityError(domain.KindTransport, "current_user", "", io.ErrUnexpectedEOF)
}
