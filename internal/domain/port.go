package domain

import "context"

// IdentityClient wraps the remote identity service's account and session API.
// Every service failure is an *IdentityError. When ctx carries a ticket
// (WithTicket), StartSession and EndSession return ErrSuperseded instead of
// touching the held session if a newer ticket has already claimed it.
type IdentityClient interface {
	CreateAccount(ctx context.Context, creds Credentials) (UserRecord, error)
	StartSession(ctx context.Context, email, password string) error
	CurrentUser(ctx context.Context) CurrentUserResult
	EndSession(ctx context.Context) error
}

// SessionStore is the single authority over SessionState.
type SessionStore interface {
	State() SessionState
	Begin() Ticket
	ApplyTicket(t Ticket, tr Transition) (SessionState, bool)
}

// ReadinessProbe reports whether the initial session lookup has resolved.
type ReadinessProbe interface {
	IsReady() bool
}

// CredentialValidator checks credentials before they reach the identity service.
type CredentialValidator interface {
	ValidateLogin(creds Credentials) error
	ValidateSignUp(creds Credentials) error
}

// SnapshotSigner issues a signed token describing a session snapshot.
type SnapshotSigner interface {
	SignSnapshot(state SessionState) (string, error)
}

// SessionObserver receives every SessionState the store moves to, in order.
// It runs synchronously. A transition it applies is delivered to every
// observer after the current state has reached all of them.
type SessionObserver func(state SessionState)

// SessionSubscriber registers observers of the session store.
type SessionSubscriber interface {
	Subscribe(observer SessionObserver) (unsubscribe func())
}
