package domain

import "context"

// SessionState is the client-side view of authentication.
// Invariant: Authenticated == (User != nil).
type SessionState struct {
	Authenticated bool
	User          *UserRecord
	// Version increases by one for every transition that changed the state.
	Version uint64
}

// Clone returns a copy whose User does not alias s.User.
func (s SessionState) Clone() SessionState {
	if s.User != nil {
		u := s.User.Clone()
		s.User = &u
	}
	return s
}

// Ticket orders operations against the session store. Tickets are taken when
// an operation starts; a later ticket always wins over an earlier one.
type Ticket uint64

type ticketKey struct{}

// WithTicket tags ctx with the ticket of the operation it belongs to, so the
// identity client can order its own session token the same way the store
// orders transitions.
func WithTicket(ctx context.Context, t Ticket) context.Context {
	return context.WithValue(ctx, ticketKey{}, t)
}

// TicketFrom returns the ticket stored by WithTicket.
func TicketFrom(ctx context.Context) (Ticket, bool) {
	t, ok := ctx.Value(ticketKey{}).(Ticket)
	return t, ok
}

// Transition is the closed set of session store inputs: Login and Logout.
type Transition interface {
	transition()
}

// Login marks the session authenticated as User.
type Login struct {
	User UserRecord
}

// Logout clears the session.
type Logout struct{}

func (Login) transition()  {}
func (Logout) transition() {}

// CurrentUserResult is the closed set of outcomes of asking the identity
// service who is signed in: Authenticated, Unauthenticated or TransportFailed.
type CurrentUserResult interface {
	currentUserResult()
}

// Authenticated carries the user bound to the active session.
type Authenticated struct {
	User UserRecord
}

// Unauthenticated means the service answered and there is no session.
type Unauthenticated struct{}

// TransportFailed means the service could not answer.
type TransportFailed struct {
	Err error
}

func (Authenticated) currentUserResult()   {}
func (Unauthenticated) currentUserResult() {}
func (TransportFailed) currentUserResult() {}

// TransitionFor maps a lookup result onto the store transition that reflects
// it: a user logs in, anything else logs out.
func TransitionFor(result CurrentUserResult) Transition {
	if a, ok := result.(Authenticated); ok {
		return Login{User: a.User}
	}
	return Logout{}
}
