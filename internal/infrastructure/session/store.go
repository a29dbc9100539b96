package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"auth-sync/internal/domain"
	authotel "auth-sync/utils/otel"
)

type subscription struct {
	id       uint64
	observer domain.SessionObserver
}

// notification is a changed state waiting for delivery, paired with the
// observers subscribed when it was applied.
type notification struct {
	state     domain.SessionState
	observers []subscription
}

// Store is the single authority over the process's SessionState.
// Implements domain.SessionStore and domain.SessionSubscriber.
//
// Transitions carry tickets taken from Begin. A transition whose ticket is
// older than the last applied one is discarded, so an operation that started
// earlier can never overwrite the outcome of one that started later.
type Store struct {
	logger *slog.Logger

	tickets atomic.Uint64

	mu          sync.Mutex
	state       domain.SessionState
	lastApplied domain.Ticket
	observers   []subscription
	nextSubID   uint64

	// pending holds notifications in version order. delivering is set while
	// one goroutine drains it; every other applier only appends.
	pending    []notification
	delivering bool
}

// NewStore returns a store in the logged-out state.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

// State returns a copy of the current state.
func (s *Store) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Begin hands out the next ticket. Take it before starting the operation
// whose outcome will be applied.
func (s *Store) Begin() domain.Ticket {
	return domain.Ticket(s.tickets.Add(1))
}

// Apply applies tr with a fresh ticket: whichever call reaches the store last wins.
func (s *Store) Apply(tr domain.Transition) domain.SessionState {
	state, _ := s.ApplyTicket(s.Begin(), tr)
	return state
}

// ApplyTicket applies tr unless a transition with a newer ticket has already
// been applied. It returns the resulting state and whether tr was accepted.
// When no delivery is running, observers see the change before ApplyTicket
// returns. Otherwise the running delivery picks it up in version order, which
// also covers an observer that applies a transition itself.
func (s *Store) ApplyTicket(t domain.Ticket, tr domain.Transition) (domain.SessionState, bool) {
	kind := transitionKind(tr)

	s.mu.Lock()
	if tr == nil || t <= s.lastApplied {
		current := s.state.Clone()
		last := s.lastApplied
		s.mu.Unlock()

		s.logger.Debug("session transition discarded",
			"transition", kind,
			"ticket", uint64(t),
			"last_applied", uint64(last))
		authotel.RecordTransition(context.Background(), kind, false)
		return current, false
	}
	s.lastApplied = t

	next, changed := reduce(s.state, tr)
	if !changed {
		current := s.state.Clone()
		s.mu.Unlock()
		authotel.RecordTransition(context.Background(), kind, true)
		return current, true
	}

	next.Version = s.state.Version + 1
	s.state = next
	result := next.Clone()
	s.pending = append(s.pending, notification{state: result, observers: s.observers})
	drain := !s.delivering
	s.delivering = true
	s.mu.Unlock()

	authotel.RecordTransition(context.Background(), kind, true)
	if drain {
		s.drain()
	}
	return result, true
}

// Subscribe registers observer for every later state change. Observers run
// synchronously in subscription order. The returned function unsubscribes
// and is safe to call more than once.
func (s *Store) Subscribe(observer domain.SessionObserver) func() {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	// Copy on write: drain iterates a snapshot without holding mu.
	next := make([]subscription, len(s.observers), len(s.observers)+1)
	copy(next, s.observers)
	s.observers = append(next, subscription{id: id, observer: observer})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Store) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]subscription, 0, len(s.observers))
	for _, sub := range s.observers {
		if sub.id != id {
			next = append(next, sub)
		}
	}
	s.observers = next
}

// drain delivers pending notifications until none are left.
func (s *Store) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.pending = nil
			s.delivering = false
			s.mu.Unlock()
			return
		}
		n := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, sub := range n.observers {
			s.deliver(sub, n.state)
		}
	}
}

func (s *Store) deliver(sub subscription, state domain.SessionState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session observer panicked", "subscription", sub.id, "panic", r)
		}
	}()
	sub.observer(state.Clone())
}

// reduce computes the state tr leads to. Version is left for the caller.
func reduce(current domain.SessionState, tr domain.Transition) (domain.SessionState, bool) {
	switch tr := tr.(type) {
	case domain.Login:
		user := tr.User.Clone()
		return domain.SessionState{Authenticated: true, User: &user}, true
	case domain.Logout:
		if !current.Authenticated {
			return current, false
		}
		return domain.SessionState{}, true
	default:
		return current, false
	}
}

func transitionKind(tr domain.Transition) string {
	switch tr.(type) {
	case domain.Login:
		return "login"
	case domain.Logout:
		return "logout"
	default:
		return "unknown"
	}
}
