package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"auth-sync/internal/domain"
)

// Phase is the bootstrapper's lifecycle position.
type Phase int32

const (
	PhaseResolving Phase = iota
	PhaseResolved
)

func (p Phase) String() string {
	if p == PhaseResolved {
		return "resolved"
	}
	return "resolving"
}

// CurrentUserLookup is the part of domain.IdentityClient the bootstrapper needs.
type CurrentUserLookup interface {
	CurrentUser(ctx context.Context) domain.CurrentUserResult
}

// Bootstrapper resolves the initial session exactly once per instance: it
// asks the identity service who is signed in, applies Login or Logout and
// then reports ready. Resolved is terminal.
type Bootstrapper struct {
	lookup  CurrentUserLookup
	store   domain.SessionStore
	timeout time.Duration
	logger  *slog.Logger

	once  sync.Once
	ready chan struct{}
	phase atomic.Int32
}

// NewBootstrapper wires a bootstrapper. A zero timeout leaves the lookup
// bounded only by the caller's context and the client's own timeout.
func NewBootstrapper(lookup CurrentUserLookup, store domain.SessionStore, timeout time.Duration, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{
		lookup:  lookup,
		store:   store,
		timeout: timeout,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Run performs the bootstrap. Only the first call does any work; concurrent
// callers block until it has resolved. A cancelled ctx resolves as a
// transport failure, which logs the session out.
func (b *Bootstrapper) Run(ctx context.Context) {
	b.once.Do(func() { b.resolve(ctx) })
}

// Ready is closed once the bootstrapper has resolved.
func (b *Bootstrapper) Ready() <-chan struct{} {
	return b.ready
}

// IsReady implements domain.ReadinessProbe.
func (b *Bootstrapper) IsReady() bool {
	return b.Phase() == PhaseResolved
}

func (b *Bootstrapper) Phase() Phase {
	return Phase(b.phase.Load())
}

// Wait blocks until the bootstrapper resolves or ctx is done.
func (b *Bootstrapper) Wait(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bootstrapper) resolve(ctx context.Context) {
	start := time.Now()
	defer func() {
		b.phase.Store(int32(PhaseResolved))
		close(b.ready)
	}()

	// The ticket is taken before the lookup, so a login or logout issued
	// while the lookup is in flight outranks its late answer.
	ticket := b.store.Begin()

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	result := b.currentUser(ctx)
	state, applied := b.store.ApplyTicket(ticket, domain.TransitionFor(result))

	attrs := []any{
		"outcome", outcomeOf(result),
		"authenticated", state.Authenticated,
		"applied", applied,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if failed, ok := result.(domain.TransportFailed); ok {
		attrs = append(attrs, "error", failed.Err)
		b.logger.WarnContext(ctx, "session bootstrap could not reach identity service, starting logged out", attrs...)
		return
	}
	b.logger.InfoContext(ctx, "session bootstrap resolved", attrs...)
}

func (b *Bootstrapper) currentUser(ctx context.Context) (result domain.CurrentUserResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.TransportFailed{Err: fmt.Errorf("current user lookup panicked: %v", r)}
		}
	}()

	result = b.lookup.CurrentUser(ctx)
	if result == nil {
		return domain.Unauthenticated{}
	}
	return result
}

func outcomeOf(result domain.CurrentUserResult) string {
	switch result.(type) {
	case domain.Authenticated:
		return "authenticated"
	case domain.Unauthenticated:
		return "unauthenticated"
	default:
		return "transport_failed"
	}
}
