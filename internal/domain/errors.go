package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies identity service failures so callers can branch on them.
type ErrorKind int

const (
	// KindValidation covers input the service (or local validation) rejected.
	KindValidation ErrorKind = iota + 1
	// KindTransport covers an unreachable or misbehaving identity service.
	KindTransport
	// KindNoSession means there is no active session to act on.
	KindNoSession
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindNoSession:
		return "no_session"
	default:
		return "unknown"
	}
}

// Identity service errors. IdentityError values match these with errors.Is.
var (
	ErrValidation = errors.New("invalid input")
	ErrTransport  = errors.New("identity service unavailable")
	ErrNoSession  = errors.New("no active session")
)

// Session errors.
var (
	ErrNotReady    = errors.New("session bootstrap still resolving")
	ErrMissingUser = errors.New("session carries no identity")
)

// ErrSuperseded means an operation that started later has already decided
// the session. The earlier one was dropped and any session it opened ended.
var ErrSuperseded = errors.New("superseded by a newer session operation")

// Token errors.
var (
	ErrTokenGeneration    = errors.New("token generation failed")
	ErrSnapshotSecretWeak = errors.New("snapshot token secret too weak")
)

// Rate limiting errors.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
)

// IdentityError is returned by every IdentityClient operation. Message is the
// human-readable text reported by the service, suitable for display.
type IdentityError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// NewIdentityError builds an IdentityError of the given kind.
func NewIdentityError(kind ErrorKind, op, message string, err error) *IdentityError {
	return &IdentityError{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *IdentityError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.sentinel().Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *IdentityError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *IdentityError) sentinel() error {
	switch e.Kind {
	case KindValidation:
		return ErrValidation
	case KindNoSession:
		return ErrNoSession
	default:
		return ErrTransport
	}
}

// KindOf extracts the ErrorKind of err, if it wraps an IdentityError.
func KindOf(err error) (ErrorKind, bool) {
	var ie *IdentityError
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return 0, false
}

// DisplayMessage returns the message to show an end user for err.
func DisplayMessage(err error) string {
	var ie *IdentityError
	if errors.As(err, &ie) && ie.Message != "" {
		return ie.Message
	}
	return err.Error()
}
