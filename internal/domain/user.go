package domain

import (
	"log/slog"
	"maps"
	"time"
)

// UserRecord is the identity service's profile for an account. Records are
// snapshots: nothing mutates one after it is built.
type UserRecord struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	// Traits holds the service-defined profile fields as received.
	Traits map[string]any
}

// NewUserRecord builds a record, copying traits so the caller's map stays its own.
func NewUserRecord(id, email, name string, createdAt time.Time, traits map[string]any) UserRecord {
	return UserRecord{
		ID:        id,
		Email:     email,
		Name:      name,
		CreatedAt: createdAt,
		Traits:    maps.Clone(traits),
	}
}

// Clone returns a copy that shares no mutable state with u.
func (u UserRecord) Clone() UserRecord {
	u.Traits = maps.Clone(u.Traits)
	return u
}

// Credentials are transient account credentials. They are cleared by the
// operation that consumes them and must never be logged.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=128"`
}

// Clear wipes the credential fields.
func (c *Credentials) Clear() {
	if c == nil {
		return
	}
	*c = Credentials{}
}

// LogValue implements slog.LogValuer and never exposes the password.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", c.Email),
		slog.Bool("password_present", c.Password != ""),
	)
}
