package handler

import (
	"time"

	"auth-sync/internal/domain"
)

// sessionUser represents the user object in the response.
type sessionUser struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Name      string         `json:"name,omitempty"`
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
	Traits    map[string]any `json:"traits,omitempty"`
}

// sessionResponse is the JSON form of a SessionState. User is null when
// logged out.
type sessionResponse struct {
	OK            bool         `json:"ok"`
	Authenticated bool         `json:"authenticated"`
	User          *sessionUser `json:"user"`
	Version       uint64       `json:"version"`
}

func toSessionResponse(state domain.SessionState) sessionResponse {
	resp := sessionResponse{
		OK:            true,
		Authenticated: state.Authenticated,
		Version:       state.Version,
	}
	if state.User == nil {
		return resp
	}

	user := &sessionUser{
		ID:     state.User.ID,
		Email:  state.User.Email,
		Name:   state.User.Name,
		Traits: state.User.Traits,
	}
	if !state.User.CreatedAt.IsZero() {
		createdAt := state.User.CreatedAt
		user.CreatedAt = &createdAt
	}
	resp.User = user
	return resp
}
