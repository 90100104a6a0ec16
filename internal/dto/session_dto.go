package dto

import "github.com/noah-isme/gema-eval-api/internal/session"

// SessionCreateRequest picks the actor of a new session.
type SessionCreateRequest struct {
	Role string `json:"role" validate:"omitempty,oneof=teacher student"`
}

// SignInRequest carries teacher credentials. Their format is checked by the identity provider.
type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse returns the session view and, when it changed, a fresh bearer token.
type SessionResponse struct {
	session.Snapshot
	Token string `json:"token,omitempty"`
}
