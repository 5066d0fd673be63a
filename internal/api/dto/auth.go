package dto

import (
	"time"

	"github.com/emberwick/storefront/internal/validator"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Password string `json:"password" binding:"required" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// AuthResponse carries the session token to the handler, which moves it
// into a cookie. The token is never written to the response body.
type AuthResponse struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type MeResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}
