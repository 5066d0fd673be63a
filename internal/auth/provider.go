package auth

import (
	"context"
	"strings"
	"time"

	"github.com/emberwick/storefront/internal/config"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/types"
	"github.com/golang-jwt/jwt/v4"
)

// RoleAdmin is the only role the back office knows
const RoleAdmin = "admin"

type AuthRequest struct {
	Email    string
	Password string
}

type AuthResponse struct {
	AuthToken string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Claims are the verified contents of an admin token
type Claims struct {
	UserID string
	Email  string
	Role   string
}

type Provider interface {
	GetProvider() types.AuthProvider
	Login(ctx context.Context, req AuthRequest) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

func NewProvider(cfg *config.Configuration) (Provider, error) {
	switch cfg.Auth.Provider {
	case types.AuthProviderSupabase:
		return NewSupabaseAuth(cfg)
	default:
		return NewLocalAuth(cfg)
	}
}

func errInvalidCredentials() error {
	return ierr.NewError("invalid credentials").
		WithHint("Invalid email or password").
		Mark(ierr.ErrUnauthenticated)
}

// parseHS256 verifies an HMAC signed token and returns its claims
func parseHS256(token string, secret []byte) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHintf("unexpected signing method: %v", t.Header["alg"]).
				Mark(ierr.ErrUnauthenticated)
		}
		return secret, nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Session expired or invalid, please sign in again").
			Mark(ierr.ErrUnauthenticated)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Session expired or invalid, please sign in again").
			Mark(ierr.ErrUnauthenticated)
	}
	return claims, nil
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
