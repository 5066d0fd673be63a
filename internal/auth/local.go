package auth

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/config"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/types"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// localAuth checks the single admin account from configuration and issues
// its own tokens
type localAuth struct {
	cfg config.AuthConfig
}

func NewLocalAuth(cfg *config.Configuration) (Provider, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, ierr.NewError("auth jwt secret not configured").
			WithHint("auth.jwt_secret is required for local admin auth").
			Mark(ierr.ErrValidation)
	}
	return &localAuth{cfg: cfg.Auth}, nil
}

func (l *localAuth) GetProvider() types.AuthProvider {
	return types.AuthProviderLocal
}

func (l *localAuth) Login(ctx context.Context, req AuthRequest) (*AuthResponse, error) {
	if l.cfg.AdminEmail == "" || l.cfg.AdminPasswordHash == "" {
		return nil, ierr.NewError("admin account not configured").
			WithHint("Admin login is not available").
			Mark(ierr.ErrServiceUnavailable)
	}

	// compare the hash even for an unknown email so both failures take as long
	hashErr := bcrypt.CompareHashAndPassword([]byte(l.cfg.AdminPasswordHash), []byte(req.Password))
	if !sameEmail(req.Email, l.cfg.AdminEmail) || hashErr != nil {
		return nil, errInvalidCredentials()
	}

	return l.issue(l.cfg.AdminEmail, time.Now())
}

func (l *localAuth) issue(email string, now time.Time) (*AuthResponse, error) {
	ttl := l.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	expiresAt := now.Add(ttl)

	claims := jwt.MapClaims{
		"sub":   email,
		"email": email,
		"role":  RoleAdmin,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(l.cfg.JWTSecret))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to generate token").
			Mark(ierr.ErrSystem)
	}

	return &AuthResponse{
		AuthToken: token,
		UserID:    email,
		Email:     email,
		ExpiresAt: expiresAt,
	}, nil
}

func (l *localAuth) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := parseHS256(token, []byte(l.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role != RoleAdmin {
		return nil, ierr.NewError("token is not an admin token").
			WithHint("Admin access required").
			Mark(ierr.ErrPermissionDenied)
	}

	email, _ := claims["email"].(string)
	return &Claims{UserID: sub, Email: email, Role: role}, nil
}
