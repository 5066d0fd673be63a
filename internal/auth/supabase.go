package auth

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/config"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/types"
	"github.com/nedpals/supabase-go"
)

// supabaseAuth delegates the password check to Supabase Auth and keeps the
// returned access token as the session
type supabaseAuth struct {
	cfg    config.AuthConfig
	secret string
	client *supabase.Client
}

func NewSupabaseAuth(cfg *config.Configuration) (Provider, error) {
	if cfg.Supabase.BaseURL == "" || cfg.Supabase.ServiceKey == "" || cfg.Supabase.JWTSecret == "" {
		return nil, ierr.NewError("supabase auth not configured").
			WithHint("supabase.base_url, supabase.service_key and supabase.jwt_secret are required").
			Mark(ierr.ErrValidation)
	}

	client := supabase.CreateClient(cfg.Supabase.BaseURL, cfg.Supabase.ServiceKey)
	if client == nil {
		return nil, ierr.NewError("failed to create supabase client").
			Mark(ierr.ErrSystem)
	}

	return &supabaseAuth{
		cfg:    cfg.Auth,
		secret: cfg.Supabase.JWTSecret,
		client: client,
	}, nil
}

func (s *supabaseAuth) GetProvider() types.AuthProvider {
	return types.AuthProviderSupabase
}

func (s *supabaseAuth) Login(ctx context.Context, req AuthRequest) (*AuthResponse, error) {
	if !s.allowed(req.Email) {
		return nil, errInvalidCredentials()
	}

	details, err := s.client.Auth.SignIn(ctx, supabase.UserCredentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid email or password").
			Mark(ierr.ErrUnauthenticated)
	}

	return &AuthResponse{
		AuthToken: details.AccessToken,
		UserID:    details.User.ID,
		Email:     details.User.Email,
		ExpiresAt: time.Now().Add(time.Duration(details.ExpiresIn) * time.Second),
	}, nil
}

func (s *supabaseAuth) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := parseHS256(token, []byte(s.secret))
	if err != nil {
		return nil, err
	}

	userID, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if userID == "" || !s.allowed(email) {
		return nil, ierr.NewError("token is not an admin token").
			WithHint("Admin access required").
			Mark(ierr.ErrPermissionDenied)
	}

	return &Claims{UserID: userID, Email: email, Role: RoleAdmin}, nil
}

// allowed restricts the back office to the configured admin email, when set
func (s *supabaseAuth) allowed(email string) bool {
	return s.cfg.AdminEmail == "" || sameEmail(email, s.cfg.AdminEmail)
}
