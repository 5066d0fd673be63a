package auth

import (
	"context"
	"testing"
	"time"

	"github.com/emberwick/storefront/internal/config"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/types"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "local-test-secret"
	testEmail    = "owner@emberwick.test"
	testPassword = "wicks-and-wax"
)

func newLocal(t *testing.T) Provider {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.GetDefaultConfig()
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.AdminEmail = testEmail
	cfg.Auth.AdminPasswordHash = string(hash)
	cfg.Auth.TokenTTL = time.Hour

	p, err := NewProvider(cfg)
	require.NoError(t, err)
	return p
}

func TestLocalAuth_LoginIssuesAdminToken(t *testing.T) {
	p := newLocal(t)
	assert.Equal(t, types.AuthProviderLocal, p.GetProvider())

	resp, err := p.Login(context.Background(), AuthRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), resp.ExpiresAt, 5*time.Second)

	claims, err := p.ValidateToken(context.Background(), resp.AuthToken)
	require.NoError(t, err)
	assert.Equal(t, testEmail, claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestLocalAuth_RejectsBadCredentials(t *testing.T) {
	p := newLocal(t)

	for _, req := range []AuthRequest{
		{Email: testEmail, Password: "nope"},
		{Email: "someone@else.test", Password: testPassword},
	} {
		_, err := p.Login(context.Background(), req)
		require.Error(t, err)
		assert.True(t, ierr.Is(err, ierr.ErrUnauthenticated))
	}
}

func TestLocalAuth_RejectsForeignTokens(t *testing.T) {
	p := newLocal(t)

	sign := func(secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{
			name:  "wrong secret",
			token: sign("other", jwt.MapClaims{"sub": testEmail, "role": RoleAdmin, "exp": exp}, jwt.SigningMethodHS256),
			want:  ierr.ErrUnauthenticated,
		},
		{
			name:  "expired",
			token: sign(testSecret, jwt.MapClaims{"sub": testEmail, "role": RoleAdmin, "exp": time.Now().Add(-time.Minute).Unix()}, jwt.SigningMethodHS256),
			want:  ierr.ErrUnauthenticated,
		},
		{
			name:  "not an admin",
			token: sign(testSecret, jwt.MapClaims{"sub": testEmail, "role": "customer", "exp": exp}, jwt.SigningMethodHS256),
			want:  ierr.ErrPermissionDenied,
		},
		{
			name:  "garbage",
			token: "not.a.token",
			want:  ierr.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ValidateToken(context.Background(), tt.token)
			require.Error(t, err)
			assert.True(t, ierr.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestLocalAuth_RequiresSecret(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Auth.JWTSecret = ""
	_, err := NewProvider(cfg)
	assert.True(t, ierr.IsValidation(err))
}

func TestLocalAuth_UnconfiguredAdmin(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Auth.JWTSecret = testSecret
	p, err := NewProvider(cfg)
	require.NoError(t, err)

	_, err = p.Login(context.Background(), AuthRequest{Email: testEmail, Password: testPassword})
	assert.True(t, ierr.IsServiceUnavailable(err))
}

func TestSupabaseAuth_ValidatesWithProjectSecret(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Auth.Provider = types.AuthProviderSupabase
	cfg.Auth.AdminEmail = testEmail
	cfg.Supabase.BaseURL = "http://localhost:54321"
	cfg.Supabase.ServiceKey = "service-key"
	cfg.Supabase.JWTSecret = "supabase-secret"

	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, types.AuthProviderSupabase, p.GetProvider())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "2f6a3a8e-user",
		"email": testEmail,
		"role":  "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("supabase-secret"))
	require.NoError(t, err)

	claims, err := p.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "2f6a3a8e-user", claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "someone",
		"email": "intruder@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("supabase-secret"))
	require.NoError(t, err)

	_, err = p.ValidateToken(context.Background(), other)
	assert.True(t, ierr.Is(err, ierr.ErrPermissionDenied))
}

func TestSupabaseAuth_RequiresProjectSettings(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Auth.Provider = types.AuthProviderSupabase
	_, err := NewProvider(cfg)
	assert.True(t, ierr.IsValidation(err))
}
