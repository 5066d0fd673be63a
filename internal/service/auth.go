package service

import (
	"context"

	"github.com/emberwick/storefront/internal/api/dto"
	"github.com/emberwick/storefront/internal/auth"
)

type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}

type authService struct {
	ServiceParams
	authProvider auth.Provider
}

func NewAuthService(params ServiceParams, provider auth.Provider) AuthService {
	return &authService{
		ServiceParams: params,
		authProvider:  provider,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := s.authProvider.Login(ctx, auth.AuthRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.Logger.Warnw("admin login failed",
			"email", req.Email,
			"provider", s.authProvider.GetProvider(),
		)
		return nil, err
	}

	s.Logger.Infow("admin logged in", "user_id", resp.UserID, "provider", s.authProvider.GetProvider())
	return &dto.AuthResponse{
		Token:     resp.AuthToken,
		UserID:    resp.UserID,
		Email:     resp.Email,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	return s.authProvider.ValidateToken(ctx, token)
}
