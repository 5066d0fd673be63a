package service

import (
	"testing"

	"github.com/emberwick/storefront/internal/api/dto"
	"github.com/emberwick/storefront/internal/auth"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/testutil"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceSuite struct {
	testutil.BaseServiceTestSuite
	service AuthService
}

func TestAuthService(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	s.Require().NoError(err)

	cfg := *s.GetConfig()
	cfg.Auth.JWTSecret = "test-jwt-secret"
	cfg.Auth.AdminEmail = "owner@emberwick.test"
	cfg.Auth.AdminPasswordHash = string(hash)

	provider, err := auth.NewProvider(&cfg)
	s.Require().NoError(err)

	params := newServiceParams(&s.BaseServiceTestSuite)
	params.Config = &cfg
	s.service = NewAuthService(params, provider)
}

func (s *AuthServiceSuite) TestLoginAndValidate() {
	resp, err := s.service.Login(s.GetContext(), &dto.LoginRequest{
		Email:    "Owner@Emberwick.test",
		Password: "correct horse",
	})
	s.Require().NoError(err)
	s.NotEmpty(resp.Token)
	s.Equal("owner@emberwick.test", resp.UserID)

	claims, err := s.service.ValidateToken(s.GetContext(), resp.Token)
	s.Require().NoError(err)
	s.Equal(auth.RoleAdmin, claims.Role)
	s.Equal("owner@emberwick.test", claims.UserID)
}

func (s *AuthServiceSuite) TestLoginWrongPassword() {
	_, err := s.service.Login(s.GetContext(), &dto.LoginRequest{
		Email:    "owner@emberwick.test",
		Password: "battery staple",
	})
	s.Require().Error(err)
	s.Equal(401, ierr.HTTPStatusFromErr(err))
}

func (s *AuthServiceSuite) TestLoginValidatesRequest() {
	_, err := s.service.Login(s.GetContext(), &dto.LoginRequest{Email: "not-an-email", Password: "x"})
	s.True(ierr.IsValidation(err))
}
