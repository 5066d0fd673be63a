package v1

import (
	"net/http"
	"time"

	"github.com/emberwick/storefront/internal/api/dto"
	"github.com/emberwick/storefront/internal/config"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/service"
	"github.com/emberwick/storefront/internal/types"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
	logger      *logger.Logger
	cfg         *config.Configuration
}

func NewAuthHandler(cfg *config.Configuration, authService service.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
		cfg:         cfg,
	}
}

// Login checks the admin credentials and stores the session token in an
// HTTP-only cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Please check the request payload").
			Mark(ierr.ErrValidation))
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	maxAge := int(time.Until(authResponse.ExpiresAt).Seconds())
	h.setSessionCookie(c, authResponse.Token, maxAge)

	c.JSON(http.StatusOK, authResponse)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, dto.MeResponse{
		UserID: types.GetUserID(ctx),
		Role:   types.GetRole(ctx),
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Auth.CookieName, value, maxAge, "/", "", h.cfg.Auth.CookieSecure, true)
}
