package middleware

import (
	"net/http"

	"github.com/emberwick/storefront/internal/config"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/service"
	"github.com/emberwick/storefront/internal/types"
	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware admits requests carrying a valid admin session cookie
// and puts the admin's id and role on the request context
func AdminAuthMiddleware(cfg *config.Configuration, authService service.AuthService, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cfg.Auth.CookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ierr.ErrorResponse{
				Error: ierr.ErrorDetail{Display: "Unauthorized"},
			})
			return
		}

		claims, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Debugw("rejected admin session", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ierr.ErrorResponse{
				Error: ierr.ErrorDetail{Display: "Invalid or expired session"},
			})
			return
		}

		ctx := types.SetUserID(c.Request.Context(), claims.UserID)
		ctx = types.SetRole(ctx, claims.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
