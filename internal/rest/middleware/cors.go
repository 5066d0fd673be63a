package middleware

import (
	"net/http"

	"github.com/emberwick/storefront/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// CORSMiddleware allows the configured storefront origins. Credentials are
// allowed so the admin cookie survives cross-origin calls, which means the
// origin is echoed rather than wildcarded.
func CORSMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	allowAll := len(cfg.Server.AllowedOrigins) == 0 || lo.Contains(cfg.Server.AllowedOrigins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || lo.Contains(cfg.Server.AllowedOrigins, origin)) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Stripe-Signature, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
