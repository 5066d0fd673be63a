package middleware

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/types"
	"github.com/gin-gonic/gin"
)

func RequestIDMiddleware(c *gin.Context) {
	// Create a new context from the request context
	ctx := c.Request.Context()

	// Add request ID
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix("req")
	}

	// Create new context with values
	ctx = types.SetRequestID(ctx, requestID)

	// Replace request context
	c.Request = c.Request.WithContext(ctx)

	// Add headers for response
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}

// LoggingMiddleware writes one structured line per request
func LoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Infow("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", types.GetRequestID(c.Request.Context()),
			"client_ip", c.ClientIP(),
		)
	}
}

// TimeoutMiddleware bounds the request context so downstream database and
// payment calls are cancelled once the budget is spent
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
