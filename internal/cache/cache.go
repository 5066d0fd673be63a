package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get retrieves a value from the cache
	// Returns the value and a boolean indicating whether the key was found
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set adds a value to the cache with the specified expiration
	// If expiration is 0, the configured default applies
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	// Flush removes all items from the cache
	Flush(ctx context.Context)
}

const (
	PrefixWebhookEvent = "webhook_event:v1:"
)

// GenerateKey creates a cache key from a prefix and a set of parameters
// It joins all parameters with a colon and appends them to the prefix
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params))
	for i, param := range params {
		parts[i] = fmt.Sprintf("%v", param)
	}
	return prefix + strings.Join(parts, ":")
}
