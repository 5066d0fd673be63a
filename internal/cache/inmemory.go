package cache

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/config"
	goCache "github.com/patrickmn/go-cache"
)

// DefaultExpiration is the default expiration time for cache entries
const DefaultExpiration = 30 * time.Minute

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 1 * time.Hour

// InMemoryCache implements the Cache interface using github.com/patrickmn/go-cache
type InMemoryCache struct {
	cache   *goCache.Cache
	enabled bool
}

// NewInMemoryCache creates the process-local cache from the cache config
func NewInMemoryCache(cfg *config.Configuration) Cache {
	ttl := cfg.Cache.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	cleanup := cfg.Cache.CleanupInterval
	if cleanup <= 0 {
		cleanup = DefaultCleanupInterval
	}

	return &InMemoryCache{
		cache:   goCache.New(ttl, cleanup),
		enabled: cfg.Cache.Enabled,
	}
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}
	span := StartCacheSpan(ctx, "inmemory", "get", map[string]interface{}{"key": key})
	defer FinishSpan(span)

	value, found := c.cache.Get(key)
	if span != nil {
		span.SetData("hit", found)
	}
	SetSpanSuccess(span)
	return value, found
}

// Set adds a value to the cache with the specified expiration
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	span := StartCacheSpan(ctx, "inmemory", "set", map[string]interface{}{"key": key})
	defer FinishSpan(span)

	if expiration == 0 {
		expiration = goCache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

// Flush removes all items from the cache
func (c *InMemoryCache) Flush(_ context.Context) {
	if !c.enabled {
		return
	}
	c.cache.Flush()
}
