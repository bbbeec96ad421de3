package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ResponseCache stores encoded upstream responses for a fixed time window.
// It is the only server-side caching: entries are revalidated by expiry.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// CacheConfig holds cache configuration.
type CacheConfig struct {
	TTL      time.Duration
	MaxItems int
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:      time.Hour,
		MaxItems: 2000,
	}
}

// MemoryCache is an in-process ResponseCache with TTL expiry and a size cap.
type MemoryCache struct {
	mu       sync.RWMutex
	items    map[string]cacheItem
	ttl      time.Duration
	maxItems int
	now      func() time.Time
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a new cache with the given configuration.
// Expired entries are dropped lazily and by Prune.
func NewMemoryCache(cfg CacheConfig) *MemoryCache {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = def.MaxItems
	}

	return &MemoryCache{
		items:    make(map[string]cacheItem),
		ttl:      cfg.TTL,
		maxItems: cfg.MaxItems,
		now:      time.Now,
	}
}

// Get retrieves an item from the cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || c.now().After(item.expiresAt) {
		return nil, false
	}
	return item.value, true
}

// Set stores an item in the cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxItems {
		c.evictOldest()
	}

	c.items[key] = cacheItem{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Clear removes all items from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]cacheItem)
}

// Len returns the number of items in the cache, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Prune removes expired items and returns how many were dropped.
func (c *MemoryCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropExpired()
}

func (c *MemoryCache) dropExpired() int {
	now := c.now()
	n := 0
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			n++
		}
	}
	return n
}

// evictOldest drops expired items, then the oldest 10% if still full.
// Must be called with the lock held.
func (c *MemoryCache) evictOldest() {
	if c.dropExpired() > 0 && len(c.items) < c.maxItems {
		return
	}

	toRemove := max(c.maxItems/10, 1)
	for ; toRemove > 0 && len(c.items) > 0; toRemove-- {
		var oldestKey string
		var oldest time.Time
		for key, item := range c.items {
			if oldestKey == "" || item.expiresAt.Before(oldest) {
				oldestKey, oldest = key, item.expiresAt
			}
		}
		delete(c.items, oldestKey)
	}
}

// RedisCache is a ResponseCache backed by Redis, shared across instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// NewRedisCache wraps a connected client. Keys are namespaced with prefix.
func NewRedisCache(client *redis.Client, ttl time.Duration, prefix string, logger zerolog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheConfig().TTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
		logger: logger.With().Str("component", "metadata-cache").Logger(),
	}
}

// Get returns the cached value. Redis failures are treated as misses.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}
	return val, true
}

// Set stores value with the configured TTL. Failures are logged and ignored.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
