package blacklist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache remembers recently confirmed revocations.
type Cache interface {
	Contains(ctx context.Context, tokenHash string) (bool, error)
	Add(ctx context.Context, tokenHash string, ttl time.Duration) error
}

// MemoryCache is a process-scoped Cache with an injectable clock.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryCache returns an empty MemoryCache. A nil now defaults to time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{entries: make(map[string]time.Time), now: now}
}

// Contains implements Cache. Expired entries are dropped on read.
func (c *MemoryCache) Contains(_ context.Context, tokenHash string) (bool, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	exp, ok := c.entries[tokenHash]
	if !ok {
		return false, nil
	}
	if !now.Before(exp) {
		delete(c.entries, tokenHash)
		return false, nil
	}
	return true, nil
}

// Add implements Cache.
func (c *MemoryCache) Add(_ context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	exp := c.now().Add(ttl)

	c.mu.Lock()
	c.entries[tokenHash] = exp
	c.mu.Unlock()
	return nil
}

// Sweep removes expired entries and returns how many were dropped.
func (c *MemoryCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for h, exp := range c.entries {
		if !now.Before(exp) {
			delete(c.entries, h)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RedisCache shares revocations across instances. Redis expires entries itself.
type RedisCache struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisCache returns a RedisCache writing keys under prefix (default "bl:").
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "bl:"
	}
	return &RedisCache{redis: client, prefix: prefix}
}

// Contains implements Cache.
func (c *RedisCache) Contains(ctx context.Context, tokenHash string) (bool, error) {
	n, err := c.redis.Exists(ctx, c.prefix+tokenHash).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist cache: %w", err)
	}
	return n == 1, nil
}

// Add implements Cache.
func (c *RedisCache) Add(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.redis.Set(ctx, c.prefix+tokenHash, 1, ttl).Err(); err != nil {
		return fmt.Errorf("blacklist cache: %w", err)
	}
	return nil
}
