package ratesource

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/domain"
)

// Cache is an in-process TTL cache in front of another source. Expired
// entries re-fetch on demand; a fetch failure does not serve stale data.
type Cache struct {
	mu      sync.RWMutex
	inner   Source
	ttl     time.Duration
	entries map[domain.Pair]cacheEntry
	logger  zerolog.Logger
}

type cacheEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// NewCache wraps inner with a TTL cache.
func NewCache(inner Source, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[domain.Pair]cacheEntry),
		logger:  logger,
	}
}

// GetRate returns the cached quote when fresh, otherwise asks the inner
// source and caches the result.
func (c *Cache) GetRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	c.mu.RLock()
	entry, ok := c.entries[pair]
	c.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.rate, nil
	}

	rate, err := c.inner.GetRate(ctx, pair)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.entries[pair] = cacheEntry{rate: rate, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return rate, nil
}

// CacheStatus returns the expiry time of every live entry.
func (c *Cache) CacheStatus() map[string]time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	out := make(map[string]time.Time, len(c.entries))
	for pair, entry := range c.entries {
		if now.Before(entry.expiresAt) {
			out[string(pair)] = entry.expiresAt
		}
	}
	return out
}

// Clear drops every cached quote.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[domain.Pair]cacheEntry)
}
