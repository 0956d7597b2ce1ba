package ratesource

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/domain"
)

const redisKeyPrefix = "rate:"

// RedisCache shares quotes between processes through redis. Redis being down
// degrades to straight pass-through: the quote still comes from the inner
// source, it just is not shared.
type RedisCache struct {
	mu     sync.RWMutex
	client *redis.Client
	inner  Source
	ttl    time.Duration
	// set times recorded locally; redis has no cheap per-key TTL listing
	expiry map[string]time.Time
	logger zerolog.Logger
}

// NewRedisCache wraps inner with a redis-backed TTL cache.
func NewRedisCache(client *redis.Client, inner Source, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		expiry: make(map[string]time.Time),
		logger: logger,
	}
}

// GetRate checks redis first, then falls through to the inner source and
// stores the fresh quote.
func (c *RedisCache) GetRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	key := redisKeyPrefix + string(pair)

	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if rate, perr := decimal.NewFromString(val); perr == nil {
			return rate, nil
		}
		c.logger.Warn().Str("key", key).Str("value", val).Msg("unparsable cached rate, refetching")
	} else if err != redis.Nil {
		c.logger.Warn().Err(err).Msg("redis rate lookup failed, querying source directly")
	}

	rate, err := c.inner.GetRate(ctx, pair)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.client.Set(ctx, key, rate.String(), c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis rate store failed")
	} else {
		c.mu.Lock()
		c.expiry[string(pair)] = time.Now().Add(c.ttl)
		c.mu.Unlock()
	}

	return rate, nil
}

// CacheStatus reports the pairs this process has stored and their expiry.
func (c *RedisCache) CacheStatus() map[string]time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	out := make(map[string]time.Time, len(c.expiry))
	for pair, exp := range c.expiry {
		if now.Before(exp) {
			out[pair] = exp
		}
	}
	return out
}
