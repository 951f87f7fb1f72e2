package quote

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stockwatch/internal/metrics"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSource serves complete quotes from the cache for TTL. Incomplete
// quotes are never cached so the next check asks the provider again.
type CachedSource struct {
	Source Source
	Cache  Cache
	TTL    time.Duration
	Logger *zap.Logger
}

func (c *CachedSource) Fetch(ctx context.Context, symbol string) Quote {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if c.Cache == nil || c.TTL <= 0 {
		return c.Source.Fetch(ctx, symbol)
	}
	key := "quote:" + symbol
	if raw, ok, err := c.Cache.Get(ctx, key); err != nil {
		c.logger().Debug("quote cache get failed", zap.String("symbol", symbol), zap.Error(err))
	} else if ok {
		var q Quote
		if err := json.Unmarshal(raw, &q); err == nil && q.Usable() {
			metrics.QuoteFetches.WithLabelValues("cache_hit").Inc()
			return q
		}
	}

	q := c.Source.Fetch(ctx, symbol)
	if !q.Usable() {
		return q
	}
	if raw, err := json.Marshal(q); err == nil {
		if err := c.Cache.Set(ctx, key, raw, c.TTL); err != nil {
			c.logger().Debug("quote cache set failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return q
}

func (c *CachedSource) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

type RedisCache struct {
	Client *redis.Client
	Prefix string
}

func NewRedisCache(opt *redis.Options, prefix string) *RedisCache {
	return &RedisCache{Client: redis.NewClient(opt), Prefix: prefix}
}

func (s *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.Client.Get(ctx, s.Prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.Client.Set(ctx, s.Prefix+key, value, ttl).Err()
}

func (s *RedisCache) Close() error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Close()
}

func (s *RedisCache) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}
