// Package cache provides caching decorators for the market feed.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stock_tracker/internal/feature/tracker/domain/entity"
	"stock_tracker/internal/feature/tracker/usecase"
)

// CachingKlineFeed decorates a MarketFeed with Redis caching of kline history.
// Snapshots always go to the feed; only Klines is cached, with a short TTL so
// several viewers or a quick resolution toggle do not refetch the same bars.
type CachingKlineFeed struct {
	inner     usecase.MarketFeed
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	logger    *zap.Logger
}

var _ usecase.MarketFeed = (*CachingKlineFeed)(nil)

// NewCachingKlineFeed decorates a MarketFeed with Redis caching.
// If ttl is 0, it defaults to 30 seconds. If namespace is empty, it uses "klines".
func NewCachingKlineFeed(rdb *redis.Client, ttl time.Duration, inner usecase.MarketFeed, namespace string, logger *zap.Logger) *CachingKlineFeed {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if namespace == "" {
		namespace = "klines"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingKlineFeed{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		logger:    logger.With(zap.String("component", "kline_cache")),
	}
}

// Snapshot is never cached.
func (c *CachingKlineFeed) Snapshot(ctx context.Context, symbols []string) ([]entity.Quote, error) {
	return c.inner.Snapshot(ctx, symbols)
}

// Klines retrieves bars, checking cache first then falling back to the feed.
func (c *CachingKlineFeed) Klines(ctx context.Context, symbol string, res entity.Resolution, count int) ([]entity.KlineBar, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.Klines(ctx, symbol, res, count)
	}

	key := c.cacheKey(symbol, res, count)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.KlineBar
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	} else if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
	}

	// 2) Fallback to the feed
	out, err := c.inner.Klines(ctx, symbol, res, count)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return out, nil
}

// cacheKey generates a cache key for a specific query.
func (c *CachingKlineFeed) cacheKey(symbol string, res entity.Resolution, count int) string {
	return fmt.Sprintf("%s:%s:%s:%d",
		c.namespace,
		safe(symbol),
		safe(res.String()),
		count,
	)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
