// Package di provides dependency injection factories for creating application components.
package di

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stock_tracker/internal/feature/tracker/adapters/sina"
	"stock_tracker/internal/feature/tracker/usecase"
	"stock_tracker/internal/platform/cache"
	"stock_tracker/internal/platform/config"
	infrahttp "stock_tracker/internal/platform/http"
)

// NewSinaClient creates a feed client with its own HTTP client.
func NewSinaClient(cfg config.FeedConfig, logger *zap.Logger) (*sina.Client, error) {
	httpClient, err := infrahttp.NewHTTPClient(cfg.Timeout, cfg.Proxy)
	if err != nil {
		return nil, err
	}

	sc := sina.DefaultConfig()
	if cfg.QuoteBaseURL != "" {
		sc.QuoteBaseURL = cfg.QuoteBaseURL
	}
	if cfg.KlineBaseURL != "" {
		sc.KlineBaseURL = cfg.KlineBaseURL
	}
	if cfg.Referer != "" {
		sc.Referer = cfg.Referer
	}
	if cfg.KlineBars > 0 {
		sc.KlineBars = cfg.KlineBars
	}
	sc.Timeout = cfg.Timeout
	return sina.NewClient(sc, httpClient, logger), nil
}

// NewMarketFeed returns the feed used by the engine.
// If Redis is available, kline history is cached in it. Otherwise the client is used directly.
func NewMarketFeed(cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (usecase.MarketFeed, error) {
	client, err := NewSinaClient(cfg.Feed, logger)
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		return client, nil
	}
	return cache.NewCachingKlineFeed(rdb, cfg.Cache.TTL, client, cfg.Cache.Namespace, logger), nil
}
