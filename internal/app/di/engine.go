package di

import (
	"go.uber.org/zap"

	"stock_tracker/internal/feature/tracker/usecase"
	watchlistusecase "stock_tracker/internal/feature/watchlist/usecase"
	"stock_tracker/internal/platform/config"
	"stock_tracker/internal/shared/ratelimiter"
)

// NewEngine creates the sync engine with the state restored from the watchlist.
func NewEngine(cfg *config.Config, feed usecase.MarketFeed, startup watchlistusecase.Startup, logger *zap.Logger) *usecase.Engine {
	limiter := ratelimiter.NewRateLimiter(cfg.Engine.KlineRateLimit, cfg.Engine.KlineRatePeriod, logger)

	return usecase.NewEngine(feed, limiter, logger, usecase.EngineConfig{
		QuoteInterval: cfg.Engine.QuoteInterval,
		KlineInterval: cfg.Engine.KlineInterval,
		KlineBars:     cfg.Feed.KlineBars,
		Seed:          startup.Seed,
		Resolutions:   startup.Resolutions,
		EventBuffer:   cfg.Engine.EventBuffer,
		CommandBuffer: cfg.Engine.CommandBuffer,
	})
}
