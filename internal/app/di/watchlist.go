package di

import (
	"gorm.io/gorm"

	watchlistadapters "stock_tracker/internal/feature/watchlist/adapters"
	watchlistusecase "stock_tracker/internal/feature/watchlist/usecase"
)

// NewWatchlistUsecase creates a gorm-backed watchlist usecase.
func NewWatchlistUsecase(db *gorm.DB) *watchlistusecase.WatchlistUsecase {
	return watchlistusecase.NewWatchlistUsecase(watchlistadapters.NewWatchlistRepository(db))
}
