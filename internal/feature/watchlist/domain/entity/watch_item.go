// Package entity defines the domain models for the watchlist feature.
package entity

import tracker "stock_tracker/internal/feature/tracker/domain/entity"

// WatchItem is one persisted watchlist row. Rows outlive membership so a
// resolution preference survives removing and re-adding the symbol.
type WatchItem struct {
	Symbol     string
	Resolution tracker.Resolution
	Tracked    bool
	Position   int // display order among tracked items
}
