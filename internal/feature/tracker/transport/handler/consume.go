package handler

import (
	"context"

	"go.uber.org/zap"

	"stock_tracker/internal/feature/tracker/usecase"
)

// WatchlistTracker は追跡を開始した銘柄を保存します。
type WatchlistTracker interface {
	Track(ctx context.Context, symbol string) error
}

// Consume applies every engine event to the board and broadcasts it until ctx is done.
// Symbols the engine accepted after an AddStock request are saved to watchlist.
func Consume(ctx context.Context, events <-chan usecase.Event, board *Board, hub *Hub, watchlist WatchlistTracker, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			for _, symbol := range board.Apply(ev) {
				if watchlist == nil {
					continue
				}
				if err := watchlist.Track(ctx, symbol); err != nil {
					logger.Error("failed to save tracked symbol", zap.String("symbol", symbol), zap.Error(err))
				}
			}
			if hub != nil {
				hub.Broadcast(ev)
			}
		}
	}
}
