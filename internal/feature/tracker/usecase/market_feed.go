package usecase

import (
	"context"

	"stock_tracker/internal/feature/tracker/domain/entity"
)

// MarketFeed は行情データ（スナップショットとK線）を取得するインターフェイスです。
// 外部フィードの実装を抽象化します。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type MarketFeed interface {
	// Snapshot returns one quote per symbol the feed has data for, in response order.
	Snapshot(ctx context.Context, symbols []string) ([]entity.Quote, error)
	// Klines returns up to count bars for symbol at res, oldest first.
	Klines(ctx context.Context, symbol string, res entity.Resolution, count int) ([]entity.KlineBar, error)
}
