// Package usecase implements the watchlist: which symbols are tracked and at which resolution.
package usecase

import (
	"context"
	"fmt"
	"strings"

	"stock_tracker/internal/feature/tracker/domain"
	tracker "stock_tracker/internal/feature/tracker/domain/entity"
	"stock_tracker/internal/feature/watchlist/domain/entity"
)

// WatchlistRepository abstracts the persistence of watchlist rows.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type WatchlistRepository interface {
	List(ctx context.Context) ([]entity.WatchItem, error)
	Upsert(ctx context.Context, item entity.WatchItem) error
}

// Startup is the engine's initial state as restored from the watchlist.
type Startup struct {
	Seed        string
	Resolutions map[string]tracker.Resolution
}

// WatchlistUsecase provides the watchlist operations.
type WatchlistUsecase struct {
	repo WatchlistRepository
}

// NewWatchlistUsecase creates a new WatchlistUsecase with the given repository.
func NewWatchlistUsecase(r WatchlistRepository) *WatchlistUsecase {
	return &WatchlistUsecase{repo: r}
}

// Bootstrap は保存済みのウォッチリストからエンジンの初期状態を復元します。
// ストアが空の場合のみ seed を保存して使います（初回起動）。
func (u *WatchlistUsecase) Bootstrap(ctx context.Context, seed string) (Startup, error) {
	items, err := u.repo.List(ctx)
	if err != nil {
		return Startup{}, err
	}

	if len(items) == 0 {
		for i, sym := range tracker.ParseSeed(seed) {
			item := entity.WatchItem{Symbol: sym, Resolution: tracker.DefaultResolution, Tracked: true, Position: i + 1}
			if err := u.repo.Upsert(ctx, item); err != nil {
				return Startup{}, err
			}
			items = append(items, item)
		}
	}

	st := Startup{Resolutions: make(map[string]tracker.Resolution, len(items))}
	var symbols []string
	for _, it := range items {
		st.Resolutions[it.Symbol] = it.Resolution
		if it.Tracked {
			symbols = append(symbols, it.Symbol)
		}
	}
	st.Seed = strings.Join(symbols, ",")
	return st, nil
}

// Track は銘柄を追跡対象として末尾に保存します。すでに追跡中の場合は何もしません。
func (u *WatchlistUsecase) Track(ctx context.Context, symbol string) error {
	if err := tracker.ValidateSymbol(symbol); err != nil {
		return err
	}
	items, err := u.repo.List(ctx)
	if err != nil {
		return err
	}

	item := entity.WatchItem{Symbol: symbol, Resolution: tracker.DefaultResolution}
	last := 0
	for _, it := range items {
		if it.Symbol == symbol {
			if it.Tracked {
				return nil
			}
			item = it
		}
		last = max(last, it.Position)
	}
	item.Tracked = true
	item.Position = last + 1
	return u.repo.Upsert(ctx, item)
}

// Untrack は銘柄を追跡対象から外します。時間足の設定は残します。
func (u *WatchlistUsecase) Untrack(ctx context.Context, symbol string) error {
	if err := tracker.ValidateSymbol(symbol); err != nil {
		return err
	}
	item, ok, err := u.find(ctx, symbol)
	if err != nil || !ok || !item.Tracked {
		return err
	}
	item.Tracked = false
	return u.repo.Upsert(ctx, item)
}

// SetResolution は銘柄の時間足を保存します。追跡していない銘柄にも設定できます。
func (u *WatchlistUsecase) SetResolution(ctx context.Context, symbol string, res tracker.Resolution) error {
	if err := tracker.ValidateSymbol(symbol); err != nil {
		return err
	}
	if !res.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidResolution, res)
	}
	item, ok, err := u.find(ctx, symbol)
	if err != nil {
		return err
	}
	if !ok {
		item = entity.WatchItem{Symbol: symbol}
	}
	item.Resolution = res
	return u.repo.Upsert(ctx, item)
}

// Tracked returns the tracked symbols in display order.
func (u *WatchlistUsecase) Tracked(ctx context.Context) ([]string, error) {
	items, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Tracked {
			out = append(out, it.Symbol)
		}
	}
	return out, nil
}

func (u *WatchlistUsecase) find(ctx context.Context, symbol string) (entity.WatchItem, bool, error) {
	items, err := u.repo.List(ctx)
	if err != nil {
		return entity.WatchItem{}, false, err
	}
	for _, it := range items {
		if it.Symbol == symbol {
			return it, true, nil
		}
	}
	return entity.WatchItem{}, false, nil
}
