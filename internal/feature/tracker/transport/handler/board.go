package handler

import (
	"slices"
	"sync"

	"stock_tracker/internal/feature/tracker/domain/entity"
	"stock_tracker/internal/feature/tracker/usecase"
)

// Board はエンジンから受け取った最新の状態（クォート一覧と銘柄ごとのK線）を保持します。
// 削除済みの銘柄に対する遅れて届いたイベントは無視します。
//
// 追加を依頼した銘柄は Expect で「承認待ち」となり、エンジンが最初の QuoteEvent を
// 公開した時点で追跡対象になります。
type Board struct {
	mu      sync.RWMutex
	tracked map[string]struct{}
	pending map[string]struct{}
	quotes  []entity.Quote
	klines  map[string]usecase.KlineEvent
}

// NewBoard creates a board that already tracks symbols.
func NewBoard(symbols []string) *Board {
	b := &Board{
		tracked: make(map[string]struct{}, len(symbols)),
		pending: make(map[string]struct{}),
		klines:  make(map[string]usecase.KlineEvent),
	}
	for _, s := range symbols {
		b.tracked[s] = struct{}{}
	}
	return b
}

// Expect marks symbol as awaiting the engine's first quote. It reports false if symbol is already tracked.
func (b *Board) Expect(symbol string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isTracked(symbol) {
		return false
	}
	b.pending[symbol] = struct{}{}
	return true
}

// Unexpect cancels a pending Expect.
func (b *Board) Unexpect(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, symbol)
}

// Tracked reports whether symbol is tracked.
func (b *Board) Tracked(symbol string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.isTracked(symbol)
}

// Forget drops symbol and everything known about it.
func (b *Board) Forget(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tracked, symbol)
	delete(b.pending, symbol)
	delete(b.klines, symbol)
	b.quotes = slices.DeleteFunc(b.quotes, func(q entity.Quote) bool { return q.Symbol == symbol })
}

// Apply はイベントを反映します。追跡していない銘柄のデータは捨てます。
// 承認待ちの銘柄がイベントに現れた場合は追跡を開始し、その銘柄を返します。
func (b *Board) Apply(ev usecase.Event) (added []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch e := ev.(type) {
	case usecase.QuoteListEvent:
		quotes := make([]entity.Quote, 0, len(e.Quotes))
		for _, q := range e.Quotes {
			if b.accept(q.Symbol) {
				added = append(added, q.Symbol)
			}
			if b.isTracked(q.Symbol) {
				quotes = append(quotes, q)
			}
		}
		b.quotes = quotes

	case usecase.QuoteEvent:
		if b.accept(e.Symbol) {
			added = append(added, e.Symbol)
		}
		if !b.isTracked(e.Symbol) {
			return added
		}
		if i := slices.IndexFunc(b.quotes, func(q entity.Quote) bool { return q.Symbol == e.Symbol }); i >= 0 {
			b.quotes[i] = e.Quote
			return added
		}
		b.quotes = append(b.quotes, e.Quote)

	case usecase.KlineEvent:
		if b.isTracked(e.Symbol) {
			b.klines[e.Symbol] = e
		}
	}
	return added
}

// accept promotes a pending symbol to tracked.
func (b *Board) accept(symbol string) bool {
	if _, ok := b.pending[symbol]; !ok {
		return false
	}
	delete(b.pending, symbol)
	b.tracked[symbol] = struct{}{}
	return true
}

func (b *Board) isTracked(symbol string) bool {
	_, ok := b.tracked[symbol]
	return ok
}

// Quotes returns a copy of the last-known quote list.
func (b *Board) Quotes() []entity.Quote {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]entity.Quote, len(b.quotes))
	copy(out, b.quotes)
	return out
}

// Quote returns the last-known quote of symbol.
func (b *Board) Quote(symbol string) (entity.Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, q := range b.quotes {
		if q.Symbol == symbol {
			return q, true
		}
	}
	return entity.Quote{}, false
}

// Klines returns the last-known kline history of symbol.
func (b *Board) Klines(symbol string) (usecase.KlineEvent, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ev, ok := b.klines[symbol]
	return ev, ok
}
