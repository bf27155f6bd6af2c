package usecase

import (
	"slices"

	"stock_tracker/internal/feature/tracker/domain/entity"
)

// Subscription is one tracked symbol with its kline resolution.
type Subscription struct {
	Symbol     string
	Resolution entity.Resolution
}

// SymbolSet は追跡中の銘柄（追加順）と銘柄ごとの時間足の設定を保持します。
// エンジンのゴルーチンだけが所有するため、ロックは持ちません。
type SymbolSet struct {
	symbols []string
	members map[string]struct{}
	// 時間足の設定は追跡の有無と独立して保持し、後から追加された銘柄にも適用する
	prefs map[string]entity.Resolution
}

// NewSymbolSet builds a set from a comma separated seed. Invalid entries are dropped.
func NewSymbolSet(seed string) *SymbolSet {
	s := &SymbolSet{
		symbols: make([]string, 0),
		members: make(map[string]struct{}),
		prefs:   make(map[string]entity.Resolution),
	}
	for _, sym := range entity.ParseSeed(seed) {
		s.symbols = append(s.symbols, sym)
		s.members[sym] = struct{}{}
	}
	return s
}

// Add appends symbol and reports whether it was newly added.
func (s *SymbolSet) Add(symbol string) (bool, error) {
	if err := entity.ValidateSymbol(symbol); err != nil {
		return false, err
	}
	if s.Contains(symbol) {
		return false, nil
	}
	s.symbols = append(s.symbols, symbol)
	s.members[symbol] = struct{}{}
	return true, nil
}

// Remove drops symbol and reports whether it was tracked. The resolution preference is kept.
func (s *SymbolSet) Remove(symbol string) bool {
	if !s.Contains(symbol) {
		return false
	}
	delete(s.members, symbol)
	s.symbols = slices.DeleteFunc(s.symbols, func(v string) bool { return v == symbol })
	return true
}

func (s *SymbolSet) Contains(symbol string) bool {
	_, ok := s.members[symbol]
	return ok
}

func (s *SymbolSet) Len() int { return len(s.symbols) }

// Symbols returns a copy of the tracked symbols in insertion order.
func (s *SymbolSet) Symbols() []string {
	return slices.Clone(s.symbols)
}

// SetResolution stores the preference for symbol, tracked or not.
func (s *SymbolSet) SetResolution(symbol string, res entity.Resolution) {
	s.prefs[symbol] = res
}

// Resolution returns the preference for symbol, or DefaultResolution.
func (s *SymbolSet) Resolution(symbol string) entity.Resolution {
	if r, ok := s.prefs[symbol]; ok {
		return r
	}
	return entity.DefaultResolution
}

// Snapshot copies the tracked symbols with their resolutions for use off the engine goroutine.
func (s *SymbolSet) Snapshot() []Subscription {
	subs := make([]Subscription, 0, len(s.symbols))
	for _, sym := range s.symbols {
		subs = append(subs, Subscription{Symbol: sym, Resolution: s.Resolution(sym)})
	}
	return subs
}
