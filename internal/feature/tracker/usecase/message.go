package usecase

import "stock_tracker/internal/feature/tracker/domain/entity"

// Command はプレゼンテーション層からエンジンへ送られる指示です。
type Command interface {
	Name() string
}

// Refresh は追跡中の全銘柄のスナップショットを即時取得させます。
type Refresh struct{}

// SetInterval はクォート更新の周期を変更します。
type SetInterval struct {
	Milliseconds int
}

// StockAdd は銘柄を追跡対象に追加します。
type StockAdd struct {
	Symbol string
}

// StockDel は銘柄を追跡対象から外します。
type StockDel struct {
	Symbol string
}

// StockSetResolution は銘柄のK線の時間足を変更します。
type StockSetResolution struct {
	Symbol     string
	Resolution entity.Resolution
}

func (Refresh) Name() string            { return "refresh" }
func (SetInterval) Name() string        { return "set_interval" }
func (StockAdd) Name() string           { return "stock_add" }
func (StockDel) Name() string           { return "stock_del" }
func (StockSetResolution) Name() string { return "stock_set_resolution" }

// Event types as they appear on the stream.
const (
	EventQuoteList = "quote_list"
	EventQuote     = "quote"
	EventKline     = "kline"
)

// Event はエンジンがプレゼンテーション層へ公開する結果です。
type Event interface {
	Type() string
}

// QuoteListEvent carries one batched snapshot of every tracked symbol.
type QuoteListEvent struct {
	Quotes []entity.Quote `json:"quotes"`
}

// QuoteEvent carries the first quote of a newly added symbol.
type QuoteEvent struct {
	Symbol string       `json:"symbol"`
	Name   string       `json:"name"`
	Quote  entity.Quote `json:"quote"`
}

// KlineEvent carries the kline history of one symbol.
type KlineEvent struct {
	Symbol     string            `json:"symbol"`
	Resolution entity.Resolution `json:"resolution"`
	Bars       []entity.KlineBar `json:"bars"`
}

func (QuoteListEvent) Type() string { return EventQuoteList }
func (QuoteEvent) Type() string     { return EventQuote }
func (KlineEvent) Type() string     { return EventKline }
