package entity

import "time"

// KlineBar is one candlestick bar as returned by the kline endpoint.
type KlineBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount"` // 0 when the feed omits it
}
