// Package entity defines the domain models for the tracker feature.
package entity

// LadderDepth is the number of price levels on each side of the book in a snapshot.
const LadderDepth = 5

// Level is one price level of the bid or ask ladder.
type Level struct {
	Volume int64   `json:"volume"` // lots
	Price  float64 `json:"price"`
}

// Quote is a point-in-time snapshot of one symbol, including the top five book levels.
// Volumes are stored in lots (shares / 100).
type Quote struct {
	Symbol        string             `json:"symbol"`
	Name          string             `json:"name"`
	Date          string             `json:"date"`
	Time          string             `json:"time"`
	Open          float64            `json:"open"`
	PrevClose     float64            `json:"prev_close"`
	Last          float64            `json:"last"`
	High          float64            `json:"high"`
	Low           float64            `json:"low"`
	Bid           float64            `json:"bid"`
	Ask           float64            `json:"ask"`
	Volume        int64              `json:"volume"`
	Amount        float64            `json:"amount"`
	ChangePercent float64            `json:"change_percent"`
	Bids          [LadderDepth]Level `json:"bids"`
	Asks          [LadderDepth]Level `json:"asks"`
}
