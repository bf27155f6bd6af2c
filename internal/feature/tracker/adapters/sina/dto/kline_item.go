// Package dto defines the wire format of the kline endpoint.
package dto

// KlineItem is one element of the kline endpoint's JSON array. Every numeric value is a string.
//
//	{"day":"2024-09-25 10:45:00","open":"49.310","high":"52.900","low":"48.500",
//	 "close":"52.130","volume":"2237250","amount":"113002687.0127"}
type KlineItem struct {
	Day    string  `json:"day"`
	Open   string  `json:"open"`
	High   string  `json:"high"`
	Low    string  `json:"low"`
	Close  string  `json:"close"`
	Volume string  `json:"volume"`
	Amount *string `json:"amount,omitempty"` // absent for some scales
}
