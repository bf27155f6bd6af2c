package dto

import "stock_tracker/internal/feature/tracker/domain/entity"

// ErrorRes is the body of every non-2xx response.
type ErrorRes struct {
	Error string `json:"error"`
}

// AcceptedRes is returned when a command was queued for the engine.
type AcceptedRes struct {
	Status  string `json:"status"`
	Command string `json:"command"`
}

// QuoteListRes is the last-known quote list.
type QuoteListRes struct {
	Quotes []entity.Quote `json:"quotes"`
}

// KlineRes is the last-known kline history of one symbol.
type KlineRes struct {
	Symbol     string            `json:"symbol"`
	Resolution string            `json:"resolution"`
	Bars       []entity.KlineBar `json:"bars"`
}

// StreamMessage wraps every event pushed over the websocket stream.
type StreamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
