// Package domain defines the error taxonomy of the tracker feature.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData は「この銘柄のデータなし」を示します。スナップショット行が空テンプレート以下の長さの場合に返されます。
	// エラーではなくスキップ扱いです。
	ErrNoData = errors.New("no data for symbol")

	// ErrNoSymbols is returned when a snapshot is requested for an empty symbol list.
	ErrNoSymbols = errors.New("no symbols requested")

	// ErrInvalidResolution is returned when a resolution name is unknown.
	ErrInvalidResolution = errors.New("invalid kline resolution")
)

// TransportError はフィードへのHTTP呼び出しの失敗（ネットワークエラーまたは非2xxステータス）を表します。
type TransportError struct {
	Op         string // "snapshot" or "kline"
	URL        string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: http %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError はレスポンスの構造が不正であることを表します（フィールド数不足、数値でないフィールド、日付の不正など）。
type DecodeError struct {
	Symbol string // empty when the symbol could not be determined
	Field  string
	Value  string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "decode"
	if e.Symbol != "" {
		msg += " " + e.Symbol
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": parse %s %q", e.Field, e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError は銘柄コードが形式チェックに失敗したことを表します。
type ValidationError struct {
	Symbol string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid symbol %q: want sh or sz followed by 6 digits", e.Symbol)
}
