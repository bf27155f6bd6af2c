package entity

import (
	"fmt"

	"stock_tracker/internal/feature/tracker/domain"
)

// Resolution はK線の集計期間です。
type Resolution int

const (
	Minute5 Resolution = iota
	Minute15
	Minute30
	Minute60
	Day
	Week
	Month
)

// DefaultResolution is used for symbols without a stored preference.
const DefaultResolution = Minute15

// resolutionTable maps each resolution to its name and the feed's "scale" parameter.
// Month reuses 60 exactly as the feed client always has; see DESIGN.md before changing it.
var resolutionTable = [...]struct {
	name  string
	scale int
}{
	Minute5:  {"5m", 5},
	Minute15: {"15m", 15},
	Minute30: {"30m", 30},
	Minute60: {"60m", 60},
	Day:      {"day", 240},
	Week:     {"week", 1200},
	Month:    {"month", 60},
}

// Resolutions lists every resolution in display order.
func Resolutions() []Resolution {
	return []Resolution{Minute5, Minute15, Minute30, Minute60, Day, Week, Month}
}

// Valid reports whether r is one of the declared resolutions.
func (r Resolution) Valid() bool {
	return r >= Minute5 && r <= Month
}

// Scale は kline エンドポイントの scale パラメータを返します。
func (r Resolution) Scale() int {
	if !r.Valid() {
		return resolutionTable[DefaultResolution].scale
	}
	return resolutionTable[r].scale
}

func (r Resolution) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Resolution(%d)", int(r))
	}
	return resolutionTable[r].name
}

// ParseResolution parses the names produced by String.
func ParseResolution(s string) (Resolution, error) {
	for _, r := range Resolutions() {
		if resolutionTable[r].name == s {
			return r, nil
		}
	}
	return DefaultResolution, fmt.Errorf("%w: %q", domain.ErrInvalidResolution, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Resolution) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidResolution, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Resolution) UnmarshalText(b []byte) error {
	v, err := ParseResolution(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
