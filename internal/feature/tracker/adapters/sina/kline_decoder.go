package sina

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"stock_tracker/internal/feature/tracker/adapters/sina/dto"
	"stock_tracker/internal/feature/tracker/domain"
	"stock_tracker/internal/feature/tracker/domain/entity"
)

const (
	klineTimeLayout = "2006-01-02 15:04:05"
	klineDateLayout = "2006-01-02"
)

// feedLocation is the exchange's wall clock (China Standard Time, no DST).
var feedLocation = time.FixedZone("CST", 8*60*60)

// DecodeKlines はK線エンドポイントのJSON配列をKlineBarのスライスに変換します。
// 順序は受信順のまま（古い順）で、並べ替えは行いません。
// 1件でも数値・日付の解析に失敗した場合は部分的な結果を返さず *domain.DecodeError を返します。
func DecodeKlines(raw []byte) ([]entity.KlineBar, error) {
	var items []dto.KlineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &domain.DecodeError{Err: fmt.Errorf("kline json: %w", err)}
	}

	bars := make([]entity.KlineBar, 0, len(items))
	for i, it := range items {
		bar, err := decodeKlineItem(it)
		if err != nil {
			return nil, fmt.Errorf("kline record %d: %w", i, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func decodeKlineItem(it dto.KlineItem) (entity.KlineBar, error) {
	// 時刻付きの形式を先に試し、失敗したら日付のみ（0時）にフォールバック
	tm, err := time.ParseInLocation(klineTimeLayout, it.Day, feedLocation)
	if err != nil {
		tm, err = time.ParseInLocation(klineDateLayout, it.Day, feedLocation)
		if err != nil {
			return entity.KlineBar{}, &domain.DecodeError{Field: "day", Value: it.Day, Err: err}
		}
	}

	bar := entity.KlineBar{Time: tm}
	for _, f := range []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", it.Open, &bar.Open},
		{"high", it.High, &bar.High},
		{"low", it.Low, &bar.Low},
		{"close", it.Close, &bar.Close},
		{"volume", it.Volume, &bar.Volume},
	} {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return entity.KlineBar{}, &domain.DecodeError{Field: f.name, Value: f.raw, Err: err}
		}
		*f.dst = v
	}

	if it.Amount != nil && *it.Amount != "" {
		v, err := strconv.ParseFloat(*it.Amount, 64)
		if err != nil {
			return entity.KlineBar{}, &domain.DecodeError{Field: "amount", Value: *it.Amount, Err: err}
		}
		bar.Amount = v
	}
	return bar, nil
}
