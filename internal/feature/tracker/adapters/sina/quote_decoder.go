package sina

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"stock_tracker/internal/feature/tracker/domain"
	"stock_tracker/internal/feature/tracker/domain/entity"
)

const (
	snapshotPrefix = "var hq_str_"
	// emptyLineTemplate is what the feed returns for a symbol it knows nothing about.
	emptyLineTemplate = `var hq_str_cc000000="";`
	minLineLen        = len(emptyLineTemplate)

	sharesPerLot = 100
)

// Positional layout of the snapshot CSV body. The feed appends extra trailing
// fields on some markets; only the first quoteFieldCount are read.
const (
	fieldName = iota
	fieldOpen
	fieldPrevClose
	fieldLast
	fieldHigh
	fieldLow
	fieldBid
	fieldAsk
	fieldVolume
	fieldAmount
	fieldBidLadder
)

// The bid ladder occupies fields 10..19 and the ask ladder 20..29 as (volume, price) pairs.
// Date and time follow at 30 and 31.
const (
	fieldAskLadder  = fieldBidLadder + 2*entity.LadderDepth
	fieldDate       = fieldAskLadder + 2*entity.LadderDepth
	fieldTime       = fieldDate + 1
	quoteFieldCount = fieldTime + 1
)

var errMalformedLine = errors.New(`want var hq_str_<symbol>="<fields>";`)

// DecodeQuoteLine はスナップショットレスポンスの1行をQuoteに変換します。
//
// 空テンプレート以下の長さの行は domain.ErrNoData を返します（エラーではなく「データなし」）。
// 数値フィールドが1つでも解析できない場合、その行全体が *domain.DecodeError になります。
func DecodeQuoteLine(line string) (entity.Quote, error) {
	line = strings.TrimSpace(line)
	if len(line) <= minLineLen {
		return entity.Quote{}, domain.ErrNoData
	}

	head, body, ok := strings.Cut(line, `="`)
	if !ok || !strings.HasPrefix(head, snapshotPrefix) {
		return entity.Quote{}, &domain.DecodeError{Err: errMalformedLine}
	}
	symbol := strings.TrimPrefix(head, snapshotPrefix)
	body = strings.TrimSuffix(body, ";")
	body = strings.TrimSuffix(body, `"`)

	fields := strings.Split(body, ",")
	if len(fields) < quoteFieldCount {
		return entity.Quote{}, &domain.DecodeError{
			Symbol: symbol,
			Err:    fmt.Errorf("got %d fields, want %d", len(fields), quoteFieldCount),
		}
	}

	p := fieldParser{symbol: symbol, fields: fields}
	q := entity.Quote{
		Symbol:    symbol,
		Name:      fields[fieldName],
		Date:      fields[fieldDate],
		Time:      fields[fieldTime],
		Open:      p.float(fieldOpen, "open"),
		PrevClose: p.float(fieldPrevClose, "prev_close"),
		Last:      p.float(fieldLast, "last"),
		High:      p.float(fieldHigh, "high"),
		Low:       p.float(fieldLow, "low"),
		Bid:       p.float(fieldBid, "bid"),
		Ask:       p.float(fieldAsk, "ask"),
		Volume:    p.lots(fieldVolume, "volume"),
		Amount:    p.float(fieldAmount, "amount"),
	}
	for i := 0; i < entity.LadderDepth; i++ {
		q.Bids[i] = p.level(fieldBidLadder+2*i, fmt.Sprintf("bid%d", i+1))
		q.Asks[i] = p.level(fieldAskLadder+2*i, fmt.Sprintf("ask%d", i+1))
	}
	if p.err != nil {
		return entity.Quote{}, p.err
	}

	q.ChangePercent = changePercent(q.Last, q.PrevClose)
	return q, nil
}

// DecodeSnapshot decodes every line of a snapshot response. Lines without data are skipped;
// malformed lines are left out and reported together in the returned error, which is
// non-nil alongside the valid quotes. The result follows response order, not request order.
func DecodeSnapshot(raw string) ([]entity.Quote, error) {
	var (
		quotes []entity.Quote
		errs   []error
	)
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		q, err := DecodeQuoteLine(line)
		if errors.Is(err, domain.ErrNoData) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, errors.Join(errs...)
}

// changePercent rounds (last - prevClose) / prevClose * 100 to two decimals.
func changePercent(last, prevClose float64) float64 {
	if prevClose == 0 {
		return 0
	}
	return math.Round((last-prevClose)/prevClose*10000) / 100
}

// fieldParser keeps the first parse failure so a line decodes all-or-nothing.
type fieldParser struct {
	symbol string
	fields []string
	err    error
}

func (p *fieldParser) fail(name, value string, err error) {
	if p.err == nil {
		p.err = &domain.DecodeError{Symbol: p.symbol, Field: name, Value: value, Err: err}
	}
}

func (p *fieldParser) float(i int, name string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.fields[i]), 64)
	if err != nil {
		p.fail(name, p.fields[i], err)
		return 0
	}
	return v
}

// lots parses a share count and converts it to lots, truncating.
func (p *fieldParser) lots(i int, name string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(p.fields[i]), 10, 64)
	if err != nil {
		p.fail(name, p.fields[i], err)
		return 0
	}
	return v / sharesPerLot
}

func (p *fieldParser) level(i int, name string) entity.Level {
	return entity.Level{
		Volume: p.lots(i, name+"_volume"),
		Price:  p.float(i+1, name+"_price"),
	}
}
