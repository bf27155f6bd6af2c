package sina

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_tracker/internal/feature/tracker/domain"
	"stock_tracker/internal/feature/tracker/domain/entity"
)

// sampleFields は33フィールド（末尾に余分な1フィールド）を持つ実データ相当の本文です。
func sampleFields() []string {
	return []string{
		"浦发银行", "101.00", "100.00", "105.00", "106.00", "99.50", "104.99", "105.00",
		"123456", "12963000.000",
		"1000", "104.99", "2000", "104.98", "300", "104.97", "450", "104.96", "550", "104.95",
		"1500", "105.00", "2500", "105.01", "350", "105.02", "99", "105.03", "10000", "105.04",
		"2024-09-25", "10:45:03", "00",
	}
}

func snapshotLine(symbol string, fields []string) string {
	return "var hq_str_" + symbol + `="` + strings.Join(fields, ",") + `";`
}

func TestDecodeQuoteLine_Success(t *testing.T) {
	t.Parallel()

	q, err := DecodeQuoteLine(snapshotLine("sh600000", sampleFields()))
	require.NoError(t, err)

	assert.Equal(t, "sh600000", q.Symbol)
	assert.Equal(t, "浦发银行", q.Name)
	assert.Equal(t, "2024-09-25", q.Date)
	assert.Equal(t, "10:45:03", q.Time)
	assert.Equal(t, 101.00, q.Open)
	assert.Equal(t, 100.00, q.PrevClose)
	assert.Equal(t, 105.00, q.Last)
	assert.Equal(t, 106.00, q.High)
	assert.Equal(t, 99.50, q.Low)
	assert.Equal(t, 104.99, q.Bid)
	assert.Equal(t, 105.00, q.Ask)
	assert.Equal(t, int64(1234), q.Volume, "shares are truncated to lots")
	assert.Equal(t, 12963000.0, q.Amount)
	assert.Equal(t, 5.00, q.ChangePercent)

	assert.Equal(t, entity.Level{Volume: 10, Price: 104.99}, q.Bids[0])
	assert.Equal(t, entity.Level{Volume: 5, Price: 104.95}, q.Bids[4])
	assert.Equal(t, entity.Level{Volume: 15, Price: 105.00}, q.Asks[0])
	assert.Equal(t, entity.Level{Volume: 0, Price: 105.03}, q.Asks[3])
	assert.Equal(t, entity.Level{Volume: 100, Price: 105.04}, q.Asks[4])
}

func TestDecodeQuoteLine_ExactlyThirtyTwoFields(t *testing.T) {
	t.Parallel()

	fields := sampleFields()[:quoteFieldCount]
	q, err := DecodeQuoteLine(snapshotLine("sz000001", fields))
	require.NoError(t, err)
	assert.Equal(t, "sz000001", q.Symbol)
	assert.Equal(t, "10:45:03", q.Time)
}

func TestDecodeQuoteLine_NoData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"empty template", `var hq_str_sh600000="";`},
		{"empty template with spaces", "  var hq_str_sz000001=\"\";\r"},
		{"blank", ""},
		{"short garbage", "var hq_str_x"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeQuoteLine(tt.line)
			assert.ErrorIs(t, err, domain.ErrNoData)
		})
	}
}

func TestDecodeQuoteLine_Malformed(t *testing.T) {
	t.Parallel()

	badOpen := sampleFields()
	badOpen[fieldOpen] = "abc"

	badLadder := sampleFields()
	badLadder[fieldAskLadder+2] = "x"

	tests := []struct {
		name      string
		line      string
		wantField string
	}{
		{"non numeric open", snapshotLine("sh600000", badOpen), "open"},
		{"non numeric ladder volume", snapshotLine("sh600000", badLadder), "ask2_volume"},
		{"too few fields", snapshotLine("sh600000", sampleFields()[:10]), ""},
		{"wrong prefix", `var hq_xxx_sh600000="` + strings.Join(sampleFields(), ",") + `";`, ""},
		{"missing quote separator", "var hq_str_sh600000=" + strings.Join(sampleFields(), ","), ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := DecodeQuoteLine(tt.line)
			require.Error(t, err)
			assert.NotErrorIs(t, err, domain.ErrNoData)
			assert.Equal(t, entity.Quote{}, q)

			var de *domain.DecodeError
			require.True(t, errors.As(err, &de), "want *DecodeError, got %T", err)
			assert.Equal(t, tt.wantField, de.Field)
		})
	}
}

func TestChangePercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		last, prev float64
		want       float64
	}{
		{105, 100, 5.00},
		{9.87, 10.00, -1.30},
		{10.123, 10.00, 1.23},
		{10, 10, 0},
		{12.5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, changePercent(tt.last, tt.prev), "last=%v prev=%v", tt.last, tt.prev)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("skips empty lines and reports malformed ones", func(t *testing.T) {
		t.Parallel()

		bad := sampleFields()
		bad[fieldLast] = "n/a"
		raw := strings.Join([]string{
			snapshotLine("sh600000", sampleFields()),
			`var hq_str_sh688999="";`,
			snapshotLine("sz000002", bad),
			snapshotLine("sz000001", sampleFields()),
		}, "\n") + "\n"

		quotes, err := DecodeSnapshot(raw)
		require.Len(t, quotes, 2)
		assert.Equal(t, "sh600000", quotes[0].Symbol)
		assert.Equal(t, "sz000001", quotes[1].Symbol)

		require.Error(t, err)
		var de *domain.DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "sz000002", de.Symbol)
		assert.Equal(t, "last", de.Field)
	})

	t.Run("all valid", func(t *testing.T) {
		t.Parallel()

		raw := snapshotLine("sh600000", sampleFields()) + "\r\n" + snapshotLine("sz000001", sampleFields())
		quotes, err := DecodeSnapshot(raw)
		require.NoError(t, err)
		assert.Len(t, quotes, 2)
	})

	t.Run("no data at all", func(t *testing.T) {
		t.Parallel()

		quotes, err := DecodeSnapshot(`var hq_str_sh600000="";` + "\n")
		require.NoError(t, err)
		assert.Empty(t, quotes)
	})
}
