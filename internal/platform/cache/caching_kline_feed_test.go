package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_tracker/internal/feature/tracker/domain/entity"
)

// mockFeed はテスト用のMarketFeedモック実装です。
type mockFeed struct {
	snapshotFn func(ctx context.Context, symbols []string) ([]entity.Quote, error)
	klinesFn   func(ctx context.Context, symbol string, res entity.Resolution, count int) ([]entity.KlineBar, error)
	klineCalls int
}

func (m *mockFeed) Snapshot(ctx context.Context, symbols []string) ([]entity.Quote, error) {
	if m.snapshotFn != nil {
		return m.snapshotFn(ctx, symbols)
	}
	return nil, nil
}

func (m *mockFeed) Klines(ctx context.Context, symbol string, res entity.Resolution, count int) ([]entity.KlineBar, error) {
	m.klineCalls++
	if m.klinesFn != nil {
		return m.klinesFn(ctx, symbol, res, count)
	}
	return nil, nil
}

var sampleBars = []entity.KlineBar{
	{Time: time.Date(2024, 9, 25, 10, 45, 0, 0, time.UTC), Open: 49.31, High: 52.9, Low: 48.5, Close: 52.13, Volume: 2237250},
}

// TestNewCachingKlineFeed_Defaults はデフォルト値（TTLとnamespace）が正しく設定されることを検証します。
func TestNewCachingKlineFeed_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		ttl               time.Duration
		namespace         string
		expectedTTL       time.Duration
		expectedNamespace string
	}{
		{"default values when zero/empty", 0, "", 30 * time.Second, "klines"},
		{"negative ttl uses default", -time.Minute, "", 30 * time.Second, "klines"},
		{"custom values preserved", 10 * time.Second, "custom", 10 * time.Second, "custom"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			feed := NewCachingKlineFeed(nil, tt.ttl, &mockFeed{}, tt.namespace, nil)
			assert.Equal(t, tt.expectedTTL, feed.ttl)
			assert.Equal(t, tt.expectedNamespace, feed.namespace)
		})
	}
}

// TestCachingKlineFeed_NilRedis はRedisがnilの場合にキャッシュをバイパスすることを検証します。
func TestCachingKlineFeed_NilRedis(t *testing.T) {
	t.Parallel()

	inner := &mockFeed{klinesFn: func(context.Context, string, entity.Resolution, int) ([]entity.KlineBar, error) {
		return sampleBars, nil
	}}
	feed := NewCachingKlineFeed(nil, time.Minute, inner, "klines", nil)

	for i := 0; i < 2; i++ {
		bars, err := feed.Klines(context.Background(), "sh600000", entity.Day, 100)
		require.NoError(t, err)
		assert.Len(t, bars, 1)
	}
	assert.Equal(t, 2, inner.klineCalls)
}

// TestCachingKlineFeed_CacheHit はキャッシュヒット時にフィードを呼ばないことを検証します。
func TestCachingKlineFeed_CacheHit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cached, _ := json.Marshal(sampleBars)
	mock.ExpectGet("klines:sh600000:day:100").SetVal(string(cached))

	inner := &mockFeed{}
	feed := NewCachingKlineFeed(rdb, 30*time.Second, inner, "klines", nil)

	bars, err := feed.Klines(context.Background(), "sh600000", entity.Day, 100)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 52.13, bars[0].Close)
	assert.True(t, bars[0].Time.Equal(sampleBars[0].Time))
	assert.Zero(t, inner.klineCalls, "feed should not be called on cache hit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingKlineFeed_CacheMiss はキャッシュミス時にフィードから取得してキャッシュに保存することを検証します。
func TestCachingKlineFeed_CacheMiss(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expected, _ := json.Marshal(sampleBars)
	mock.ExpectGet("klines:sz000001:15m:100").RedisNil()
	mock.ExpectSet("klines:sz000001:15m:100", expected, 30*time.Second).SetVal("OK")

	inner := &mockFeed{klinesFn: func(_ context.Context, symbol string, res entity.Resolution, count int) ([]entity.KlineBar, error) {
		assert.Equal(t, "sz000001", symbol)
		assert.Equal(t, entity.Minute15, res)
		assert.Equal(t, 100, count)
		return sampleBars, nil
	}}
	feed := NewCachingKlineFeed(rdb, 30*time.Second, inner, "klines", nil)

	bars, err := feed.Klines(context.Background(), "sz000001", entity.Minute15, 100)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 1, inner.klineCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingKlineFeed_InnerError はフィードのエラーが伝播され、キャッシュに保存されないことを検証します。
func TestCachingKlineFeed_InnerError(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	boom := errors.New("feed down")
	mock.ExpectGet("klines:sh600000:month:50").RedisNil()

	inner := &mockFeed{klinesFn: func(context.Context, string, entity.Resolution, int) ([]entity.KlineBar, error) {
		return nil, boom
	}}
	feed := NewCachingKlineFeed(rdb, time.Minute, inner, "", nil)

	_, err := feed.Klines(context.Background(), "sh600000", entity.Month, 50)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingKlineFeed_CorruptedCache は破損したキャッシュを削除してフィードにフォールバックすることを検証します。
func TestCachingKlineFeed_CorruptedCache(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expected, _ := json.Marshal(sampleBars)
	mock.ExpectGet("klines:sh600000:5m:100").SetVal("invalid json")
	mock.ExpectDel("klines:sh600000:5m:100").SetVal(1)
	mock.ExpectSet("klines:sh600000:5m:100", expected, 30*time.Second).SetVal("OK")

	inner := &mockFeed{klinesFn: func(context.Context, string, entity.Resolution, int) ([]entity.KlineBar, error) {
		return sampleBars, nil
	}}
	feed := NewCachingKlineFeed(rdb, 30*time.Second, inner, "klines", nil)

	bars, err := feed.Klines(context.Background(), "sh600000", entity.Minute5, 100)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingKlineFeed_RedisErrorFallsBack はRedis障害時もフィードから取得できることを検証します。
func TestCachingKlineFeed_RedisErrorFallsBack(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expected, _ := json.Marshal(sampleBars)
	mock.ExpectGet("klines:sh600000:week:100").SetErr(errors.New("connection refused"))
	mock.ExpectSet("klines:sh600000:week:100", expected, 30*time.Second).SetErr(errors.New("connection refused"))

	inner := &mockFeed{klinesFn: func(context.Context, string, entity.Resolution, int) ([]entity.KlineBar, error) {
		return sampleBars, nil
	}}
	feed := NewCachingKlineFeed(rdb, 30*time.Second, inner, "klines", nil)

	bars, err := feed.Klines(context.Background(), "sh600000", entity.Week, 100)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

// TestCachingKlineFeed_SnapshotPassesThrough はスナップショットがキャッシュされないことを検証します。
func TestCachingKlineFeed_SnapshotPassesThrough(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	inner := &mockFeed{snapshotFn: func(_ context.Context, symbols []string) ([]entity.Quote, error) {
		return []entity.Quote{{Symbol: symbols[0]}}, nil
	}}
	feed := NewCachingKlineFeed(rdb, 0, inner, "", nil)

	quotes, err := feed.Snapshot(context.Background(), []string{"sh600000"})
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
	assert.NoError(t, mock.ExpectationsWereMet(), "no redis commands for snapshots")
}

func TestSafe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_b_c", safe("a b:c"))
	assert.Equal(t, "sh600000", safe("sh600000"))
}
