package usecase

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_tracker/internal/feature/tracker/domain"
	tracker "stock_tracker/internal/feature/tracker/domain/entity"
	"stock_tracker/internal/feature/watchlist/domain/entity"
)

// memRepo はWatchlistRepositoryのインメモリ実装です。
type memRepo struct {
	items   []entity.WatchItem
	listErr error
	upserts int
}

func (m *memRepo) List(context.Context) ([]entity.WatchItem, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := slices.Clone(m.items)
	slices.SortStableFunc(out, func(a, b entity.WatchItem) int { return a.Position - b.Position })
	return out, nil
}

func (m *memRepo) Upsert(_ context.Context, item entity.WatchItem) error {
	m.upserts++
	for i := range m.items {
		if m.items[i].Symbol == item.Symbol {
			m.items[i] = item
			return nil
		}
	}
	m.items = append(m.items, item)
	return nil
}

func TestWatchlistUsecase_BootstrapSeedsEmptyStore(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	uc := NewWatchlistUsecase(repo)

	st, err := uc.Bootstrap(context.Background(), "sh600000, sz000001,bad,sh600000")
	require.NoError(t, err)
	assert.Equal(t, "sh600000,sz000001", st.Seed)
	assert.Equal(t, tracker.DefaultResolution, st.Resolutions["sz000001"])
	assert.Len(t, repo.items, 2)

	// 2回目は保存済みの内容が優先され、seed は無視される
	st, err = uc.Bootstrap(context.Background(), "sz000002")
	require.NoError(t, err)
	assert.Equal(t, "sh600000,sz000001", st.Seed)
}

func TestWatchlistUsecase_BootstrapRestoresPreferences(t *testing.T) {
	t.Parallel()

	repo := &memRepo{items: []entity.WatchItem{
		{Symbol: "sz000001", Resolution: tracker.Day, Tracked: true, Position: 2},
		{Symbol: "sh600000", Resolution: tracker.Week, Tracked: false, Position: 1},
	}}
	st, err := NewWatchlistUsecase(repo).Bootstrap(context.Background(), "sh688999")
	require.NoError(t, err)

	assert.Equal(t, "sz000001", st.Seed)
	assert.Equal(t, map[string]tracker.Resolution{
		"sz000001": tracker.Day,
		"sh600000": tracker.Week,
	}, st.Resolutions)
}

func TestWatchlistUsecase_TrackUntrack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := &memRepo{}
	uc := NewWatchlistUsecase(repo)

	require.NoError(t, uc.Track(ctx, "sh600000"))
	require.NoError(t, uc.Track(ctx, "sz000001"))
	require.NoError(t, uc.Track(ctx, "sh600000")) // already tracked
	assert.Equal(t, 2, repo.upserts)

	require.NoError(t, uc.SetResolution(ctx, "sh600000", tracker.Month))
	require.NoError(t, uc.Untrack(ctx, "sh600000"))
	require.NoError(t, uc.Untrack(ctx, "sz000002")) // unknown, no-op

	got, err := uc.Tracked(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sz000001"}, got)

	// 再追加すると末尾に並び、時間足の設定は残っている
	require.NoError(t, uc.Track(ctx, "sh600000"))
	got, err = uc.Tracked(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sz000001", "sh600000"}, got)

	st, err := uc.Bootstrap(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, tracker.Month, st.Resolutions["sh600000"])
}

func TestWatchlistUsecase_SetResolutionForUntrackedSymbol(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	uc := NewWatchlistUsecase(repo)

	require.NoError(t, uc.SetResolution(context.Background(), "sz000001", tracker.Week))
	require.Len(t, repo.items, 1)
	assert.False(t, repo.items[0].Tracked)
	assert.Equal(t, tracker.Week, repo.items[0].Resolution)
}

func TestWatchlistUsecase_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := &memRepo{}
	uc := NewWatchlistUsecase(repo)

	var ve *domain.ValidationError
	assert.True(t, errors.As(uc.Track(ctx, "600000"), &ve))
	assert.True(t, errors.As(uc.Untrack(ctx, "sh60000"), &ve))
	assert.True(t, errors.As(uc.SetResolution(ctx, "xx600000", tracker.Day), &ve))
	assert.ErrorIs(t, uc.SetResolution(ctx, "sh600000", tracker.Resolution(-1)), domain.ErrInvalidResolution)
	assert.Zero(t, repo.upserts)
}

func TestWatchlistUsecase_RepositoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	uc := NewWatchlistUsecase(&memRepo{listErr: boom})

	_, err := uc.Bootstrap(context.Background(), "sh600000")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, uc.Track(context.Background(), "sh600000"), boom)
	assert.ErrorIs(t, uc.Untrack(context.Background(), "sh600000"), boom)
	assert.ErrorIs(t, uc.SetResolution(context.Background(), "sh600000", tracker.Day), boom)
}
