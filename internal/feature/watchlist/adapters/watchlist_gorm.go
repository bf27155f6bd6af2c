// Package adapters はwatchlistフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	tracker "stock_tracker/internal/feature/tracker/domain/entity"
	"stock_tracker/internal/feature/watchlist/domain/entity"
	"stock_tracker/internal/feature/watchlist/usecase"
)

// WatchItemModel は watch_items テーブルの行です。
type WatchItemModel struct {
	ID         uint      `gorm:"primaryKey"`
	Symbol     string    `gorm:"size:8;not null;uniqueIndex"`
	Resolution string    `gorm:"size:8;not null"`
	Tracked    bool      `gorm:"not null"` // default タグを付けると false が保存されない
	Position   int       `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by WatchItemModel.
func (WatchItemModel) TableName() string { return "watch_items" }

// watchlistGorm はWatchlistRepositoryインターフェースのgorm実装です（sqlite / postgres）。
type watchlistGorm struct {
	db *gorm.DB
}

var _ usecase.WatchlistRepository = (*watchlistGorm)(nil)

// NewWatchlistRepository は指定されたDB接続でリポジトリを生成します。
func NewWatchlistRepository(db *gorm.DB) *watchlistGorm {
	return &watchlistGorm{db: db}
}

// List はすべての行（追跡していないものを含む）を position, id 順に返します。
func (r *watchlistGorm) List(ctx context.Context) ([]entity.WatchItem, error) {
	var rows []WatchItemModel
	if err := r.db.WithContext(ctx).
		Order("position ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]entity.WatchItem, 0, len(rows))
	for _, m := range rows {
		res, err := tracker.ParseResolution(m.Resolution)
		if err != nil {
			return nil, fmt.Errorf("watch item %s: %w", m.Symbol, err)
		}
		items = append(items, entity.WatchItem{
			Symbol:     m.Symbol,
			Resolution: res,
			Tracked:    m.Tracked,
			Position:   m.Position,
		})
	}
	return items, nil
}

// Upsert は銘柄コードをキーに行を挿入または更新します。
func (r *watchlistGorm) Upsert(ctx context.Context, item entity.WatchItem) error {
	m := WatchItemModel{
		Symbol:     item.Symbol,
		Resolution: item.Resolution.String(),
		Tracked:    item.Tracked,
		Position:   item.Position,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"resolution", "tracked", "position", "updated_at"}),
	}).Create(&m).Error
}
