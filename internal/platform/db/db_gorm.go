// Package db はウォッチリスト用のgorm接続（sqlite / postgres）を提供します。
package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	watchlistadapters "stock_tracker/internal/feature/watchlist/adapters"
	"stock_tracker/internal/platform/config"
)

const retryInterval = 3 * time.Second

// Opener opens a gorm connection for a DSN. Replaced in tests.
type Opener func(dsn string) (*gorm.DB, error)

// Dialector はドライバー名に対応するgormのダイアレクタを返します。
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case config.DriverSQLite:
		return sqlite.Open(dsn), nil
	case config.DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// ConnectWithRetry は timeout に達するまで retryInterval 間隔で接続を試みます。
// postgres がコンテナで後から起動する場合に備えたものです。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("db connect failed after %v: %w", timeout, err)
		}
		time.Sleep(retryInterval)
	}
}

// Open は設定に従って接続し、必要であればマイグレーションを実行します。
func Open(cfg config.StoreConfig, logger *zap.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	opener := func(dsn string) (*gorm.DB, error) {
		d, err := Dialector(cfg.Driver, dsn)
		if err != nil {
			return nil, err
		}
		return gorm.Open(d, gcfg)
	}

	// 不正なドライバー名はリトライしない
	if _, err := Dialector(cfg.Driver, cfg.DSN); err != nil {
		return nil, err
	}

	db, err := ConnectWithRetry(cfg.DSN, cfg.ConnectTimeout, func(dsn string) (*gorm.DB, error) {
		db, err := opener(dsn)
		if err != nil {
			logger.Warn("DB connect failed, retrying", zap.String("driver", cfg.Driver), zap.Error(err))
		}
		return db, err
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == config.DriverSQLite {
		// sqlite は書き込みが直列化されるため1接続に固定（:memory: も同一DBになる）
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if cfg.Migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	logger.Info("DB connection successful", zap.String("driver", cfg.Driver))
	return db, nil
}

// Migrate creates or updates the watchlist table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&watchlistadapters.WatchItemModel{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Ping is a health check for db.
func Ping(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
