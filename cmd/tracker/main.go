package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stock_tracker/internal/app/di"
	"stock_tracker/internal/app/router"
	"stock_tracker/internal/feature/tracker/domain/entity"
	trackerhandler "stock_tracker/internal/feature/tracker/transport/handler"
	"stock_tracker/internal/platform/config"
	infradb "stock_tracker/internal/platform/db"
	platformhandler "stock_tracker/internal/platform/http/handler"
	"stock_tracker/internal/platform/logger"
	infraredis "stock_tracker/internal/platform/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tracker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := infradb.Open(cfg.Store, log)
	if err != nil {
		return err
	}
	checks := []platformhandler.Check{{Name: "db", Fn: infradb.Ping(db)}}

	// Redis（任意）
	var rdb *redisv9.Client
	if cfg.Cache.Enabled {
		if tmp, err := infraredis.NewRedisClient(ctx, cfg.Cache, log); err != nil {
			log.Warn("Redis unavailable. Running without kline cache.", zap.Error(err))
		} else {
			rdb = tmp
			checks = append(checks, platformhandler.Check{Name: "redis", Fn: infraredis.Ping(rdb)})
			defer func() {
				if err := rdb.Close(); err != nil {
					log.Error("Failed to close Redis client", zap.Error(err))
				}
			}()
		}
	}

	// ウォッチリストから起動時の状態を復元
	watchlist := di.NewWatchlistUsecase(db)
	startup, err := watchlist.Bootstrap(ctx, cfg.Engine.Seed)
	if err != nil {
		return fmt.Errorf("bootstrap watchlist: %w", err)
	}
	log.Info("watchlist restored", zap.String("symbols", startup.Seed))

	feed, err := di.NewMarketFeed(cfg, rdb, log)
	if err != nil {
		return err
	}
	engine := di.NewEngine(cfg, feed, startup, log)

	board := trackerhandler.NewBoard(entity.ParseSeed(startup.Seed))
	hub := trackerhandler.NewHub(log, cfg.HTTP.StreamBuffer)
	trackerH := trackerhandler.NewTrackerHandler(engine, watchlist, board, log)
	r := router.NewRouter(trackerH, hub, platformhandler.NewHealthHandler(checks...), log, cfg.HTTP.AllowOrigins)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		trackerhandler.Consume(ctx, engine.Events(), board, hub, watchlist, log)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serveErr:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
		log.Error("http shutdown", zap.Error(sErr))
	}
	hub.Close()
	wg.Wait()
	return err
}
