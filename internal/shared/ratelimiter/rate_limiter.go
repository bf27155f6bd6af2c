package ratelimiter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiterInterface は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	WaitIfNeeded(ctx context.Context) error
}

// RateLimiterは、固定ウィンドウ方式で操作の頻度を制限します。複数のゴルーチンから呼び出せます。
// 待機中はロックを保持しません。
type RateLimiter struct {
	mu        sync.Mutex
	limit     int           // interval あたりの上限（0以下は無制限）
	interval  time.Duration // どの単位でリセットするか
	count     int
	lastReset time.Time

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

// NewRateLimiterは新しいRateLimiterのインスタンスを生成します。
func NewRateLimiter(limit int, interval time.Duration, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		lastReset: time.Now(),
		now:       time.Now,
		sleep:     sleepContext,
		logger:    logger,
	}
}

// WaitIfNeededはレートリミットの上限に達しているかを確認し、必要であれば現在のウィンドウが終わるまで待機します。
// 待機中に ctx が終了した場合は ctx.Err() を返します。
func (rl *RateLimiter) WaitIfNeeded(ctx context.Context) error {
	if rl.limit <= 0 {
		return nil
	}

	for {
		wait := rl.reserve()
		if wait <= 0 {
			return nil
		}
		rl.logger.Info("rate limit reached, sleeping",
			zap.Int("limit", rl.limit),
			zap.Duration("sleep", wait),
		)
		if err := rl.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserve は枠が空いていれば1件分を確保して0を返し、満杯ならウィンドウ終了までの時間を返します。
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	// interval を過ぎたらカウントリセット
	if now.Sub(rl.lastReset) >= rl.interval {
		rl.count = 0
		rl.lastReset = now
	}
	if rl.count < rl.limit {
		rl.count++
		return 0
	}
	return rl.interval - now.Sub(rl.lastReset)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
