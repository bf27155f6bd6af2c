package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"stock_tracker/internal/feature/tracker/domain/entity"
	"stock_tracker/internal/shared/ratelimiter"
)

const (
	defaultQuoteInterval = 200 * time.Millisecond
	defaultKlineInterval = 60 * time.Second
	defaultKlineBars     = 100 // 1回のリクエストで取得するK線の本数
	defaultEventBuffer   = 256
	defaultCommandBuffer = 64

	// MaxIntervalMilliseconds は SetInterval で指定できる上限（24時間）です。
	MaxIntervalMilliseconds = 24 * 60 * 60 * 1000
)

var errNilCommand = errors.New("nil command")

// EngineConfig holds the engine's timers, buffers and startup state.
type EngineConfig struct {
	QuoteInterval time.Duration
	KlineInterval time.Duration
	KlineBars     int
	// Seed は起動時の銘柄リスト（カンマ区切り）です。
	Seed string
	// Resolutions は起動時の時間足の設定です。追跡していない銘柄の設定も保持されます。
	Resolutions   map[string]entity.Resolution
	EventBuffer   int
	CommandBuffer int
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		QuoteInterval: defaultQuoteInterval,
		KlineInterval: defaultKlineInterval,
		KlineBars:     defaultKlineBars,
		EventBuffer:   defaultEventBuffer,
		CommandBuffer: defaultCommandBuffer,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.QuoteInterval <= 0 {
		c.QuoteInterval = d.QuoteInterval
	}
	if c.KlineInterval <= 0 {
		c.KlineInterval = d.KlineInterval
	}
	if c.KlineBars <= 0 {
		c.KlineBars = d.KlineBars
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
	if c.CommandBuffer <= 0 {
		c.CommandBuffer = d.CommandBuffer
	}
	return c
}

// Engine はバックグラウンドのデータ同期エンジンです。
//
// Run を実行するゴルーチンが SymbolSet を専有し、コマンド・クォート用タイマー・K線用タイマーの
// いずれか1つをループごとに処理します。結果はイベントとして非ブロッキングで公開され、
// バッファが満杯の場合は警告を出して破棄します。
type Engine struct {
	feed    MarketFeed
	limiter ratelimiter.RateLimiterInterface
	logger  *zap.Logger
	cfg     EngineConfig

	set      *SymbolSet
	commands chan Command
	events   chan Event

	klineBusy atomic.Bool
	wg        sync.WaitGroup
}

// NewEngine は新しい Engine を作成します。Run を呼ぶまで何も取得しません。
func NewEngine(feed MarketFeed, limiter ratelimiter.RateLimiterInterface, logger *zap.Logger, cfg EngineConfig) *Engine {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	set := NewSymbolSet(cfg.Seed)
	for sym, res := range cfg.Resolutions {
		if entity.IsValidSymbol(sym) && res.Valid() {
			set.SetResolution(sym, res)
		}
	}

	return &Engine{
		feed:     feed,
		limiter:  limiter,
		logger:   logger.With(zap.String("component", "engine")),
		cfg:      cfg,
		set:      set,
		commands: make(chan Command, cfg.CommandBuffer),
		events:   make(chan Event, cfg.EventBuffer),
	}
}

// Events returns the outbound event channel. It is never closed.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Submit enqueues cmd, blocking only until there is buffer space or ctx is done.
func (e *Engine) Submit(ctx context.Context, cmd Command) error {
	if cmd == nil {
		return errNilCommand
	}
	select {
	case e.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run は初回の取得を行った後、ctx がキャンセルされるまでイベントループを実行します。
// K線更新のゴルーチンが終了するのを待ってから戻ります。
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("engine started",
		zap.Strings("symbols", e.set.Symbols()),
		zap.Duration("quote_interval", e.cfg.QuoteInterval),
		zap.Duration("kline_interval", e.cfg.KlineInterval),
	)

	quoteTicker := time.NewTicker(e.cfg.QuoteInterval)
	defer quoteTicker.Stop()
	klineTicker := time.NewTicker(e.cfg.KlineInterval)
	defer klineTicker.Stop()
	defer e.wg.Wait()

	e.refreshQuotes(ctx)
	e.startKlineRefresh(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped", zap.Error(ctx.Err()))
			return
		case cmd := <-e.commands:
			e.handle(ctx, cmd, quoteTicker)
		case <-quoteTicker.C:
			e.refreshQuotes(ctx)
		case <-klineTicker.C:
			e.startKlineRefresh(ctx)
		}
	}
}

func (e *Engine) handle(ctx context.Context, cmd Command, quoteTicker *time.Ticker) {
	e.logger.Debug("command received", zap.String("command", cmd.Name()))

	switch c := cmd.(type) {
	case Refresh:
		e.refreshQuotes(ctx)

	case SetInterval:
		if c.Milliseconds <= 0 {
			e.logger.Warn("ignoring non-positive quote interval", zap.Int("milliseconds", c.Milliseconds))
			return
		}
		if c.Milliseconds > MaxIntervalMilliseconds {
			e.logger.Warn("ignoring quote interval above limit",
				zap.Int("milliseconds", c.Milliseconds),
				zap.Int("max", MaxIntervalMilliseconds),
			)
			return
		}
		d := time.Duration(c.Milliseconds) * time.Millisecond
		quoteTicker.Reset(d)
		e.logger.Info("quote interval changed", zap.Duration("interval", d))

	case StockAdd:
		e.addStock(ctx, c.Symbol)

	case StockDel:
		e.set.Remove(c.Symbol)
		// 空になった場合は取得しない（空のリストは公開されない）
		e.refreshQuotes(ctx)

	case StockSetResolution:
		if err := entity.ValidateSymbol(c.Symbol); err != nil {
			e.logger.Warn("rejected resolution change", zap.Error(err))
			return
		}
		if !c.Resolution.Valid() {
			e.logger.Warn("rejected resolution change", zap.String("symbol", c.Symbol), zap.Stringer("resolution", c.Resolution))
			return
		}
		e.set.SetResolution(c.Symbol, c.Resolution)
		if err := e.refreshKline(ctx, c.Symbol, c.Resolution); err != nil {
			e.logger.Warn("failed to fetch klines", zap.String("symbol", c.Symbol), zap.Error(err))
		}

	default:
		e.logger.Warn("unknown command", zap.String("command", cmd.Name()))
	}
}

// addStock は銘柄のスナップショットを単独で取得し、データがあった場合にのみ追跡対象へ加えます。
func (e *Engine) addStock(ctx context.Context, symbol string) {
	if err := entity.ValidateSymbol(symbol); err != nil {
		e.logger.Warn("rejected stock", zap.Error(err))
		return
	}
	if e.set.Contains(symbol) {
		return
	}

	quotes, err := e.feed.Snapshot(ctx, []string{symbol})
	if err != nil {
		e.logger.Warn("failed to fetch snapshot", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	if len(quotes) == 0 {
		e.logger.Warn("no data for symbol, not added", zap.String("symbol", symbol))
		return
	}

	for _, q := range quotes {
		e.publish(QuoteEvent{Symbol: q.Symbol, Name: q.Name, Quote: q})
		if _, err := e.set.Add(q.Symbol); err != nil {
			e.logger.Warn("feed returned an invalid symbol", zap.Error(err))
			continue
		}
		res := e.set.Resolution(q.Symbol)
		if err := e.refreshKline(ctx, q.Symbol, res); err != nil {
			// 銘柄は追加済みのまま。次のK線ティックで再試行される
			e.logger.Warn("failed to fetch klines", zap.String("symbol", q.Symbol), zap.Error(err))
		}
	}
}

func (e *Engine) refreshQuotes(ctx context.Context) {
	symbols := e.set.Symbols()
	if len(symbols) == 0 {
		return
	}
	quotes, err := e.feed.Snapshot(ctx, symbols)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.logger.Warn("failed to fetch snapshot", zap.Int("symbols", len(symbols)), zap.Error(err))
		}
		return
	}
	e.publish(QuoteListEvent{Quotes: quotes})
}

func (e *Engine) refreshKline(ctx context.Context, symbol string, res entity.Resolution) error {
	bars, err := e.feed.Klines(ctx, symbol, res, e.cfg.KlineBars)
	if err != nil {
		return err
	}
	e.publish(KlineEvent{Symbol: symbol, Resolution: res, Bars: bars})
	return nil
}

// startKlineRefresh はコピーした購読リストを短命のゴルーチンに渡して全銘柄のK線を更新します。
// 前回の更新がまだ終わっていない場合はスキップします。
func (e *Engine) startKlineRefresh(ctx context.Context) {
	subs := e.set.Snapshot()
	if len(subs) == 0 {
		return
	}
	if !e.klineBusy.CompareAndSwap(false, true) {
		e.logger.Warn("previous kline refresh still running, skipping tick")
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.klineBusy.Store(false)
		e.refreshKlines(ctx, subs)
	}()
}

func (e *Engine) refreshKlines(ctx context.Context, subs []Subscription) {
	for _, s := range subs {
		if ctx.Err() != nil {
			return
		}
		if err := e.limiter.WaitIfNeeded(ctx); err != nil {
			return
		}
		if err := e.refreshKline(ctx, s.Symbol, s.Resolution); err != nil {
			// 1つの銘柄でエラーが発生しても処理を止めずにログに出力し、次の銘柄へ
			e.logger.Warn("failed to fetch klines",
				zap.String("symbol", s.Symbol),
				zap.Stringer("resolution", s.Resolution),
				zap.Error(err),
			)
			continue
		}
	}
}

// publish は非ブロッキングでイベントを送信します。バッファが満杯の場合は破棄します。
func (e *Engine) publish(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("event buffer full, dropping event", zap.String("type", ev.Type()))
	}
}
