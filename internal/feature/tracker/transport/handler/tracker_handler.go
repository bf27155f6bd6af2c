// Package handler はtrackerフィーチャーのHTTPハンドラーとイベント配信を提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock_tracker/internal/feature/tracker/domain"
	"stock_tracker/internal/feature/tracker/domain/entity"
	"stock_tracker/internal/feature/tracker/transport/http/dto"
	"stock_tracker/internal/feature/tracker/usecase"
)

const submitTimeout = 2 * time.Second

// CommandSubmitter はエンジンへコマンドを送るインターフェースです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type CommandSubmitter interface {
	Submit(ctx context.Context, cmd usecase.Command) error
}

// WatchlistUsecase は追跡銘柄の永続化を行うユースケースです。
// 追加の保存はエンジンが銘柄を受け入れた後に Consume が行います。
type WatchlistUsecase interface {
	WatchlistTracker
	Untrack(ctx context.Context, symbol string) error
	SetResolution(ctx context.Context, symbol string, res entity.Resolution) error
}

// TrackerHandler は行情の参照とエンジンへのコマンド送信を行うHTTPハンドラーです。
type TrackerHandler struct {
	engine    CommandSubmitter
	watchlist WatchlistUsecase
	board     *Board
	logger    *zap.Logger
}

// NewTrackerHandler は新しい TrackerHandler を作成します。
func NewTrackerHandler(engine CommandSubmitter, watchlist WatchlistUsecase, board *Board, logger *zap.Logger) *TrackerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackerHandler{engine: engine, watchlist: watchlist, board: board, logger: logger}
}

// ListQuotes は最新のクォート一覧を返します。
func (h *TrackerHandler) ListQuotes(c *gin.Context) {
	c.JSON(http.StatusOK, dto.QuoteListRes{Quotes: h.board.Quotes()})
}

// GetQuote は1銘柄の最新クォートを返します。未取得の場合は404を返します。
func (h *TrackerHandler) GetQuote(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := entity.ValidateSymbol(symbol); err != nil {
		h.writeError(c, err)
		return
	}
	q, ok := h.board.Quote(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorRes{Error: "no quote for " + symbol})
		return
	}
	c.JSON(http.StatusOK, q)
}

// GetKlines は1銘柄の最新K線を返します。未取得の場合は404を返します。
func (h *TrackerHandler) GetKlines(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := entity.ValidateSymbol(symbol); err != nil {
		h.writeError(c, err)
		return
	}
	ev, ok := h.board.Klines(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorRes{Error: "no klines for " + symbol})
		return
	}
	c.JSON(http.StatusOK, dto.KlineRes{Symbol: ev.Symbol, Resolution: ev.Resolution.String(), Bars: ev.Bars})
}

// AddStock は銘柄の追加をエンジンに依頼します。
// 保存とBoardへの反映は、エンジンが最初のクォートを公開した時点で行われます（データのない銘柄は保存されない）。
// - 銘柄コードが不正な場合は400
// - コマンドを受け付けた場合は202
func (h *TrackerHandler) AddStock(c *gin.Context) {
	var req dto.AddStockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "invalid request"})
		return
	}
	if err := entity.ValidateSymbol(req.Symbol); err != nil {
		h.writeError(c, err)
		return
	}

	cmd := usecase.StockAdd{Symbol: req.Symbol}
	// Submit より前に登録しないと、先に届いた QuoteEvent を取りこぼす
	expected := h.board.Expect(req.Symbol)
	if err := h.submit(c, cmd); err != nil {
		if expected {
			h.board.Unexpect(req.Symbol)
		}
		h.writeError(c, err)
		return
	}
	h.accepted(c, cmd)
}

// RemoveStock は銘柄を追跡対象から外します。表示中のデータは即座に破棄されます。
// エンジンがコマンドを受け付けなかった場合は保存内容を元に戻します。
func (h *TrackerHandler) RemoveStock(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := entity.ValidateSymbol(symbol); err != nil {
		h.writeError(c, err)
		return
	}
	wasTracked := h.board.Tracked(symbol)
	if err := h.watchlist.Untrack(c.Request.Context(), symbol); err != nil {
		h.writeError(c, err)
		return
	}

	cmd := usecase.StockDel{Symbol: symbol}
	if err := h.submit(c, cmd); err != nil {
		if wasTracked {
			h.rollback("untrack", symbol, func(ctx context.Context) error {
				return h.watchlist.Track(ctx, symbol)
			})
		}
		h.writeError(c, err)
		return
	}
	h.board.Forget(symbol)
	h.accepted(c, cmd)
}

// SetResolution は銘柄のK線の時間足を変更します。
// エンジンが受け付けた後に保存するため、503の場合は保存内容は変わりません。
func (h *TrackerHandler) SetResolution(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := entity.ValidateSymbol(symbol); err != nil {
		h.writeError(c, err)
		return
	}
	var req dto.SetResolutionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "invalid request"})
		return
	}
	res, err := entity.ParseResolution(req.Resolution)
	if err != nil {
		h.writeError(c, err)
		return
	}

	cmd := usecase.StockSetResolution{Symbol: symbol, Resolution: res}
	if err := h.submit(c, cmd); err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.watchlist.SetResolution(c.Request.Context(), symbol, res); err != nil {
		h.writeError(c, err)
		return
	}
	h.accepted(c, cmd)
}

// SetInterval はクォート更新の周期（ミリ秒）を変更します。
func (h *TrackerHandler) SetInterval(c *gin.Context) {
	var req dto.SetIntervalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "milliseconds must be a positive integer"})
		return
	}
	h.submitAndAccept(c, usecase.SetInterval{Milliseconds: req.Milliseconds})
}

// Refresh は全銘柄のスナップショットを即時取得させます。
func (h *TrackerHandler) Refresh(c *gin.Context) {
	h.submitAndAccept(c, usecase.Refresh{})
}

func (h *TrackerHandler) submit(c *gin.Context, cmd usecase.Command) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), submitTimeout)
	defer cancel()
	return h.engine.Submit(ctx, cmd)
}

func (h *TrackerHandler) accepted(c *gin.Context, cmd usecase.Command) {
	c.JSON(http.StatusAccepted, dto.AcceptedRes{Status: "accepted", Command: cmd.Name()})
}

// submitAndAccept は追加の処理がないコマンド用です。
func (h *TrackerHandler) submitAndAccept(c *gin.Context, cmd usecase.Command) {
	if err := h.submit(c, cmd); err != nil {
		h.writeError(c, err)
		return
	}
	h.accepted(c, cmd)
}

// rollback は保存内容を元に戻します。リクエストがキャンセルされていても実行します。
func (h *TrackerHandler) rollback(op, symbol string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		h.logger.Error("watchlist rollback failed", zap.String("op", op), zap.String("symbol", symbol), zap.Error(err))
	}
}

// writeError はエラーの種類をHTTPステータスに対応付けます。
func (h *TrackerHandler) writeError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, domain.ErrInvalidResolution):
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("engine busy", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorRes{Error: "engine busy, try again"})
	default:
		h.logger.Error("request failed", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, dto.ErrorRes{Error: "internal error"})
	}
}
