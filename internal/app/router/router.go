// Package router はHTTPルーティングを定義します。
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	trackerhandler "stock_tracker/internal/feature/tracker/transport/handler"
	platformhandler "stock_tracker/internal/platform/http/handler"
	"stock_tracker/internal/platform/logger"
)

func NewRouter(tracker *trackerhandler.TrackerHandler, hub *trackerhandler.Hub,
	health *platformhandler.HealthHandler, log *zap.Logger, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(logger.GinMiddleware(log), gin.Recovery())

	// ウィジェットのフロントエンドは別オリジンから配信される
	corsCfg := cors.DefaultConfig()
	if len(allowOrigins) == 0 || (len(allowOrigins) == 1 && allowOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowOrigins
	}
	r.Use(cors.New(corsCfg))

	// 導通確認用
	r.GET("/healthz", health.Health)
	r.HEAD("/healthz", health.Health)

	// 最新の行情（Board）
	r.GET("/quotes", tracker.ListQuotes)
	r.GET("/quotes/:symbol", tracker.GetQuote)
	r.GET("/klines/:symbol", tracker.GetKlines)

	// エンジンへのコマンド
	r.POST("/stocks", tracker.AddStock)
	r.DELETE("/stocks/:symbol", tracker.RemoveStock)
	r.PUT("/stocks/:symbol/resolution", tracker.SetResolution)
	r.PUT("/interval", tracker.SetInterval)
	r.POST("/refresh", tracker.Refresh)

	// イベントのプッシュ（WebSocket）
	r.GET("/stream", hub.Serve)

	return r
}
