// Package dto はtrackerフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

// AddStockReq は POST /stocks のリクエストボディです。
type AddStockReq struct {
	Symbol string `json:"symbol" binding:"required"`
}

// SetResolutionReq は PUT /stocks/:symbol/resolution のリクエストボディです。
type SetResolutionReq struct {
	Resolution string `json:"resolution" binding:"required"`
}

// SetIntervalReq は PUT /interval のリクエストボディです。
// 上限は usecase.MaxIntervalMilliseconds（24時間）と同じ値です。
type SetIntervalReq struct {
	Milliseconds int `json:"milliseconds" binding:"required,gt=0,lte=86400000"`
}
