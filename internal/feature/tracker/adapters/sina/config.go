// Package sina は新浪財経の行情フィード（スナップショットとK線）のクライアントを提供します。
package sina

import "time"

const (
	// DefaultQuoteBaseURL serves the snapshot endpoint: {base}/list=sh600000,sz000001.
	DefaultQuoteBaseURL = "http://hq.sinajs.cn"
	// DefaultKlineBaseURL serves the kline-history endpoint.
	DefaultKlineBaseURL = "https://quotes.sina.cn/cn/api/json_v2.php/CN_MarketDataService.getKLineData"
	// DefaultReferer satisfies the snapshot feed's anti-hotlink check.
	DefaultReferer = "https://finance.sina.com.cn"
	// DefaultKlineBars is the number of bars requested when the caller passes 0.
	DefaultKlineBars = 100
)

// Config holds configuration for the feed client.
type Config struct {
	QuoteBaseURL string        // base URL of the snapshot endpoint
	KlineBaseURL string        // full URL of the kline endpoint, without query
	Referer      string        // Referer header sent with snapshot requests
	Timeout      time.Duration // HTTP request timeout
	KlineBars    int           // default datalen for kline requests
}

// DefaultConfig returns the production feed settings.
func DefaultConfig() Config {
	return Config{
		QuoteBaseURL: DefaultQuoteBaseURL,
		KlineBaseURL: DefaultKlineBaseURL,
		Referer:      DefaultReferer,
		Timeout:      10 * time.Second,
		KlineBars:    DefaultKlineBars,
	}
}
