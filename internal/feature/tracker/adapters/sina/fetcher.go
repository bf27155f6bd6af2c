package sina

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"stock_tracker/internal/feature/tracker/domain"
	"stock_tracker/internal/feature/tracker/domain/entity"
	"stock_tracker/internal/feature/tracker/usecase"
)

// Client は新浪の行情エンドポイントを呼び出す MarketFeed 実装です。
// リトライは行いません。失敗した場合は次のティックで再試行されます。
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// ClientがMarketFeedを実装していることをコンパイル時に検証します。
var _ usecase.MarketFeed = (*Client)(nil)

// NewClient は指定された設定とHTTPクライアントでClientを生成します。
func NewClient(cfg Config, client *http.Client, logger *zap.Logger) *Client {
	if cfg.KlineBars <= 0 {
		cfg.KlineBars = DefaultKlineBars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, client: client, logger: logger.With(zap.String("component", "sina"))}
}

// FetchSnapshot は複数銘柄のスナップショットを1リクエストで取得し、GBKからUTF-8へ変換した本文を返します。
func (c *Client) FetchSnapshot(ctx context.Context, symbols []string) (string, error) {
	if len(symbols) == 0 {
		return "", domain.ErrNoSymbols
	}
	u := fmt.Sprintf("%s/list=%s", strings.TrimRight(c.cfg.QuoteBaseURL, "/"), strings.Join(symbols, ","))

	body, err := c.get(ctx, "snapshot", u, c.cfg.Referer)
	if err != nil {
		return "", err
	}

	// レスポンスはGBKエンコード（銘柄名が中国語）
	text, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		return "", &domain.DecodeError{Field: "encoding", Err: fmt.Errorf("gbk: %w", err)}
	}
	return string(text), nil
}

// FetchKline は1銘柄のK線履歴（JSON）をそのまま返します。count が0以下の場合は既定の本数を使います。
func (c *Client) FetchKline(ctx context.Context, symbol string, scale, count int) ([]byte, error) {
	if count <= 0 {
		count = c.cfg.KlineBars
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("scale", strconv.Itoa(scale))
	q.Set("ma", "no")
	q.Set("datalen", strconv.Itoa(count))

	u := fmt.Sprintf("%s?%s", c.cfg.KlineBaseURL, q.Encode())
	return c.get(ctx, "kline", u, "")
}

// Snapshot fetches and decodes quotes for symbols. Malformed lines are logged and left out.
func (c *Client) Snapshot(ctx context.Context, symbols []string) ([]entity.Quote, error) {
	raw, err := c.FetchSnapshot(ctx, symbols)
	if err != nil {
		return nil, err
	}
	quotes, err := DecodeSnapshot(raw)
	if err != nil {
		c.logger.Warn("skipped malformed snapshot lines", zap.Strings("symbols", symbols), zap.Error(err))
	}
	return quotes, nil
}

// Klines fetches and decodes the kline history of one symbol at res.
func (c *Client) Klines(ctx context.Context, symbol string, res entity.Resolution, count int) ([]entity.KlineBar, error) {
	raw, err := c.FetchKline(ctx, symbol, res.Scale(), count)
	if err != nil {
		return nil, err
	}
	bars, err := DecodeKlines(raw)
	if err != nil {
		var de *domain.DecodeError
		if errors.As(err, &de) && de.Symbol == "" {
			de.Symbol = symbol
		}
		return nil, err
	}
	return bars, nil
}

func (c *Client) get(ctx context.Context, op, u, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &domain.TransportError{Op: op, URL: u, Err: err}
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: op, URL: u, Err: err}
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, &domain.TransportError{
			Op:         op,
			URL:        u,
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", res.Status),
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, URL: u, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
