package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phoe8lin/hugeorders/market"
)

const (
	BinanceSpotRESTEndpoint = "https://api.binance.com"

	ActionExchangeInfo = "exchange_info"
	ActionTickerPrice  = "ticker_price"
	ActionDepth        = "depth"

	maxBodyBytes = 8 << 20
)

// ValidDepthLimits Binance /api/v3/depth 接受的 limit。
var ValidDepthLimits = []int{5, 10, 20, 50, 100, 500, 1000, 5000}

// RESTObserver 接收每次 REST 调用的耗时与结果，用于指标上报。
type RESTObserver interface {
	ObserveREST(action string, elapsed time.Duration, err error)
}

// BinanceRESTClient 只读行情客户端（公开接口，无需签名）；HTTPClient 可注入 httptest。
type BinanceRESTClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    RateLimiter
	Observer   RESTObserver
}

// ExchangeInfo 调用 /api/v3/exchangeInfo 获取交易对目录。
func (c *BinanceRESTClient) ExchangeInfo(ctx context.Context) (Catalog, error) {
	body, err := c.get(ctx, ActionExchangeInfo, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return Catalog{}, err
	}
	return ParseExchangeInfo(body)
}

// TickerPrice 调用 /api/v3/ticker/price 获取最新成交价。
func (c *BinanceRESTClient) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if symbol == "" {
		return decimal.Decimal{}, fmt.Errorf("symbol required")
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	body, err := c.get(ctx, ActionTickerPrice, "/api/v3/ticker/price", q)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ParseTickerPrice(body)
}

// Depth 调用 /api/v3/depth 获取深度快照。
func (c *BinanceRESTClient) Depth(ctx context.Context, symbol string, limit int) (market.RawBook, error) {
	if symbol == "" {
		return market.RawBook{}, fmt.Errorf("symbol required")
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", strconv.Itoa(limit))
	body, err := c.get(ctx, ActionDepth, "/api/v3/depth", q)
	if err != nil {
		return market.RawBook{}, err
	}
	return ParseDepth(body)
}

func (c *BinanceRESTClient) get(ctx context.Context, action, path string, q url.Values) (body []byte, err error) {
	if c == nil || c.HTTPClient == nil {
		return nil, fmt.Errorf("http client not set")
	}
	start := time.Now()
	defer func() {
		if c.Observer != nil {
			c.Observer.ObserveREST(action, time.Since(start), err)
		}
	}()
	if c.Limiter != nil {
		if err = c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	endpoint := c.BaseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", action, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s status %d: %s", action, resp.StatusCode, parseAPIError(body))
	}
	return body, nil
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// IsValidDepthLimit 检查 depth limit 是否被 Binance 接受。
func IsValidDepthLimit(limit int) bool {
	for _, v := range ValidDepthLimits {
		if v == limit {
			return true
		}
	}
	return false
}
