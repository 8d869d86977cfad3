package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/phoe8lin/hugeorders/market"
)

// depthResponse 对应 GET /api/v3/depth。
// 档位按原始 JSON 保留，单条坏数据交给 market 包按档位丢弃，不影响整本解析。
type depthResponse struct {
	LastUpdateID int64               `json:"lastUpdateId"`
	Bids         [][]json.RawMessage `json:"bids"`
	Asks         [][]json.RawMessage `json:"asks"`
}

// tickerPriceResponse 对应 GET /api/v3/ticker/price。
type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type exchangeInfoResponse struct {
	Symbols []exchangeSymbol `json:"symbols"`
}

type exchangeSymbol struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

// apiError Binance 错误体，例如 {"code":-1121,"msg":"Invalid symbol."}。
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// ParseDepth 解析深度快照为原始档位。
func ParseDepth(raw []byte) (market.RawBook, error) {
	var resp depthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return market.RawBook{}, fmt.Errorf("decode depth: %w", err)
	}
	return market.RawBook{
		Bids: toRawLevels(resp.Bids),
		Asks: toRawLevels(resp.Asks),
	}, nil
}

// ParseTickerPrice 解析最新成交价。
func ParseTickerPrice(raw []byte) (decimal.Decimal, error) {
	var resp tickerPriceResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode ticker: %w", err)
	}
	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("ticker %s price %q: %w", resp.Symbol, resp.Price, err)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("ticker %s price %s must be > 0", resp.Symbol, price)
	}
	return price, nil
}

// ParseExchangeInfo 解析交易对列表，仅保留 TRADING 状态。
func ParseExchangeInfo(raw []byte) (Catalog, error) {
	var resp exchangeInfoResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Catalog{}, fmt.Errorf("decode exchangeInfo: %w", err)
	}
	instruments := make([]Instrument, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		instruments = append(instruments, Instrument{
			Name:   s.BaseAsset + "/" + s.QuoteAsset,
			Symbol: s.Symbol,
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
		})
	}
	return NewCatalog(instruments), nil
}

func parseAPIError(raw []byte) string {
	var e apiError
	if err := json.Unmarshal(raw, &e); err != nil || e.Msg == "" {
		return strings.TrimSpace(string(raw))
	}
	return fmt.Sprintf("code %d: %s", e.Code, e.Msg)
}

func toRawLevels(rows [][]json.RawMessage) []market.RawLevel {
	out := make([]market.RawLevel, 0, len(rows))
	for _, row := range rows {
		var lvl market.RawLevel
		if len(row) > 0 {
			lvl.Price = rawScalar(row[0])
		}
		if len(row) > 1 {
			lvl.Quantity = rawScalar(row[1])
		}
		out = append(out, lvl)
	}
	return out
}

// rawScalar 兼容 "1.23" 与 1.23 两种写法。
func rawScalar(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v))
}
