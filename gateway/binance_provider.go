package gateway

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/phoe8lin/hugeorders/market"
)

// BinanceProvider 将 REST 客户端包装成扫描器所需的行情源。
// 标的名称可以是 "BTC/USDT" 或 "BTCUSDT"，由目录解析为交易所 symbol。
type BinanceProvider struct {
	client *BinanceRESTClient

	mu      sync.RWMutex
	catalog Catalog
}

func NewBinanceProvider(client *BinanceRESTClient) *BinanceProvider {
	return &BinanceProvider{client: client}
}

// LoadCatalog 显式初始化：拉取交易所支持的交易对目录。
func (p *BinanceProvider) LoadCatalog(ctx context.Context) (Catalog, error) {
	cat, err := p.client.ExchangeInfo(ctx)
	if err != nil {
		return Catalog{}, err
	}
	p.mu.Lock()
	p.catalog = cat
	p.mu.Unlock()
	return cat, nil
}

// Catalog 返回最近一次加载的目录（未加载时为空）。
func (p *BinanceProvider) Catalog() Catalog {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.catalog
}

func (p *BinanceProvider) CurrentPrice(ctx context.Context, instrument string) (decimal.Decimal, error) {
	return p.client.TickerPrice(ctx, p.Catalog().ExchangeSymbol(instrument))
}

func (p *BinanceProvider) OrderBook(ctx context.Context, instrument string, depth int) (market.RawBook, error) {
	return p.client.Depth(ctx, p.Catalog().ExchangeSymbol(instrument), depth)
}
