package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogResolve(t *testing.T) {
	cat := NewCatalog([]Instrument{
		{Name: "ETH/USDT", Symbol: "ETHUSDT", Base: "ETH", Quote: "USDT"},
		{Name: "BTC/USDT", Symbol: "BTCUSDT", Base: "BTC", Quote: "USDT"},
		{Name: "BTC/USDT", Symbol: "BTCUSDT", Base: "BTC", Quote: "USDT"},
	})
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cat.Names())

	for _, name := range []string{"BTC/USDT", "btc/usdt", "BTCUSDT", " btcusdt "} {
		in, ok := cat.Resolve(name)
		require.True(t, ok, name)
		assert.Equal(t, "BTCUSDT", in.Symbol)
	}
	_, ok := cat.Resolve("DOGE/USDT")
	assert.False(t, ok)

	insts := cat.Instruments()
	require.Len(t, insts, 2)
	assert.Equal(t, "BTC", insts[0].Base)
}

func TestCatalogExchangeSymbolFallback(t *testing.T) {
	var empty Catalog
	assert.Equal(t, "BTCUSDT", empty.ExchangeSymbol("btc/usdt"))
	assert.Empty(t, empty.Names())

	cat := NewCatalog([]Instrument{{Name: "ETH/USDT", Symbol: "ETHUSDT"}})
	assert.Equal(t, "ETHUSDT", cat.ExchangeSymbol("eth/usdt"))
}
