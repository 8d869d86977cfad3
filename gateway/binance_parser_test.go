package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDepth(t *testing.T) {
	raw := []byte(`{
		"lastUpdateId": 1027024,
		"bids": [["4.00000000","431.00000000"],["3.9", 12],["bad"]],
		"asks": [["4.00000200","12.00000000"]]
	}`)
	book, err := ParseDepth(raw)
	require.NoError(t, err)
	require.Len(t, book.Bids, 3)
	assert.Equal(t, "4.00000000", book.Bids[0].Price)
	assert.Equal(t, "431.00000000", book.Bids[0].Quantity)
	// 数字字面量也能取到
	assert.Equal(t, "12", book.Bids[1].Quantity)
	// 缺数量的档位原样保留，由聚合阶段丢弃
	assert.Equal(t, "bad", book.Bids[2].Price)
	assert.Empty(t, book.Bids[2].Quantity)
	require.Len(t, book.Asks, 1)
}

func TestParseDepthInvalidJSON(t *testing.T) {
	_, err := ParseDepth([]byte(`{"bids":`))
	assert.Error(t, err)
}

func TestParseTickerPrice(t *testing.T) {
	p, err := ParseTickerPrice([]byte(`{"symbol":"LTCBTC","price":"4.00000200"}`))
	require.NoError(t, err)
	assert.Equal(t, "4.000002", p.String())

	_, err = ParseTickerPrice([]byte(`{"symbol":"LTCBTC","price":"abc"}`))
	assert.Error(t, err)
	_, err = ParseTickerPrice([]byte(`{"symbol":"LTCBTC","price":"0"}`))
	assert.Error(t, err)
}

func TestParseExchangeInfoSkipsNonTrading(t *testing.T) {
	cat, err := ParseExchangeInfo([]byte(`{"symbols":[
		{"symbol":"ETHBTC","status":"TRADING","baseAsset":"ETH","quoteAsset":"BTC"},
		{"symbol":"XYZBTC","status":"HALT","baseAsset":"XYZ","quoteAsset":"BTC"}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
	in, ok := cat.Resolve("ETH/BTC")
	require.True(t, ok)
	assert.Equal(t, "ETHBTC", in.Symbol)
	_, ok = cat.Resolve("XYZ/BTC")
	assert.False(t, ok)
}

func TestParseAPIError(t *testing.T) {
	assert.Equal(t, "code -1003: Too many requests.", parseAPIError([]byte(`{"code":-1003,"msg":"Too many requests."}`)))
	assert.Equal(t, "<html>", parseAPIError([]byte(" <html> ")))
}
