package gateway

import "time"

// BuildBinanceProvider 根据配置构建带限流与指标上报的行情源（不发起连接）。
func BuildBinanceProvider(baseURL string, timeout time.Duration, rate float64, burst int, obs RESTObserver) *BinanceProvider {
	if baseURL == "" {
		baseURL = BinanceSpotRESTEndpoint
	}
	rest := &BinanceRESTClient{
		BaseURL:    baseURL,
		HTTPClient: NewDefaultHTTPClient(timeout),
		Limiter:    NewTokenBucketLimiter(rate, burst),
		Observer:   obs,
	}
	return NewBinanceProvider(rest)
}
