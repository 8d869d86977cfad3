package scanner

import (
	"errors"
	"fmt"
)

// 跳过原因，同时用作指标 label。
const (
	ReasonProviderError     = "provider_error"
	ReasonMalformedLevel    = "malformed_level"
	ReasonInsufficientDepth = "insufficient_depth"
	ReasonInvalidPrice      = "invalid_price"
)

// ProviderError 行情源调用失败（网络、限流、未知标的）。
type ProviderError struct {
	Instrument string
	Op         string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s %s: %v", e.Op, e.Instrument, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError 判断 err 链中是否有 ProviderError。
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// Warning 单个标的在本周期内的非致命问题，面向用户展示。
type Warning struct {
	Instrument string `json:"instrument"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func newWarning(instrument, reason string, err error) Warning {
	return Warning{Instrument: instrument, Reason: reason, Message: err.Error(), Err: err}
}
