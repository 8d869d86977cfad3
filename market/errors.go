package market

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedLevel      = errors.New("malformed order book level")
	ErrInsufficientDepth   = errors.New("insufficient order book depth")
	ErrNoData              = errors.New("no order book data")
	ErrInvalidCurrentPrice = errors.New("current price must be > 0")
)

// MalformedLevelError 描述一条无法解析为 (正价格, 非负数量) 的原始档位。
type MalformedLevelError struct {
	Side     Side
	Price    string
	Quantity string
	Reason   string
}

func (e *MalformedLevelError) Error() string {
	return fmt.Sprintf("%s level [%q, %q]: %s", e.Side, e.Price, e.Quantity, e.Reason)
}

// Is 让 errors.Is(err, ErrMalformedLevel) 成立。
func (e *MalformedLevelError) Is(target error) bool {
	return target == ErrMalformedLevel
}
