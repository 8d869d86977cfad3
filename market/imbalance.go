package market

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MinDepth 每边至少需要的聚合档位数：第 1 大档 + 第 2~5 大档。
const MinDepth = 5

var hundred = decimal.NewFromInt(100)

// SideAnalysis 单边的大单检测结果。
type SideAnalysis struct {
	Qualifies           bool
	Top1Price           decimal.Decimal
	Top1Quantity        decimal.Decimal
	NextFourSum         decimal.Decimal // 本边第 2~5 大档数量之和
	OppositeNextFourSum decimal.Decimal // 对手边第 2~5 大档数量之和（比值分母）
	Ratio               float64         // 分母为 0 时为 +Inf
	PercentDistance     decimal.Decimal // (Top1Price - 现价) / 现价 * 100，带符号
}

// Analysis 一个标的两边的检测结果。
type Analysis struct {
	Bid SideAnalysis
	Ask SideAnalysis
}

// Detect 对两边聚合档位做大单检测，纯函数。
// 任一边少于 MinDepth 档时返回 ErrInsufficientDepth。
func Detect(bids, asks BookSide, currentPrice decimal.Decimal) (Analysis, error) {
	if !currentPrice.IsPositive() {
		return Analysis{}, fmt.Errorf("%w: got %s", ErrInvalidCurrentPrice, currentPrice)
	}
	if err := checkDepth(SideBid, bids); err != nil {
		return Analysis{}, err
	}
	if err := checkDepth(SideAsk, asks); err != nil {
		return Analysis{}, err
	}

	bidTop, bidNext := topAndNextFour(bids)
	askTop, askNext := topAndNextFour(asks)

	return Analysis{
		Bid: analyzeSide(bidTop, bidNext, askNext, currentPrice),
		Ask: analyzeSide(askTop, askNext, bidNext, currentPrice),
	}, nil
}

func checkDepth(side Side, levels BookSide) error {
	if len(levels) == 0 {
		return fmt.Errorf("%w: %s side: %w", ErrInsufficientDepth, side, ErrNoData)
	}
	if len(levels) < MinDepth {
		return fmt.Errorf("%w: %s side has %d levels, need %d", ErrInsufficientDepth, side, len(levels), MinDepth)
	}
	return nil
}

// topAndNextFour 在按数量排名后的副本上取第 1 档与第 2~5 档之和。
func topAndNextFour(levels BookSide) (PriceLevel, decimal.Decimal) {
	ranked := RankByQuantity(levels)
	sum := decimal.Zero
	for _, lvl := range ranked[1:MinDepth] {
		sum = sum.Add(lvl.Quantity)
	}
	return ranked[0], sum
}

func analyzeSide(top PriceLevel, ownNext, oppositeNext, currentPrice decimal.Decimal) SideAnalysis {
	return SideAnalysis{
		Qualifies:           top.Quantity.GreaterThan(oppositeNext),
		Top1Price:           top.Price,
		Top1Quantity:        top.Quantity,
		NextFourSum:         ownNext,
		OppositeNextFourSum: oppositeNext,
		Ratio:               Ratio(top.Quantity, oppositeNext),
		PercentDistance:     PercentDistance(top.Price, currentPrice),
	}
}

// Ratio 计算 top1 / 对手边 next4；分母为 0 时返回 +Inf。
func Ratio(top1, oppositeNextFour decimal.Decimal) float64 {
	if oppositeNextFour.IsZero() {
		return math.Inf(1)
	}
	r, _ := top1.Div(oppositeNextFour).Float64()
	return r
}

// PercentDistance 现价到大单价格的带符号百分比距离；正数表示大单在现价之上。
// 先乘 100 再除，精度按操作数位数放大，非零差值不会被舍入成 0。
func PercentDistance(price, currentPrice decimal.Decimal) decimal.Decimal {
	scaled := price.Sub(currentPrice).Mul(hundred)
	if scaled.IsZero() {
		return decimal.Zero
	}
	digits := int32(len(currentPrice.Coefficient().String()))
	precision := digits + currentPrice.Exponent() - scaled.Exponent() + 1
	if precision < int32(decimal.DivisionPrecision) {
		precision = int32(decimal.DivisionPrecision)
	}
	return scaled.DivRound(currentPrice, precision)
}
