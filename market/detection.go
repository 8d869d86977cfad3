package market

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Detection 一条大单记录，仅在所属扫描周期内有效。
type Detection struct {
	Instrument          string          `json:"instrument"`
	Side                Side            `json:"side"`
	CurrentPrice        decimal.Decimal `json:"currentPrice"`
	LargeOrderPrice     decimal.Decimal `json:"largeOrderPrice"`
	Ratio               float64         `json:"-"`
	PercentDistance     decimal.Decimal `json:"percentDistance"`
	LargeOrderQuantity  decimal.Decimal `json:"largeOrderQuantity"`
	OppositeNextFourSum decimal.Decimal `json:"oppositeNextFourSum"`
}

// RatioString 比值统一保留 4 位小数；对侧第 2~5 档为空时为 "inf"。
func (d Detection) RatioString() string {
	if math.IsInf(d.Ratio, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.4f", d.Ratio)
}

// Detections 按 bid 在前、ask 在后的顺序返回满足条件的记录。
func (a Analysis) Detections(instrument string, currentPrice decimal.Decimal) []Detection {
	out := make([]Detection, 0, 2)
	if a.Bid.Qualifies {
		out = append(out, a.Bid.detection(instrument, SideBid, currentPrice))
	}
	if a.Ask.Qualifies {
		out = append(out, a.Ask.detection(instrument, SideAsk, currentPrice))
	}
	return out
}

func (s SideAnalysis) detection(instrument string, side Side, currentPrice decimal.Decimal) Detection {
	return Detection{
		Instrument:          instrument,
		Side:                side,
		CurrentPrice:        currentPrice,
		LargeOrderPrice:     s.Top1Price,
		Ratio:               s.Ratio,
		PercentDistance:     s.PercentDistance,
		LargeOrderQuantity:  s.Top1Quantity,
		OppositeNextFourSum: s.OppositeNextFourSum,
	}
}
