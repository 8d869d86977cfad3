package market

import (
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Side 标识盘口方向。
type Side string

const (
	SideBid Side = "BID"
	SideAsk Side = "ASK"
)

// RawLevel 是交易所返回的一条原始档位，价格与数量保持原始字符串。
type RawLevel struct {
	Price    string
	Quantity string
}

// RawBook 一次深度快照。
type RawBook struct {
	Bids []RawLevel
	Asks []RawLevel
}

// PriceLevel 聚合后的价格档位。
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// BookSide 单边聚合档位，按价格排序：bid 降序，ask 升序。
type BookSide []PriceLevel

// ParseLevel 将原始档位解析为 PriceLevel；价格必须 > 0，数量必须 >= 0。
func ParseLevel(side Side, raw RawLevel) (PriceLevel, error) {
	price, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return PriceLevel{}, &MalformedLevelError{Side: side, Price: raw.Price, Quantity: raw.Quantity, Reason: "price is not numeric"}
	}
	qty, err := decimal.NewFromString(raw.Quantity)
	if err != nil {
		return PriceLevel{}, &MalformedLevelError{Side: side, Price: raw.Price, Quantity: raw.Quantity, Reason: "quantity is not numeric"}
	}
	if !price.IsPositive() {
		return PriceLevel{}, &MalformedLevelError{Side: side, Price: raw.Price, Quantity: raw.Quantity, Reason: "price must be > 0"}
	}
	if qty.IsNegative() {
		return PriceLevel{}, &MalformedLevelError{Side: side, Price: raw.Price, Quantity: raw.Quantity, Reason: "quantity must be >= 0"}
	}
	return PriceLevel{Price: price, Quantity: qty}, nil
}

// Aggregate 按价格合并同一边的原始档位并按最优价排序。
// 解析失败的档位被丢弃，其错误合并后与剩余档位一起返回。
func Aggregate(side Side, raw []RawLevel) (BookSide, error) {
	var errs error
	// "100" 与 "100.00" 数值相等但指数不同，用规范化字符串做 key
	sumByKey := make(map[string]decimal.Decimal, len(raw))
	priceByKey := make(map[string]decimal.Decimal, len(raw))
	for _, r := range raw {
		lvl, err := ParseLevel(side, r)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		k := canonicalPriceKey(lvl.Price)
		if sum, ok := sumByKey[k]; ok {
			sumByKey[k] = sum.Add(lvl.Quantity)
			continue
		}
		sumByKey[k] = lvl.Quantity
		priceByKey[k] = lvl.Price
	}

	book := make(BookSide, 0, len(sumByKey))
	for k, sum := range sumByKey {
		book = append(book, PriceLevel{Price: priceByKey[k], Quantity: sum})
	}
	SortByPrice(side, book)
	return book, errs
}

// AggregateBook 聚合整本快照。
func AggregateBook(raw RawBook) (bids, asks BookSide, err error) {
	bids, bidErr := Aggregate(SideBid, raw.Bids)
	asks, askErr := Aggregate(SideAsk, raw.Asks)
	return bids, asks, multierr.Combine(bidErr, askErr)
}

// SortByPrice 原地按最优价排序：bid 从高到低，ask 从低到高。
func SortByPrice(side Side, levels BookSide) {
	slices.SortFunc(levels, func(a, b PriceLevel) int {
		if side == SideBid {
			return b.Price.Cmp(a.Price)
		}
		return a.Price.Cmp(b.Price)
	})
}

// RankByQuantity 返回按数量降序排列的副本，不修改入参的价格顺序。
// 数量相同的档位保持原有顺序。
func RankByQuantity(levels BookSide) BookSide {
	ranked := slices.Clone(levels)
	slices.SortStableFunc(ranked, func(a, b PriceLevel) int {
		return b.Quantity.Cmp(a.Quantity)
	})
	return ranked
}

func canonicalPriceKey(p decimal.Decimal) string {
	return p.String()
}
