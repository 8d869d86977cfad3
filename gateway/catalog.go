package gateway

import (
	"slices"
	"strings"
)

// Instrument 交易所支持的一个交易对。
type Instrument struct {
	Name   string `json:"name"`   // BTC/USDT
	Symbol string `json:"symbol"` // BTCUSDT
	Base   string `json:"base"`
	Quote  string `json:"quote"`
}

// Catalog 交易对目录，启动时由 LoadCatalog 加载，之后只读。
type Catalog struct {
	byName   map[string]Instrument
	bySymbol map[string]Instrument
	names    []string
}

func NewCatalog(instruments []Instrument) Catalog {
	c := Catalog{
		byName:   make(map[string]Instrument, len(instruments)),
		bySymbol: make(map[string]Instrument, len(instruments)),
		names:    make([]string, 0, len(instruments)),
	}
	for _, in := range instruments {
		name := strings.ToUpper(in.Name)
		if _, dup := c.byName[name]; dup {
			continue
		}
		c.byName[name] = in
		c.bySymbol[strings.ToUpper(in.Symbol)] = in
		c.names = append(c.names, in.Name)
	}
	slices.Sort(c.names)
	return c
}

// Resolve 接受 "BTC/USDT" 或 "BTCUSDT"（大小写不敏感）。
func (c Catalog) Resolve(instrument string) (Instrument, bool) {
	key := strings.ToUpper(strings.TrimSpace(instrument))
	if in, ok := c.byName[key]; ok {
		return in, true
	}
	in, ok := c.bySymbol[key]
	return in, ok
}

func (c Catalog) Names() []string { return slices.Clone(c.names) }

func (c Catalog) Len() int { return len(c.names) }

func (c Catalog) Instruments() []Instrument {
	out := make([]Instrument, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.byName[strings.ToUpper(n)])
	}
	return out
}

// ExchangeSymbol 目录中找不到时退化为去掉分隔符的写法。
func (c Catalog) ExchangeSymbol(instrument string) string {
	if in, ok := c.Resolve(instrument); ok {
		return in.Symbol
	}
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(instrument), "/", ""))
}
