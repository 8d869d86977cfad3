package scanner

import (
	"slices"
	"strings"
	"time"
)

const (
	DefaultInterval    = time.Minute
	DefaultIdleRecheck = 5 * time.Second
	MinIntervalMinutes = 1
	MaxIntervalMinutes = 60
)

// Settings 运行时可修改的扫描设置；Instruments 为空表示暂停。
type Settings struct {
	Instruments []string      `json:"instruments"`
	Interval    time.Duration `json:"-"`
}

// IntervalMinutes 以分钟表示的扫描间隔。
func (s Settings) IntervalMinutes() int {
	return int(s.Interval / time.Minute)
}

func (s Settings) normalized() Settings {
	out := Settings{
		Instruments: NormalizeInstruments(s.Instruments),
		Interval:    s.Interval,
	}
	if out.Interval <= 0 {
		out.Interval = DefaultInterval
	}
	return out
}

// Equal 比较两组设置（标的顺序敏感）。
func (s Settings) Equal(o Settings) bool {
	return s.Interval == o.Interval && slices.Equal(s.Instruments, o.Instruments)
}

// NormalizeInstruments 去空白、转大写、去重，保持首次出现的顺序。
func NormalizeInstruments(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		name := strings.ToUpper(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		// BTC/USDT 与 BTCUSDT 是同一标的，保留先出现的写法
		key := strings.ReplaceAll(name, "/", "")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
