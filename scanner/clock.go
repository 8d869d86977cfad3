package scanner

import "time"

// Clock 抽象时间便于测试，测试可手动驱动周期。
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock 默认实现。
var SystemClock Clock = realClock{}
