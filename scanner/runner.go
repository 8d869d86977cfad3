package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/phoe8lin/hugeorders/infrastructure/logger"
)

// Sink 接收扫描状态与结果，展示层实现该接口。
type Sink interface {
	// Scanning 一个周期开始。
	Scanning(at time.Time, settings Settings)
	// Publish 一个周期完整结束。
	Publish(cycle Cycle)
	// Waiting 标的集合为空，等待配置。
	Waiting(at time.Time)
}

// MultiSink 按顺序转发给多个 Sink。
type MultiSink []Sink

func (m MultiSink) Scanning(at time.Time, settings Settings) {
	for _, s := range m {
		s.Scanning(at, settings)
	}
}

func (m MultiSink) Publish(cycle Cycle) {
	for _, s := range m {
		s.Publish(cycle)
	}
}

func (m MultiSink) Waiting(at time.Time) {
	for _, s := range m {
		s.Waiting(at)
	}
}

// Runner 按固定间隔重复执行扫描；设置变更时立即开始下一轮。
type Runner struct {
	scanner *Scanner
	sink    Sink
	clock   Clock
	log     *logger.Logger
	idle    time.Duration

	mu       sync.RWMutex
	settings Settings
	wake     chan struct{}
}

// RunnerOption 配置 Runner。
type RunnerOption func(*Runner)

func WithRunnerClock(c Clock) RunnerOption           { return func(r *Runner) { r.clock = c } }
func WithRunnerLogger(l *logger.Logger) RunnerOption { return func(r *Runner) { r.log = l } }

// WithIdleRecheck 标的为空时重新检查的间隔。
func WithIdleRecheck(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.idle = d
		}
	}
}

func NewRunner(s *Scanner, sink Sink, initial Settings, opts ...RunnerOption) *Runner {
	r := &Runner{
		scanner:  s,
		sink:     sink,
		clock:    SystemClock,
		log:      logger.NewNop(),
		idle:     DefaultIdleRecheck,
		settings: initial.normalized(),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings 当前生效的设置。
func (r *Runner) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// UpdateSettings 替换设置并唤醒等待中的循环；多次更新只保留最后一次。
func (r *Runner) UpdateSettings(s Settings) {
	s = s.normalized()
	r.mu.Lock()
	changed := !r.settings.Equal(s)
	r.settings = s
	r.mu.Unlock()
	if !changed {
		return
	}
	r.log.Info("settings updated")
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run 阻塞执行扫描循环，直到 ctx 取消。
// 取消发生在周期中间时，本周期结果被丢弃，不会发布。
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := r.RunOnce(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
		case <-r.clock.After(wait):
		}
	}
}

// RunOnce 执行一轮（或发出等待配置状态），返回距下一轮的等待时间。
func (r *Runner) RunOnce(ctx context.Context) time.Duration {
	s := r.Settings()
	if len(s.Instruments) == 0 {
		r.sink.Waiting(r.clock.Now())
		return r.idle
	}
	r.sink.Scanning(r.clock.Now(), s)
	cycle, err := r.scanner.Scan(ctx, s.Instruments)
	if err != nil {
		r.log.Info("scan cycle abandoned")
		return s.Interval
	}
	r.sink.Publish(cycle)
	return s.Interval
}
