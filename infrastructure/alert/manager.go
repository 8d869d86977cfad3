package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/phoe8lin/hugeorders/infrastructure/logger"
	"github.com/phoe8lin/hugeorders/market"
	"github.com/phoe8lin/hugeorders/scanner"
)

// Alert 一条大单告警
type Alert struct {
	Level      string           `json:"level"` // "INFO", "WARNING"
	Message    string           `json:"message"`
	Timestamp  time.Time        `json:"timestamp"`
	Detection  market.Detection `json:"detection"`
	Ratio      string           `json:"ratio"`
	ThrottleID string           `json:"-"`
}

// Channel 告警通道接口
type Channel interface {
	Send(ctx context.Context, alert Alert) error
	Name() string
}

// Throttler 告警限流器：同一个 key 在 interval 内只放行一次
type Throttler struct {
	lastSent map[string]time.Time
	interval time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// NewThrottler 创建限流器
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// Allow 检查是否允许发送（限流）
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	lastTime, exists := t.lastSent[key]
	if !exists || now.Sub(lastTime) >= t.interval {
		t.lastSent[key] = now
		return true
	}
	return false
}

// Prune 清理早已过期的记录，避免 key 无限增长
func (t *Throttler) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for k, at := range t.lastSent {
		if now.Sub(at) >= t.interval {
			delete(t.lastSent, k)
		}
	}
}

// Manager 告警管理器；作为 scanner.Sink 接收扫描结果，异步投递到各通道
type Manager struct {
	channels []Channel
	throttle *Throttler
	queue    chan Alert
	timeout  time.Duration
	log      *logger.Logger
}

// Option 配置 Manager
type Option func(*Manager)

func WithLogger(l *logger.Logger) Option { return func(m *Manager) { m.log = l } }

// WithSendTimeout 单个通道单次发送的超时
func WithSendTimeout(d time.Duration) Option { return func(m *Manager) { m.timeout = d } }

// NewManager 创建告警管理器；cooldown 内同一标的同方向同价位不重复告警
func NewManager(channels []Channel, cooldown time.Duration, opts ...Option) *Manager {
	m := &Manager{
		channels: channels,
		throttle: NewThrottler(cooldown),
		queue:    make(chan Alert, 256),
		timeout:  5 * time.Second,
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SendAlert 同步发送到所有通道；被限流时静默返回 nil
func (m *Manager) SendAlert(ctx context.Context, alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}
	key := alert.ThrottleID
	if key == "" {
		key = fmt.Sprintf("%s:%s", alert.Level, alert.Message)
	}
	if !m.throttle.Allow(key) {
		return nil
	}

	var errs error
	for _, ch := range m.channels {
		sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := ch.Send(sendCtx, alert)
		cancel()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("channel %s failed: %w", ch.Name(), err))
		}
	}
	return errs
}

// GetChannels 获取所有通道
func (m *Manager) GetChannels() []string {
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Run 消费告警队列直到 ctx 取消
func (m *Manager) Run(ctx context.Context) error {
	prune := time.NewTicker(10 * time.Minute)
	defer prune.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-prune.C:
			m.throttle.Prune()
		case a := <-m.queue:
			if err := m.SendAlert(ctx, a); err != nil {
				m.log.LogError(err, map[string]interface{}{"action": "send_alert", "instrument": a.Detection.Instrument})
			}
		}
	}
}

// --------- scanner.Sink ----------

func (m *Manager) Scanning(time.Time, scanner.Settings) {}

func (m *Manager) Waiting(time.Time) {}

// Publish 每条检测结果生成一条告警入队；队列满时丢弃并记录。
func (m *Manager) Publish(cycle scanner.Cycle) {
	for _, d := range cycle.Detections {
		a := FromDetection(d, cycle.FinishedAt)
		select {
		case m.queue <- a:
		default:
			m.log.Warn("alert queue full, dropped", zap.String("instrument", d.Instrument), zap.String("side", string(d.Side)))
		}
	}
}

// FromDetection 构造告警；限流 key 为 标的:方向:大单价位
func FromDetection(d market.Detection, at time.Time) Alert {
	return Alert{
		Level: "WARNING",
		Message: fmt.Sprintf("large %s order on %s: %s @ %s (%s%% from %s)",
			d.Side, d.Instrument, d.LargeOrderQuantity.String(), d.LargeOrderPrice.String(),
			d.PercentDistance.StringFixed(4), d.CurrentPrice.String()),
		Timestamp:  at,
		Detection:  d,
		Ratio:      d.RatioString(),
		ThrottleID: fmt.Sprintf("%s:%s:%s", d.Instrument, d.Side, d.LargeOrderPrice.String()),
	}
}
