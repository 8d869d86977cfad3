package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock 由测试手动触发 After。
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []chan time.Time
	waits   chan time.Duration
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now, waits: make(chan time.Duration, 16)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.pending = append(c.pending, ch)
	c.mu.Unlock()
	c.waits <- d
	return ch
}

// Fire 推进时间并唤醒所有等待者。
func (c *manualClock) Fire(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	pending := c.pending
	c.pending = nil
	now := c.now
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- now
	}
}

type sinkEvent struct {
	kind     string
	at       time.Time
	cycle    Cycle
	settings Settings
}

type chanSink struct{ events chan sinkEvent }

func newChanSink() *chanSink { return &chanSink{events: make(chan sinkEvent, 32)} }

func (s *chanSink) Scanning(at time.Time, settings Settings) {
	s.events <- sinkEvent{kind: "scanning", at: at, settings: settings}
}
func (s *chanSink) Publish(cycle Cycle)  { s.events <- sinkEvent{kind: "publish", cycle: cycle} }
func (s *chanSink) Waiting(at time.Time) { s.events <- sinkEvent{kind: "waiting", at: at} }

func (s *chanSink) next(t *testing.T, kind string) sinkEvent {
	t.Helper()
	select {
	case ev := <-s.events:
		require.Equal(t, kind, ev.kind)
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", kind)
	}
	return sinkEvent{}
}

func waitFor(t *testing.T, clk *manualClock) time.Duration {
	t.Helper()
	select {
	case d := <-clk.waits:
		return d
	case <-time.After(2 * time.Second):
		t.Fatalf("runner never started waiting")
	}
	return 0
}

func startRunner(t *testing.T, r *Runner) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func awaitExit(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop")
	}
	return nil
}

func TestRunnerRepeatsAfterInterval(t *testing.T) {
	p := newFakeProvider()
	p.prices["BTC/USDT"] = "100"
	p.books["BTC/USDT"] = bidHeavyBook()

	clk := newManualClock(time.Date(2024, 9, 14, 8, 0, 0, 0, time.UTC))
	sink := newChanSink()
	r := NewRunner(New(p, WithClock(clk)), sink,
		Settings{Instruments: []string{"BTC/USDT"}, Interval: 2 * time.Minute},
		WithRunnerClock(clk))

	cancel, done := startRunner(t, r)

	sink.next(t, "scanning")
	ev := sink.next(t, "publish")
	require.Len(t, ev.cycle.Detections, 1)
	assert.Equal(t, 2*time.Minute, waitFor(t, clk))

	clk.Fire(2 * time.Minute)
	sink.next(t, "scanning")
	ev = sink.next(t, "publish")
	assert.Equal(t, time.Date(2024, 9, 14, 8, 2, 0, 0, time.UTC), ev.cycle.StartedAt)
	waitFor(t, clk)

	cancel()
	assert.True(t, errors.Is(awaitExit(t, done), context.Canceled))
	assert.Len(t, p.Calls(), 4)
}

func TestRunnerIdlesWithoutInstruments(t *testing.T) {
	p := newFakeProvider()
	p.prices["ETH/USDT"] = "100"
	p.books["ETH/USDT"] = quietBook()

	clk := newManualClock(time.Now())
	sink := newChanSink()
	r := NewRunner(New(p), sink, Settings{}, WithRunnerClock(clk), WithIdleRecheck(5*time.Second))
	assert.Equal(t, DefaultInterval, r.Settings().Interval)

	cancel, done := startRunner(t, r)
	sink.next(t, "waiting")
	assert.Equal(t, 5*time.Second, waitFor(t, clk))

	clk.Fire(5 * time.Second)
	sink.next(t, "waiting")
	waitFor(t, clk)
	assert.Empty(t, p.Calls())

	// 配置到达后立即扫描，不等待 idle 间隔
	r.UpdateSettings(Settings{Instruments: []string{"eth/usdt"}, Interval: time.Minute})
	ev := sink.next(t, "scanning")
	assert.Equal(t, []string{"ETH/USDT"}, ev.settings.Instruments)
	sink.next(t, "publish")

	cancel()
	awaitExit(t, done)
}

func TestRunnerRescansImmediatelyOnSettingsChange(t *testing.T) {
	p := newFakeProvider()
	p.prices["BTC/USDT"] = "100"
	p.books["BTC/USDT"] = quietBook()
	p.prices["ETH/USDT"] = "100"
	p.books["ETH/USDT"] = bidHeavyBook()

	clk := newManualClock(time.Now())
	sink := newChanSink()
	r := NewRunner(New(p), sink,
		Settings{Instruments: []string{"BTC/USDT"}, Interval: time.Hour},
		WithRunnerClock(clk))

	cancel, done := startRunner(t, r)
	sink.next(t, "scanning")
	sink.next(t, "publish")
	waitFor(t, clk)

	r.UpdateSettings(Settings{Instruments: []string{"ETH/USDT"}, Interval: 3 * time.Minute})
	sink.next(t, "scanning")
	ev := sink.next(t, "publish")
	assert.Equal(t, []string{"ETH/USDT"}, ev.cycle.Instruments)
	require.Len(t, ev.cycle.Detections, 1)
	assert.Equal(t, 3*time.Minute, waitFor(t, clk))

	cancel()
	awaitExit(t, done)
}

func TestRunnerIgnoresUnchangedSettings(t *testing.T) {
	r := NewRunner(New(newFakeProvider()), newChanSink(),
		Settings{Instruments: []string{"BTC/USDT"}, Interval: time.Minute})

	r.UpdateSettings(Settings{Instruments: []string{"btc/usdt"}, Interval: time.Minute})
	assert.Len(t, r.wake, 0)

	r.UpdateSettings(Settings{Instruments: []string{"BTC/USDT", "ETH/USDT"}, Interval: time.Minute})
	r.UpdateSettings(Settings{Instruments: []string{"ETH/USDT"}, Interval: time.Minute})
	assert.Len(t, r.wake, 1)
	assert.Equal(t, []string{"ETH/USDT"}, r.Settings().Instruments)
}

func TestRunnerDropsCycleCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFakeProvider()
	p.prices["BTC/USDT"] = "100"
	p.books["BTC/USDT"] = bidHeavyBook()
	p.onCall = func(string) { cancel() }

	sink := newChanSink()
	r := NewRunner(New(p), sink, Settings{Instruments: []string{"BTC/USDT", "ETH/USDT"}, Interval: time.Minute})

	err := r.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))

	// 只有 scanning，没有 publish
	require.Len(t, sink.events, 1)
	assert.Equal(t, "scanning", (<-sink.events).kind)
}

func TestSettingsIntervalMinutes(t *testing.T) {
	assert.Equal(t, 5, Settings{Interval: 5 * time.Minute}.IntervalMinutes())
	assert.Equal(t, []string{"BTC/USDT", "ETHUSDT"}, NormalizeInstruments([]string{"", "btc/usdt", "ETHUSDT", "BTC/USDT "}))
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := newChanSink(), newChanSink()
	m := MultiSink{a, b}
	m.Scanning(time.Now(), Settings{})
	m.Publish(Cycle{})
	m.Waiting(time.Now())
	for _, s := range []*chanSink{a, b} {
		s.next(t, "scanning")
		s.next(t, "publish")
		s.next(t, "waiting")
	}
}
