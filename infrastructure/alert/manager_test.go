package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phoe8lin/hugeorders/infrastructure/logger"
	"github.com/phoe8lin/hugeorders/market"
	"github.com/phoe8lin/hugeorders/scanner"
)

func detection(instrument string, side market.Side, price string) market.Detection {
	return market.Detection{
		Instrument:          instrument,
		Side:                side,
		CurrentPrice:        decimal.RequireFromString("100"),
		LargeOrderPrice:     decimal.RequireFromString(price),
		Ratio:               8,
		PercentDistance:     decimal.RequireFromString("-1"),
		LargeOrderQuantity:  decimal.RequireFromString("40"),
		OppositeNextFourSum: decimal.RequireFromString("5"),
	}
}

func TestNewManager(t *testing.T) {
	ch := NewMockChannel("test")
	mgr := NewManager([]Channel{ch}, 5*time.Minute)

	channels := mgr.GetChannels()
	if len(channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(channels))
	}
	if channels[0] != "test" {
		t.Errorf("channel name = %s, want test", channels[0])
	}
}

func TestFromDetection(t *testing.T) {
	at := time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC)
	a := FromDetection(detection("BTC/USDT", market.SideBid, "99"), at)

	if a.ThrottleID != "BTC/USDT:BID:99" {
		t.Errorf("throttle id = %s", a.ThrottleID)
	}
	if a.Ratio != "8.0000" {
		t.Errorf("ratio = %s", a.Ratio)
	}
	d := detection("BTC/USDT", market.SideAsk, "101")
	d.Ratio = math.Inf(1)
	if got := FromDetection(d, at).Ratio; got != "inf" {
		t.Errorf("inf ratio = %s", got)
	}
	if !strings.Contains(a.Message, "large BID order on BTC/USDT: 40 @ 99") {
		t.Errorf("message = %s", a.Message)
	}
	if !a.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v", a.Timestamp)
	}
}

func TestSendAlertThrottlesSameWall(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, 5*time.Minute)
	ctx := context.Background()

	wall := FromDetection(detection("BTC/USDT", market.SideBid, "99"), time.Now())
	for i := 0; i < 3; i++ {
		if err := mgr.SendAlert(ctx, wall); err != nil {
			t.Fatalf("SendAlert failed: %v", err)
		}
	}
	if mock.Count() != 1 {
		t.Fatalf("expected 1 alert, got %d", mock.Count())
	}

	// 价位变了视为新的大单
	moved := FromDetection(detection("BTC/USDT", market.SideBid, "98.5"), time.Now())
	_ = mgr.SendAlert(ctx, moved)
	other := FromDetection(detection("BTC/USDT", market.SideAsk, "99"), time.Now())
	_ = mgr.SendAlert(ctx, other)
	if mock.Count() != 3 {
		t.Fatalf("expected 3 alerts, got %d", mock.Count())
	}
}

func TestThrottlerExpires(t *testing.T) {
	now := time.Now()
	th := NewThrottler(time.Minute)
	th.now = func() time.Time { return now }

	if !th.Allow("k") {
		t.Fatal("first call should pass")
	}
	if th.Allow("k") {
		t.Fatal("second call within interval should be throttled")
	}
	now = now.Add(time.Minute)
	if !th.Allow("k") {
		t.Fatal("call after interval should pass")
	}

	now = now.Add(2 * time.Minute)
	th.Prune()
	if len(th.lastSent) != 0 {
		t.Fatalf("expected pruned map, got %d", len(th.lastSent))
	}
}

func TestPartialChannelFailure(t *testing.T) {
	good := NewMockChannel("good")
	bad := NewMockChannel("bad")
	bad.SetShouldError(true)
	mgr := NewManager([]Channel{good, bad}, time.Minute)

	err := mgr.SendAlert(context.Background(), Alert{Level: "INFO", Message: "x"})
	if err == nil || !strings.Contains(err.Error(), "channel bad failed") {
		t.Fatalf("expected bad channel error, got %v", err)
	}
	if good.Count() != 1 {
		t.Fatalf("good channel should still receive the alert")
	}
}

func TestPublishQueuesAndRunDelivers(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock, NewLogChannel("log", logger.NewNop())}, time.Minute)

	mgr.Scanning(time.Now(), scanner.Settings{})
	mgr.Publish(scanner.Cycle{
		FinishedAt: time.Now(),
		Detections: []market.Detection{
			detection("BTC/USDT", market.SideBid, "99"),
			detection("ETH/USDT", market.SideAsk, "101"),
		},
	})
	mgr.Waiting(time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for mock.Count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 alerts, got %d", mock.Count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := mock.GetAlerts()[1].Detection.Instrument; got != "ETH/USDT" {
		t.Errorf("second alert instrument = %s", got)
	}
}

func TestWebhookChannel(t *testing.T) {
	var (
		mu   sync.Mutex
		body map[string]any
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		_ = json.Unmarshal(raw, &body)
		mu.Unlock()
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	ch := NewWebhookChannel("hook", ts.URL, time.Second, 0)
	a := FromDetection(detection("BTC/USDT", market.SideBid, "99"), time.Now())
	if err := ch.Send(context.Background(), a); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if body["ratio"] != "8.0000" {
		t.Errorf("unexpected payload: %v", body)
	}
	det, _ := body["detection"].(map[string]any)
	if det["instrument"] != "BTC/USDT" || det["largeOrderPrice"] != "99" {
		t.Errorf("unexpected detection payload: %v", det)
	}
}

func TestWebhookChannelErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	}))
	defer ts.Close()

	ch := NewWebhookChannel("hook", ts.URL, time.Second, 0)
	err := ch.Send(context.Background(), Alert{Level: "INFO", Message: "x"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
}

// MockChannel 模拟告警通道（用于测试）
type MockChannel struct {
	name      string
	mu        sync.Mutex
	alerts    []Alert
	shouldErr bool
}

// NewMockChannel 创建模拟告警通道
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name, alerts: make([]Alert, 0)}
}

func (c *MockChannel) Send(_ context.Context, alert Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, alert)
	return nil
}

func (c *MockChannel) Name() string { return c.name }

// GetAlerts 获取所有接收到的告警
func (c *MockChannel) GetAlerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Alert(nil), c.alerts...)
}

// SetShouldError 设置是否返回错误
func (c *MockChannel) SetShouldError(shouldErr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldErr = shouldErr
}

// Count 返回接收到的告警数量
func (c *MockChannel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}
