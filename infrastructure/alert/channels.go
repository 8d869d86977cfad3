package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/phoe8lin/hugeorders/infrastructure/logger"
)

// LogChannel 通过 zap 输出告警
type LogChannel struct {
	logger *logger.Logger
	name   string
}

// NewLogChannel 创建日志告警通道
func NewLogChannel(name string, l *logger.Logger) *LogChannel {
	return &LogChannel{logger: l, name: name}
}

func (c *LogChannel) Send(_ context.Context, alert Alert) error {
	c.logger.Warn("large_order_alert",
		zap.String("level", alert.Level),
		zap.String("message", alert.Message),
		zap.String("instrument", alert.Detection.Instrument),
		zap.String("side", string(alert.Detection.Side)),
		zap.String("ratio", alert.Ratio),
		zap.Time("ts", alert.Timestamp),
	)
	return nil
}

func (c *LogChannel) Name() string { return c.name }

// WebhookChannel 以 JSON POST 推送告警（例如聊天机器人 webhook）
type WebhookChannel struct {
	name   string
	url    string
	client *resty.Client
}

// NewWebhookChannel 创建 webhook 通道；失败时 resty 按 retries 次数重试
func NewWebhookChannel(name, url string, timeout time.Duration, retries int) *WebhookChannel {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &WebhookChannel{name: name, url: url, client: client}
}

func (c *WebhookChannel) Send(ctx context.Context, alert Alert) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(alert).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (c *WebhookChannel) Name() string { return c.name }
