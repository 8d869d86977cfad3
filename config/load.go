package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/phoe8lin/hugeorders/infrastructure/logger"
	"github.com/phoe8lin/hugeorders/scanner"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env       string          `yaml:"env"`
	Scan      ScanConfig      `yaml:"scan"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Alert     AlertConfig     `yaml:"alert"`
	Log       logger.Config   `yaml:"log"`
}

// ScanConfig 扫描设置；instruments 为空表示暂停，等待配置。
type ScanConfig struct {
	IntervalMinutes    int      `yaml:"intervalMinutes"`
	Depth              int      `yaml:"depth"`
	Instruments        []string `yaml:"instruments"`
	IdleRecheckSeconds int      `yaml:"idleRecheckSeconds"`
}

type GatewayConfig struct {
	BaseURL   string  `yaml:"baseURL"`
	TimeoutMs int     `yaml:"timeoutMs"`
	Rate      float64 `yaml:"rate"`  // REST 限流：每秒令牌数
	Burst     int     `yaml:"burst"` // REST 限流：最大突发令牌数
}

type DashboardConfig struct {
	Addr           string `yaml:"addr"` // 留空则关闭
	UTCOffsetHours int    `yaml:"utcOffsetHours"`
}

type MetricsConfig struct {
	Addr      string `yaml:"addr"` // 留空则关闭
	Namespace string `yaml:"namespace"`
}

// AlertConfig 大单告警；同一标的同方向同价位在 cooldown 内只告警一次。
type AlertConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CooldownSeconds int    `yaml:"cooldownSeconds"`
	WebhookURL      string `yaml:"webhookURL"` // 留空则只写日志
	TimeoutMs       int    `yaml:"timeoutMs"`
	Retries         int    `yaml:"retries"`
}

// envOverrides 环境变量覆盖项，未设置的字段保持 YAML 中的值。
type envOverrides struct {
	BaseURL         string   `env:"HUGEORDERS_GATEWAY_BASE_URL"`
	Instruments     []string `env:"HUGEORDERS_INSTRUMENTS" envSeparator:","`
	IntervalMinutes int      `env:"HUGEORDERS_SCAN_INTERVAL_MINUTES"`
	DashboardAddr   string   `env:"HUGEORDERS_DASHBOARD_ADDR"`
	MetricsAddr     string   `env:"HUGEORDERS_METRICS_ADDR"`
	LogLevel        string   `env:"HUGEORDERS_LOG_LEVEL"`
	AlertWebhookURL string   `env:"HUGEORDERS_ALERT_WEBHOOK_URL"`
}

// Defaults 返回内置默认值，YAML 中出现的字段会覆盖它们。
func Defaults() AppConfig {
	return AppConfig{
		Env: "prod",
		Scan: ScanConfig{
			IntervalMinutes:    1,
			Depth:              scanner.DefaultDepth,
			Instruments:        []string{"BTC/USDT", "ETH/USDT"},
			IdleRecheckSeconds: 5,
		},
		Gateway: GatewayConfig{
			BaseURL:   "https://api.binance.com",
			TimeoutMs: 10000,
			Rate:      5,
			Burst:     10,
		},
		Dashboard: DashboardConfig{
			Addr:           ":8501",
			UTCOffsetHours: 8,
		},
		Metrics: MetricsConfig{
			Addr:      ":9100",
			Namespace: "hugeorders",
		},
		Alert: AlertConfig{
			Enabled:         true,
			CooldownSeconds: 300,
			TimeoutMs:       5000,
			Retries:         2,
		},
		Log: logger.DefaultConfig(),
	}
}

// Load reads YAML config from path on top of Defaults and applies validation.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.normalize()
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides fields from HUGEORDERS_* env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if o.BaseURL != "" {
		cfg.Gateway.BaseURL = o.BaseURL
	}
	if len(o.Instruments) > 0 {
		cfg.Scan.Instruments = o.Instruments
	}
	if o.IntervalMinutes != 0 {
		cfg.Scan.IntervalMinutes = o.IntervalMinutes
	}
	if o.DashboardAddr != "" {
		cfg.Dashboard.Addr = o.DashboardAddr
	}
	if o.MetricsAddr != "" {
		cfg.Metrics.Addr = o.MetricsAddr
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.AlertWebhookURL != "" {
		cfg.Alert.WebhookURL = o.AlertWebhookURL
	}
	cfg.normalize()
	return cfg, Validate(cfg)
}

func (c *AppConfig) normalize() {
	c.Scan.Instruments = scanner.NormalizeInstruments(c.Scan.Instruments)
}

// ScanSettings 转换为扫描循环使用的设置。
func (c AppConfig) ScanSettings() scanner.Settings {
	return scanner.Settings{
		Instruments: c.Scan.Instruments,
		Interval:    time.Duration(c.Scan.IntervalMinutes) * time.Minute,
	}
}

func (c AppConfig) IdleRecheck() time.Duration {
	return time.Duration(c.Scan.IdleRecheckSeconds) * time.Second
}

func (c AppConfig) AlertCooldown() time.Duration {
	return time.Duration(c.Alert.CooldownSeconds) * time.Second
}

func (c AppConfig) AlertTimeout() time.Duration {
	return time.Duration(c.Alert.TimeoutMs) * time.Millisecond
}

func (c AppConfig) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutMs) * time.Millisecond
}

// DisplayLocation 展示时间使用的固定时区，默认 UTC+8。
func (c AppConfig) DisplayLocation() *time.Location {
	h := c.Dashboard.UTCOffsetHours
	return time.FixedZone(fmt.Sprintf("UTC%+d", h), h*3600)
}
