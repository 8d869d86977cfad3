package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/phoe8lin/hugeorders/gateway"
	"github.com/phoe8lin/hugeorders/scanner"
)

// Validate ensures required fields are present and in range.
// An empty instrument list is valid: the scanner idles until it is populated.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Scan.IntervalMinutes < scanner.MinIntervalMinutes || cfg.Scan.IntervalMinutes > scanner.MaxIntervalMinutes {
		return fmt.Errorf("scan.intervalMinutes must be within [%d, %d]", scanner.MinIntervalMinutes, scanner.MaxIntervalMinutes)
	}
	if !gateway.IsValidDepthLimit(cfg.Scan.Depth) {
		return fmt.Errorf("scan.depth must be one of %v", gateway.ValidDepthLimits)
	}
	if cfg.Scan.IdleRecheckSeconds < 1 {
		return errors.New("scan.idleRecheckSeconds must be >= 1")
	}
	if cfg.Gateway.BaseURL == "" {
		return errors.New("gateway.baseURL is required")
	}
	if u, err := url.Parse(cfg.Gateway.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("gateway.baseURL %q is not an absolute URL", cfg.Gateway.BaseURL)
	}
	if cfg.Gateway.TimeoutMs < 0 {
		return errors.New("gateway.timeoutMs must be >= 0")
	}
	if cfg.Gateway.Rate <= 0 || cfg.Gateway.Burst <= 0 {
		return errors.New("gateway.rate/burst must be > 0")
	}
	if cfg.Dashboard.UTCOffsetHours < -12 || cfg.Dashboard.UTCOffsetHours > 14 {
		return errors.New("dashboard.utcOffsetHours must be within [-12, 14]")
	}
	if cfg.Alert.Enabled {
		if cfg.Alert.CooldownSeconds < 0 || cfg.Alert.TimeoutMs <= 0 || cfg.Alert.Retries < 0 {
			return errors.New("alert.cooldownSeconds/retries must be >= 0 and alert.timeoutMs > 0")
		}
		if cfg.Alert.WebhookURL != "" {
			if u, err := url.Parse(cfg.Alert.WebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("alert.webhookURL %q is not an absolute URL", cfg.Alert.WebhookURL)
			}
		}
	}
	if cfg.Metrics.Addr != "" && cfg.Metrics.Addr == cfg.Dashboard.Addr {
		return errors.New("metrics.addr and dashboard.addr must differ")
	}
	return nil
}
