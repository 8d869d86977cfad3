package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/phoe8lin/hugeorders/config"
	"github.com/phoe8lin/hugeorders/dashboard"
	"github.com/phoe8lin/hugeorders/gateway"
	"github.com/phoe8lin/hugeorders/infrastructure/alert"
	"github.com/phoe8lin/hugeorders/infrastructure/logger"
	"github.com/phoe8lin/hugeorders/infrastructure/monitor"
	"github.com/phoe8lin/hugeorders/scanner"
)

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	// 配置
	cfg        config.AppConfig
	configPath string

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor

	// 行情源
	provider *gateway.BinanceProvider

	// 核心服务
	scanner   *scanner.Scanner
	runner    *scanner.Runner
	dashboard *dashboard.Server
	alerts    *alert.Manager

	// 生命周期管理
	lifecycle *LifecycleManager
}

// New 创建新的Container实例
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(cfg, configPath), nil
}

// NewWithConfig 使用已加载的配置；configPath 为空时不启用热加载。
func NewWithConfig(cfg config.AppConfig, configPath string) *Container {
	return &Container{
		cfg:        cfg,
		configPath: configPath,
		lifecycle:  NewLifecycleManager(),
	}
}

// Build 构建所有组件；ctx 仅用于启动时加载交易对目录
func (c *Container) Build(ctx context.Context) error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}

	c.buildGateway(ctx)
	c.buildCoreServices()
	c.registerLifecycleComponents()
	c.logger.Info("container built successfully")
	return nil
}

func (c *Container) buildInfrastructure() error {
	var err error
	if c.logger == nil {
		c.logger, err = logger.New(c.cfg.Log)
		if err != nil {
			return fmt.Errorf("create logger failed: %w", err)
		}
	}

	monitorCfg := monitor.DefaultConfig()
	if c.cfg.Metrics.Namespace != "" {
		monitorCfg.Namespace = c.cfg.Metrics.Namespace
	}
	c.monitor = monitor.New(monitorCfg)

	c.logger.Info("infrastructure built", zap.String("env", c.cfg.Env))
	return nil
}

// buildGateway 构建行情源并加载目录；目录加载失败不致命，标的按 BASE/QUOTE 去掉分隔符直接请求。
func (c *Container) buildGateway(ctx context.Context) {
	c.provider = gateway.BuildBinanceProvider(
		c.cfg.Gateway.BaseURL,
		c.cfg.GatewayTimeout(),
		c.cfg.Gateway.Rate,
		c.cfg.Gateway.Burst,
		c.monitor,
	)

	cat, err := c.provider.LoadCatalog(ctx)
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "load_catalog"})
		return
	}
	c.logger.Info("catalog loaded", zap.Int("instruments", cat.Len()))
}

func (c *Container) buildCoreServices() {
	c.scanner = scanner.New(c.provider,
		scanner.WithDepth(c.cfg.Scan.Depth),
		scanner.WithLogger(c.component("scanner")),
		scanner.WithRecorder(c.monitor),
	)
	c.dashboard = dashboard.New(c.provider,
		dashboard.WithLocation(c.cfg.DisplayLocation()),
		dashboard.WithLogger(c.component("dashboard")),
	)
	sink := scanner.MultiSink{c.dashboard}
	if c.cfg.Alert.Enabled {
		c.alerts = c.buildAlerts()
		sink = append(sink, c.alerts)
	}
	c.runner = scanner.NewRunner(c.scanner, sink, c.supportedSettings(c.cfg),
		scanner.WithRunnerLogger(c.component("runner")),
		scanner.WithIdleRecheck(c.cfg.IdleRecheck()),
	)
	c.dashboard.Bind(c.runner)

	c.logger.Info("core services built",
		zap.Strings("instruments", c.runner.Settings().Instruments),
		zap.Int("interval_minutes", c.runner.Settings().IntervalMinutes()),
		zap.Int("depth", c.cfg.Scan.Depth),
	)
}

func (c *Container) buildAlerts() *alert.Manager {
	alertLog := c.component("alert")
	channels := []alert.Channel{alert.NewLogChannel("log", alertLog)}
	if c.cfg.Alert.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookChannel("webhook", c.cfg.Alert.WebhookURL, c.cfg.AlertTimeout(), c.cfg.Alert.Retries))
	}
	mgr := alert.NewManager(channels, c.cfg.AlertCooldown(),
		alert.WithLogger(alertLog),
		alert.WithSendTimeout(c.cfg.AlertTimeout()),
	)
	alertLog.Info("alert channels ready", zap.Strings("channels", mgr.GetChannels()))
	return mgr
}

// component 为各组件附加 component 字段的子 logger
func (c *Container) component(name string) *logger.Logger {
	return c.logger.WithFields(map[string]interface{}{"component": name})
}

// supportedSettings 过滤掉目录中不存在的标的并换成标准名称；目录为空时原样保留。
func (c *Container) supportedSettings(cfg config.AppConfig) scanner.Settings {
	s := cfg.ScanSettings()
	cat := c.provider.Catalog()
	if cat.Len() == 0 {
		return s
	}
	kept := make([]string, 0, len(s.Instruments))
	for _, name := range s.Instruments {
		in, ok := cat.Resolve(name)
		if !ok {
			c.logger.Warn("instrument not supported by exchange, ignored", zap.String("instrument", name))
			continue
		}
		kept = append(kept, in.Name)
	}
	s.Instruments = kept
	return s
}

func (c *Container) registerLifecycleComponents() {
	if c.cfg.Metrics.Addr != "" {
		c.lifecycle.Register(&httpServerComponent{
			name:    "metrics_server",
			handler: c.monitor.Handler(),
			addr:    c.cfg.Metrics.Addr,
			logger:  c.logger,
		})
	}

	c.lifecycle.Register(&taskComponent{
		name:   "dashboard_hub",
		logger: c.logger,
		run: func(ctx context.Context) error {
			c.dashboard.Run(ctx)
			return ctx.Err()
		},
	})
	if c.cfg.Dashboard.Addr != "" {
		c.lifecycle.Register(&httpServerComponent{
			name:    "dashboard_server",
			handler: c.dashboard.Handler(),
			addr:    c.cfg.Dashboard.Addr,
			logger:  c.logger,
		})
	}

	if c.alerts != nil {
		c.lifecycle.Register(&taskComponent{
			name:   "alert_dispatcher",
			logger: c.logger,
			run:    c.alerts.Run,
		})
	}

	c.lifecycle.Register(&taskComponent{
		name:   "scan_runner",
		logger: c.logger,
		run:    c.runner.Run,
	})

	if c.configPath != "" {
		w := config.Watcher{
			Path:     c.configPath,
			Debounce: 500 * time.Millisecond,
			OnError: func(err error) {
				c.logger.LogError(err, map[string]interface{}{"action": "config_reload"})
			},
		}
		c.lifecycle.Register(&taskComponent{
			name:   "config_watcher",
			logger: c.logger,
			run: func(ctx context.Context) error {
				return w.Start(ctx, c.applyConfig)
			},
		})
	}
}

// applyConfig 热加载只影响扫描标的与间隔；其余字段需要重启。
func (c *Container) applyConfig(cfg config.AppConfig) {
	c.logger.Info("config reloaded", zap.String("path", c.configPath))
	c.runner.UpdateSettings(c.supportedSettings(cfg))
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")

	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}

	c.logger.Info("container started")
	return nil
}

func (c *Container) Stop() error {
	c.logger.Info("stopping container...")

	err := c.lifecycle.StopAll()
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
	}

	c.logger.Info("container stopped")
	_ = c.logger.Close()
	return err
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

// Runner 暴露扫描循环，供外部（如信号处理）修改设置。
func (c *Container) Runner() *scanner.Runner { return c.runner }

func (c *Container) Dashboard() *dashboard.Server { return c.dashboard }

func (c *Container) Config() config.AppConfig { return c.cfg }
