package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/phoe8lin/hugeorders/internal/container"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	noWatch := flag.Bool("noWatch", false, "关闭配置热加载")
	flag.Parse()

	c, err := container.New(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *noWatch {
		c = container.NewWithConfig(c.Config(), "")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buildCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = c.Build(buildCtx)
	cancel()
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		log.Fatalf("启动失败: %v", err)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	watchdog(ctx, c)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err := c.Stop(); err != nil {
		log.Printf("停止时出现错误: %v", err)
		os.Exit(1)
	}
}

// watchdog 阻塞到 ctx 取消；systemd 开启 WatchdogSec 时，组件健康才发送心跳。
func watchdog(ctx context.Context, c *container.Container) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.HealthCheck(); err != nil {
				log.Printf("health check failed: %v", err)
				continue
			}
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
