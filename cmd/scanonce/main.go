package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/phoe8lin/hugeorders/config"
	"github.com/phoe8lin/hugeorders/gateway"
	"github.com/phoe8lin/hugeorders/infrastructure/logger"
	"github.com/phoe8lin/hugeorders/scanner"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	instruments := flag.String("instruments", "", "逗号分隔的交易对，留空使用配置")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	list := cfg.Scan.Instruments
	if *instruments != "" {
		list = strings.Split(*instruments, ",")
	}

	logCfg := cfg.Log
	logCfg.Outputs = []string{"stdout"}
	logCfg.Format = "console"
	logCfg.Level = "warn"
	lg, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	provider := gateway.BuildBinanceProvider(cfg.Gateway.BaseURL, cfg.GatewayTimeout(), cfg.Gateway.Rate, cfg.Gateway.Burst, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := provider.LoadCatalog(ctx); err != nil {
		log.Printf("获取交易对目录失败，按原样请求: %v", err)
	}

	s := scanner.New(provider, scanner.WithDepth(cfg.Scan.Depth), scanner.WithLogger(lg))
	cycle, err := s.Scan(ctx, list)
	if err != nil {
		log.Fatalf("扫描中断: %v", err)
	}

	loc := cfg.DisplayLocation()
	fmt.Printf("Last scan: %s (%s)\n", cycle.FinishedAt.In(loc).Format("2006-01-02 15:04:05"), loc)
	if len(cycle.Detections) == 0 {
		fmt.Println("No large orders found in this scan.")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Pair\tSide\tCurrent\tLarge Order\tRatio\t% Distance\tQty\tOpp Next4\t")
	for _, d := range cycle.Detections {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%s%%\t%s\t%s\t\n",
			d.Instrument, d.Side,
			d.CurrentPrice.StringFixed(4), d.LargeOrderPrice.StringFixed(4),
			d.Ratio, d.PercentDistance.StringFixed(4),
			d.LargeOrderQuantity.StringFixed(4), d.OppositeNextFourSum.StringFixed(4))
	}
	_ = tw.Flush()
}
