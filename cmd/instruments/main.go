package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/phoe8lin/hugeorders/config"
	"github.com/phoe8lin/hugeorders/gateway"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	quote := flag.String("quote", "", "只列出该计价币种的交易对（如 USDT）")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	provider := gateway.BuildBinanceProvider(cfg.Gateway.BaseURL, cfg.GatewayTimeout(), cfg.Gateway.Rate, cfg.Gateway.Burst, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cat, err := provider.LoadCatalog(ctx)
	if err != nil {
		log.Fatalf("获取交易对目录失败: %v", err)
	}

	filter := strings.ToUpper(strings.TrimSpace(*quote))
	n := 0
	for _, in := range cat.Instruments() {
		if filter != "" && in.Quote != filter {
			continue
		}
		fmt.Printf("%-16s %s\n", in.Name, in.Symbol)
		n++
	}
	fmt.Printf("共 %d 个交易对\n", n)
}
