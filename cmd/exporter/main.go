package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/taoyao-code/heliotherm-exporter/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/heliotherm-exporter/internal/config"
	"github.com/taoyao-code/heliotherm-exporter/internal/logging"
)

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径（默认 $HELIOTHERM_CONFIG 或 ./configs/exporter.yaml）")
		port        = flag.Int("port", 0, "exporter 监听端口（覆盖 http.addr）")
		gateway     = flag.String("lan_gateway", "", "串口转 TCP 网关主机名或 IP（覆盖 gateway.host）")
		gatewayPort = flag.Int("lan_gateway_port", 0, "网关 TCP 端口（覆盖 gateway.port）")
	)
	flag.Parse()

	// 1) 加载配置，命令行参数优先
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.HTTP.Addr = fmt.Sprintf(":%d", *port)
	}
	if *gateway != "" {
		cfg.Gateway.Type = "tcp"
		cfg.Gateway.Host = *gateway
	}
	if *gatewayPort > 0 {
		cfg.Gateway.Port = *gatewayPort
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(2)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 运行直到收到退出信号
	if err := bootstrap.Run(cfg, zap.L()); err != nil {
		zap.L().Error("exporter stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
