package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/heliotherm-exporter/internal/config"
	"github.com/taoyao-code/heliotherm-exporter/internal/logging"
	"github.com/taoyao-code/heliotherm-exporter/internal/simulator"
)

func main() {
	var (
		addr      = flag.String("listen", "127.0.0.1:4001", "监听地址")
		handshake = flag.Bool("require-handshake", false, "登录前要求 modem 握手串")
		corrupt   = flag.String("corrupt", "", "应答校验字节出错的命令，逗号分隔，如 MP,NR=0;")
		level     = flag.String("log-level", "info", "日志级别")
	)
	flag.Parse()

	log, err := logging.InitLogger(cfgpkg.LoggingConfig{Level: *level, Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	opts := simulator.Options{RequireHandshake: *handshake}
	if *corrupt != "" {
		opts.CorruptChecksum = map[string]bool{}
		// 命令本身含逗号，按 ';' 切分
		for _, c := range strings.SplitAfter(*corrupt, ";") {
			if c = strings.TrimPrefix(strings.TrimSpace(c), ","); c != "" {
				opts.CorruptChecksum[c] = true
			}
		}
	}
	dev := simulator.NewDevice(opts, log.Named("device"))

	srv, err := simulator.Listen(*addr, dev, log)
	if err != nil {
		log.Fatal("listen failed", zap.Error(err))
	}
	keys := make([]string, 0)
	for _, k := range dev.Keys() {
		keys = append(keys, k.String())
	}
	log.Info("heliotherm simulator listening", zap.String("addr", srv.Addr()), zap.Strings("values", keys))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Serve(ctx); err != nil {
		log.Error("serve", zap.Error(err))
	}
}
