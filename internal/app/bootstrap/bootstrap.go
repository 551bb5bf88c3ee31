package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/heliotherm-exporter/internal/app"
	cfgpkg "github.com/taoyao-code/heliotherm-exporter/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Run 启动 exporter 并阻塞到收到 SIGINT/SIGTERM
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	log.Info("starting heliotherm exporter",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env))

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	log.Info("looking for heliotherm heat pump",
		zap.String("gateway", cfg.Gateway.Type),
		zap.String("target", a.Dialer.Target()),
		zap.Int("values", len(cfg.Poll.Values)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", a.HTTP.Addr()), zap.String("metrics", cfg.Metrics.Path))
		if err := a.HTTP.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("http server error", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.HTTP.Shutdown(shutdownCtx)
}
