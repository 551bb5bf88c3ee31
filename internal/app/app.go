// Package app 组装各组件：配置 → 拨号器 → 轮询器 → 采集器 → HTTP
package app

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/heliotherm-exporter/internal/config"
	"github.com/taoyao-code/heliotherm-exporter/internal/exporter"
	"github.com/taoyao-code/heliotherm-exporter/internal/httpserver"
	"github.com/taoyao-code/heliotherm-exporter/internal/metrics"
	"github.com/taoyao-code/heliotherm-exporter/internal/poller"
	"github.com/taoyao-code/heliotherm-exporter/internal/transport"
)

// App 组装完成的 exporter
type App struct {
	Registry *prometheus.Registry
	Dialer   *transport.Dialer
	Poller   *poller.Poller
	HTTP     *httpserver.Server
}

// New 根据已校验的配置组装 exporter
func New(cfg *cfgpkg.Config, log *zap.Logger) (*App, error) {
	keys, err := cfg.Poll.ValueKeys()
	if err != nil {
		return nil, fmt.Errorf("poll values: %w", err)
	}

	dialer, err := transport.NewDialer(cfg.Gateway, log)
	if err != nil {
		return nil, err
	}

	reg, pm := NewMetrics(cfg.Metrics)

	p, err := poller.New(poller.Config{
		Namespace:       cfg.Metrics.Namespace,
		Keys:            keys,
		ResponseTimeout: cfg.Protocol.ResponseTimeout,
		ConnectString:   []byte(cfg.Protocol.ConnectString),
		MinInterval:     cfg.Poll.MinInterval,
	}, dialer, nil, pm, log.Named("poller"))
	if err != nil {
		return nil, err
	}

	if err := reg.Register(exporter.New(p, pm, cfg.Metrics.Namespace, log.Named("collector"))); err != nil {
		return nil, fmt.Errorf("register collector: %w", err)
	}

	agg := NewHealthAggregator(p, dialer)
	srv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metrics.Handler(reg), agg)

	return &App{Registry: reg, Dialer: dialer, Poller: p, HTTP: srv}, nil
}

// Handler HTTP 路由（测试使用）
func (a *App) Handler() http.Handler { return a.HTTP.Handler() }
