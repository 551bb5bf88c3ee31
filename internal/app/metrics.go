package app

import (
	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/taoyao-code/heliotherm-exporter/internal/config"
	"github.com/taoyao-code/heliotherm-exporter/internal/metrics"
)

// NewMetrics 初始化注册表与轮询指标
// 轮询指标不单独注册，由采集器在每次轮询之后输出
func NewMetrics(cfg cfgpkg.MetricsConfig) (*prometheus.Registry, *metrics.PollMetrics) {
	reg := metrics.NewRegistry(cfg.GoCollectors)
	pm := metrics.NewPollMetrics(cfg.Namespace, nil)
	return reg, pm
}
