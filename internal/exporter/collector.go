// Package exporter 将轮询结果以无标签 gauge 的形式暴露给 Prometheus
package exporter

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"

	"github.com/taoyao-code/heliotherm-exporter/internal/metrics"
	"github.com/taoyao-code/heliotherm-exporter/internal/poller"
)

// Poller 每次抓取执行一个轮询周期
type Poller interface {
	Poll(ctx context.Context) poller.PollResult
}

// Collector unchecked collector：指标集合取决于设备返回的名称，无法预先声明
type Collector struct {
	poller   Poller
	pm       *metrics.PollMetrics
	expected *prometheus.Desc
	received *prometheus.Desc
	reserved []string // 本采集器自身输出的指标名，设备值不得占用
	log      *zap.Logger
}

// New 创建采集器；pm 为该轮询器使用的计数器，在每次轮询之后输出，可为 nil
func New(p Poller, pm *metrics.PollMetrics, namespace string, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	expectedName := prometheus.BuildFQName(namespace, "", "values_expected")
	receivedName := prometheus.BuildFQName(namespace, "", "values_received")
	reserved := []string{expectedName, receivedName}
	if pm != nil {
		reserved = append(reserved, pm.Names()...)
	}
	return &Collector{
		poller: p,
		pm:     pm,
		expected: prometheus.NewDesc(expectedName,
			"Amount of values configured to be read per polling cycle.", nil, nil),
		received: prometheus.NewDesc(receivedName,
			"Amount of values actually read in the last polling cycle.", nil, nil),
		reserved: reserved,
		log:      log,
	}
}

// Describe 不声明任何 Desc，注册为 unchecked collector
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect 触发一次轮询并输出结果；轮询计数器在周期结束后输出，反映本次抓取
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	res := c.poller.Poll(context.Background())
	if c.pm != nil {
		c.pm.Collect(ch)
	}

	seen := make(map[string]struct{}, len(res.Samples)+len(c.reserved))
	for _, name := range c.reserved {
		seen[name] = struct{}{}
	}
	for _, s := range res.Samples {
		if !model.LegacyValidation.IsValidMetricName(s.Name) {
			c.log.Warn("invalid metric name in poll result, skipping", zap.String("metric", s.Name))
			continue
		}
		if _, dup := seen[s.Name]; dup {
			c.log.Warn("duplicate metric name in poll result, keeping first", zap.String("metric", s.Name))
			continue
		}
		seen[s.Name] = struct{}{}

		m, err := prometheus.NewConstMetric(prometheus.NewDesc(s.Name, s.Help, nil, nil), prometheus.GaugeValue, s.Value)
		if err != nil {
			c.log.Warn("invalid metric", zap.String("metric", s.Name), zap.Error(err))
			continue
		}
		ch <- m
	}

	if !res.Complete() {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.expected, prometheus.GaugeValue, float64(res.Expected))
	ch <- prometheus.MustNewConstMetric(c.received, prometheus.GaugeValue, float64(res.Received))
}
