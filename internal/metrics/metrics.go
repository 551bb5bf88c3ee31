package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry；withRuntime 时注册 Go/进程采集器
func NewRegistry(withRuntime bool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// PollMetrics 轮询相关指标
// 同时实现 prometheus.Collector，可由采集器在轮询结束后一并输出
type PollMetrics struct {
	CommunicationErrors prometheus.Counter
	GatheringErrors     prometheus.Counter
	Cycles              *prometheus.CounterVec // labels: result=ok|aborted|failed|cached
	Duration            prometheus.Histogram

	names []string
}

// 轮询周期结果
const (
	ResultOK      = "ok"
	ResultAborted = "aborted"
	ResultFailed  = "failed"
	ResultCached  = "cached"
)

// NewPollMetrics 创建轮询指标；reg 非 nil 时一并注册
func NewPollMetrics(namespace string, reg prometheus.Registerer) *PollMetrics {
	m := &PollMetrics{
		names: []string{
			prometheus.BuildFQName(namespace, "", "communication_errors_total"),
			prometheus.BuildFQName(namespace, "", "gathering_errors_total"),
			prometheus.BuildFQName(namespace, "", "poll_cycles_total"),
			prometheus.BuildFQName(namespace, "", "poll_duration_seconds"),
			prometheus.BuildFQName(namespace, "", "poll_duration_seconds_bucket"),
			prometheus.BuildFQName(namespace, "", "poll_duration_seconds_sum"),
			prometheus.BuildFQName(namespace, "", "poll_duration_seconds_count"),
		},
		CommunicationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "communication_errors_total",
			Help:      "Amount of communication errors with the heliotherm heat pump.",
		}),
		GatheringErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gathering_errors_total",
			Help:      "Amount of gathering runs with failures.",
		}),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Polling cycles by result.",
		}, []string{"result"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of one polling cycle.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
	}
	if reg != nil {
		reg.MustRegister(m)
	}
	return m
}

// Describe 实现 prometheus.Collector
func (m *PollMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CommunicationErrors.Describe(ch)
	m.GatheringErrors.Describe(ch)
	m.Cycles.Describe(ch)
	m.Duration.Describe(ch)
}

// Collect 实现 prometheus.Collector
func (m *PollMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CommunicationErrors.Collect(ch)
	m.GatheringErrors.Collect(ch)
	m.Cycles.Collect(ch)
	m.Duration.Collect(ch)
}

// Names 返回本组指标占用的名称（含 histogram 的序列后缀）
func (m *PollMetrics) Names() []string {
	return m.names
}
