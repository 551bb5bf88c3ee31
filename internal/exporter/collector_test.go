package exporter

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/heliotherm-exporter/internal/metrics"
	"github.com/taoyao-code/heliotherm-exporter/internal/poller"
)

type stubPoller struct {
	res   poller.PollResult
	calls int
}

func (s *stubPoller) Poll(context.Context) poller.PollResult {
	s.calls++
	return s.res
}

func TestCollectorCompleteCycle(t *testing.T) {
	p := &stubPoller{res: poller.PollResult{
		Outcome: metrics.ResultOK,
		Samples: []poller.Sample{
			{Name: "heliotherm_temp_aussen", Help: "Temp. Aussen", Value: 4.8},
			{Name: "heliotherm_temp_vorlauf", Help: "Temp. Vorlauf", Value: 30.1},
		},
		Expected: 3,
		Received: 2,
	}}

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(New(p, nil, "heliotherm", nil)))

	expected := `
# HELP heliotherm_temp_aussen Temp. Aussen
# TYPE heliotherm_temp_aussen gauge
heliotherm_temp_aussen 4.8
# HELP heliotherm_temp_vorlauf Temp. Vorlauf
# TYPE heliotherm_temp_vorlauf gauge
heliotherm_temp_vorlauf 30.1
# HELP heliotherm_values_expected Amount of values configured to be read per polling cycle.
# TYPE heliotherm_values_expected gauge
heliotherm_values_expected 3
# HELP heliotherm_values_received Amount of values actually read in the last polling cycle.
# TYPE heliotherm_values_received gauge
heliotherm_values_received 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))
	assert.Equal(t, 1, p.calls, "每次抓取触发一次轮询")
}

func TestCollectorAbortedCycleEmitsNothing(t *testing.T) {
	p := &stubPoller{res: poller.PollResult{Outcome: metrics.ResultAborted}}
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(New(p, nil, "heliotherm", nil)))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, mfs)
}

func TestCollectorSkipsDuplicateAndInvalidNames(t *testing.T) {
	p := &stubPoller{res: poller.PollResult{
		Outcome: metrics.ResultOK,
		Samples: []poller.Sample{
			{Name: "heliotherm_temp", Help: "Temp", Value: 1},
			{Name: "heliotherm_temp", Help: "Temp (2)", Value: 2},
			{Name: "heliotherm_bad name", Help: "bad", Value: 3},
		},
		Expected: 3,
		Received: 3,
	}}
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(New(p, nil, "heliotherm", nil)))

	mfs, err := reg.Gather()
	require.NoError(t, err, "重复指标不应导致抓取失败")

	values := map[string]float64{}
	for _, mf := range mfs {
		values[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, 1.0, values["heliotherm_temp"])
	assert.NotContains(t, values, "heliotherm_bad name")
	assert.Equal(t, 3.0, values["heliotherm_values_received"])
}

func TestCollectorSkipsReservedNames(t *testing.T) {
	p := &stubPoller{res: poller.PollResult{
		Outcome: metrics.ResultOK,
		Samples: []poller.Sample{
			{Name: "heliotherm_values_received", Help: "device value", Value: 42},
			{Name: "heliotherm_gathering_errors_total", Help: "device value", Value: 7},
			{Name: "heliotherm_poll_duration_seconds_count", Help: "device value", Value: 9},
			{Name: "heliotherm_temp", Help: "Temp", Value: 1},
		},
		Expected: 4,
		Received: 4,
	}}
	pm := metrics.NewPollMetrics("heliotherm", nil)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(New(p, pm, "heliotherm", nil)))

	mfs, err := reg.Gather()
	require.NoError(t, err, "与自身指标同名的设备值不应导致抓取失败")

	byName := map[string]*dto.MetricFamily{}
	for _, mf := range mfs {
		byName[mf.GetName()] = mf
	}
	require.Contains(t, byName, "heliotherm_values_received")
	assert.Equal(t, 4.0, byName["heliotherm_values_received"].GetMetric()[0].GetGauge().GetValue())
	require.Contains(t, byName, "heliotherm_gathering_errors_total")
	assert.Equal(t, dto.MetricType_COUNTER, byName["heliotherm_gathering_errors_total"].GetType())
	assert.NotContains(t, byName, "heliotherm_poll_duration_seconds_count")
	assert.Contains(t, byName, "heliotherm_temp")
}

// countingPoller 模拟轮询器在周期内累加计数器
type countingPoller struct {
	pm  *metrics.PollMetrics
	res poller.PollResult
}

func (c *countingPoller) Poll(context.Context) poller.PollResult {
	c.pm.GatheringErrors.Inc()
	c.pm.Cycles.WithLabelValues(c.res.Outcome).Inc()
	return c.res
}

func TestCollectorEmitsPollMetricsAfterPoll(t *testing.T) {
	pm := metrics.NewPollMetrics("heliotherm", nil)
	p := &countingPoller{pm: pm, res: poller.PollResult{Outcome: metrics.ResultAborted}}
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(New(p, pm, "heliotherm", nil)))

	expected := `
# HELP heliotherm_gathering_errors_total Amount of gathering runs with failures.
# TYPE heliotherm_gathering_errors_total counter
heliotherm_gathering_errors_total 1
# HELP heliotherm_poll_cycles_total Polling cycles by result.
# TYPE heliotherm_poll_cycles_total counter
heliotherm_poll_cycles_total{result="aborted"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"heliotherm_gathering_errors_total", "heliotherm_poll_cycles_total"), "首次抓取即反映本周期计数")
}
