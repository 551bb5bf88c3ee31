package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollMetricsRegistered(t *testing.T) {
	reg := NewRegistry(false)
	m := NewPollMetrics("heliotherm", reg)

	m.CommunicationErrors.Inc()
	m.GatheringErrors.Add(2)
	m.Cycles.WithLabelValues(ResultOK).Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommunicationErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GatheringErrors))

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "heliotherm_communication_errors_total 1"))
	assert.True(t, strings.Contains(body, "heliotherm_gathering_errors_total 2"))
	assert.True(t, strings.Contains(body, `heliotherm_poll_cycles_total{result="ok"} 1`))
}

func TestNewPollMetricsWithoutRegistry(t *testing.T) {
	m := NewPollMetrics("x", nil)
	m.CommunicationErrors.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommunicationErrors))
	assert.Equal(t, 3, testutil.CollectAndCount(m), "未使用的 result 标签不输出")
}

func TestPollMetricsNames(t *testing.T) {
	m := NewPollMetrics("heliotherm", nil)
	assert.Contains(t, m.Names(), "heliotherm_gathering_errors_total")
	assert.Contains(t, m.Names(), "heliotherm_poll_duration_seconds")
	assert.Contains(t, m.Names(), "heliotherm_poll_duration_seconds_count")
}
