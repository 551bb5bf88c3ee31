package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(agg *Aggregator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHTTPRoutes(r, agg)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHTTPRoutes(t *testing.T) {
	t.Run("降级仍返回200", func(t *testing.T) {
		r := newRouter(NewAggregator(&mockChecker{"gateway", StatusDegraded}))

		rr := get(r, "/health")
		require.Equal(t, http.StatusOK, rr.Code)
		var report HealthReport
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
		assert.Equal(t, StatusDegraded, report.Status)
		assert.Equal(t, StatusDegraded, report.Checks["gateway"].Status)

		assert.Equal(t, http.StatusOK, get(r, "/health/ready").Code)
	})

	t.Run("不健康返回503", func(t *testing.T) {
		r := newRouter(NewAggregator(&mockChecker{"gateway", StatusUnhealthy}))
		assert.Equal(t, http.StatusServiceUnavailable, get(r, "/health").Code)
		assert.Equal(t, http.StatusServiceUnavailable, get(r, "/health/ready").Code)
		assert.Equal(t, http.StatusOK, get(r, "/health/live").Code)
	})
}
