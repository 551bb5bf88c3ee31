package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taoyao-code/heliotherm-exporter/internal/metrics"
	"github.com/taoyao-code/heliotherm-exporter/internal/poller"
	"github.com/taoyao-code/heliotherm-exporter/internal/transport"
)

type fakeStatus struct {
	st poller.Status
	ok bool
}

func (f fakeStatus) Status() (poller.Status, bool) { return f.st, f.ok }

type fakeBreaker struct{ stats transport.BreakerStats }

func (f fakeBreaker) BreakerStats() transport.BreakerStats { return f.stats }

func TestGatewayChecker(t *testing.T) {
	closed := fakeBreaker{transport.BreakerStats{State: transport.StateClosed.String()}}
	now := time.Now()

	tests := []struct {
		name    string
		status  fakeStatus
		breaker BreakerSource
		want    Status
	}{
		{"尚未轮询", fakeStatus{}, closed, StatusHealthy},
		{"周期完整", fakeStatus{poller.Status{At: now, Outcome: metrics.ResultOK, Expected: 3, Received: 3}, true}, closed, StatusHealthy},
		{"部分数值失败", fakeStatus{poller.Status{At: now, Outcome: metrics.ResultOK, Expected: 3, Received: 2, CommErrors: 1}, true}, closed, StatusDegraded},
		{"登录失败", fakeStatus{poller.Status{At: now, Outcome: metrics.ResultAborted, Err: errors.New("login unsuccessful")}, true}, closed, StatusUnhealthy},
		{"熔断打开", fakeStatus{poller.Status{At: now, Outcome: metrics.ResultOK, Expected: 1, Received: 1}, true},
			fakeBreaker{transport.BreakerStats{State: transport.StateOpen.String(), FailureCount: 5}}, StatusUnhealthy},
		{"无熔断器", fakeStatus{poller.Status{At: now, Outcome: metrics.ResultOK, Expected: 1, Received: 1}, true}, nil, StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewGatewayChecker(tt.status, tt.breaker)
			res := c.Check(context.Background())
			assert.Equal(t, tt.want, res.Status, res.Message)
			assert.Equal(t, "gateway", c.Name())
		})
	}
}

func TestGatewayCheckerMessage(t *testing.T) {
	c := NewGatewayChecker(fakeStatus{poller.Status{Outcome: metrics.ResultAborted, Err: errors.New("login unsuccessful")}, true}, nil)
	res := c.Check(context.Background())
	assert.Equal(t, "login unsuccessful", res.Message)
	assert.Equal(t, metrics.ResultAborted, res.Details["outcome"])
}
