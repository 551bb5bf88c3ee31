package health

import (
	"context"
	"time"

	"github.com/taoyao-code/heliotherm-exporter/internal/metrics"
	"github.com/taoyao-code/heliotherm-exporter/internal/poller"
	"github.com/taoyao-code/heliotherm-exporter/internal/transport"
)

// PollStatusSource 最近一次轮询摘要
type PollStatusSource interface {
	Status() (poller.Status, bool)
}

// BreakerSource 网关拨号熔断器状态
type BreakerSource interface {
	BreakerStats() transport.BreakerStats
}

// GatewayChecker 根据最近一次轮询结果判断设备链路健康
type GatewayChecker struct {
	status  PollStatusSource
	breaker BreakerSource // 可为 nil
}

// NewGatewayChecker 创建网关健康检查器
func NewGatewayChecker(status PollStatusSource, breaker BreakerSource) *GatewayChecker {
	return &GatewayChecker{status: status, breaker: breaker}
}

// Name 返回检查器名称
func (c *GatewayChecker) Name() string {
	return "gateway"
}

// Check 执行健康检查
func (c *GatewayChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	details := map[string]any{}

	if c.breaker != nil {
		stats := c.breaker.BreakerStats()
		details["circuit_breaker_state"] = stats.State
		details["circuit_breaker_failures"] = stats.FailureCount
		if stats.State == transport.StateOpen.String() {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: "gateway circuit breaker open",
				Details: details,
				Latency: time.Since(start),
			}
		}
	}

	st, ok := c.status.Status()
	if !ok {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "no poll yet",
			Details: details,
			Latency: time.Since(start),
		}
	}

	details["last_poll"] = st.At
	details["outcome"] = st.Outcome
	details["values_expected"] = st.Expected
	details["values_received"] = st.Received
	details["communication_errors"] = st.CommErrors

	result := CheckResult{Status: StatusHealthy, Message: "ok", Details: details}
	switch {
	case st.Outcome != metrics.ResultOK:
		result.Status = StatusUnhealthy
		result.Message = st.Outcome
		if st.Err != nil {
			result.Message = st.Err.Error()
		}
	case st.CommErrors > 0 || st.Received < st.Expected:
		result.Status = StatusDegraded
		result.Message = "some values could not be read"
	}
	result.Latency = time.Since(start)
	return result
}
