package app

import (
	"github.com/taoyao-code/heliotherm-exporter/internal/health"
)

// NewHealthAggregator 创建健康检查聚合器，目前只有网关链路一项
func NewHealthAggregator(status health.PollStatusSource, breaker health.BreakerSource) *health.Aggregator {
	return health.NewAggregator(health.NewGatewayChecker(status, breaker))
}
