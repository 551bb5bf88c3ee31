package poller

import (
	"errors"
	"time"

	"github.com/taoyao-code/heliotherm-exporter/internal/metrics"
)

// Sample 一个无标签 gauge 观测值
type Sample struct {
	Name  string // 完整指标名（含命名空间）
	Help  string
	Value float64
}

// PollResult 一个轮询周期的产出
type PollResult struct {
	CycleID string
	At      time.Time
	Outcome string // metrics.ResultOK | ResultAborted | ResultFailed
	Cached  bool   // 节流期间重复返回上一次结果

	Samples  []Sample
	Expected int // 配置的数值个数
	Received int // 本周期实际读到的数值个数

	CommErrors int   // 本周期新增的通信错误
	Err        error // 周期中止/失败原因
}

// Complete 周期走完登录到登出（允许部分数值失败）
func (r PollResult) Complete() bool {
	return r.Outcome == metrics.ResultOK
}

// Status 最近一次周期的摘要，供健康检查读取
type Status struct {
	At         time.Time
	Outcome    string
	Expected   int
	Received   int
	CommErrors int
	Err        error
}

var (
	// ErrLoginFailed 登录（含 modem 握手重试）失败，本周期放弃
	ErrLoginFailed = errors.New("login unsuccessful")
)

// phase 轮询周期状态
type phase int

const (
	phaseIdle phase = iota
	phaseLoggingIn
	phaseHandshaking
	phaseLoggedIn
	phaseQuerying
	phaseBatchQuerying
	phaseLoggingOut
	phaseDone
	phaseAborted
	phaseFailed
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseLoggingIn:
		return "logging_in"
	case phaseHandshaking:
		return "handshaking"
	case phaseLoggedIn:
		return "logged_in"
	case phaseQuerying:
		return "querying"
	case phaseBatchQuerying:
		return "batch_querying"
	case phaseLoggingOut:
		return "logging_out"
	case phaseDone:
		return "done"
	case phaseAborted:
		return "aborted"
	case phaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}
