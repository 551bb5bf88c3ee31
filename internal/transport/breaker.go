package transport

import (
	"errors"
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	StateClosed   State = iota // 正常拨号
	StateOpen                  // 连续失败，拒绝拨号
	StateHalfOpen              // 冷却结束，允许一次试探
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen 熔断器打开，本周期不再拨号
var ErrCircuitOpen = errors.New("gateway circuit breaker is open")

// Breaker 网关拨号熔断器
// 每个轮询周期最多拨号一次，因此半开状态只放行一次试探
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	tripCount    int64
	lastFailTime time.Time

	threshold int
	timeout   time.Duration

	onStateChange func(from, to State)
}

// NewBreaker 创建熔断器；threshold<=0 时默认 5，timeout<=0 时默认 60s
func NewBreaker(threshold int, timeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Breaker{threshold: threshold, timeout: timeout}
}

// Call 执行 fn，受熔断器保护
func (b *Breaker) Call(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(b.lastFailTime) > b.timeout {
			b.transitionTo(StateHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default:
		// 半开状态的试探尚未结束
		return ErrCircuitOpen
	}
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.transitionTo(StateClosed)
		return
	}

	b.failures++
	b.lastFailTime = time.Now()
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		if b.state != StateOpen {
			b.tripCount++
		}
		b.transitionTo(StateOpen)
	}
}

func (b *Breaker) transitionTo(s State) {
	if b.state == s {
		return
	}
	from := b.state
	b.state = s
	if b.onStateChange != nil {
		go b.onStateChange(from, s)
	}
}

// State 当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetStateChangeCallback 设置状态变化回调（异步调用）
func (b *Breaker) SetStateChangeCallback(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// BreakerStats 熔断器统计信息
type BreakerStats struct {
	State        string `json:"state"`
	FailureCount int    `json:"failure_count"`
	TripCount    int64  `json:"trip_count"`
}

// Stats 获取统计信息
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{State: b.state.String(), FailureCount: b.failures, TripCount: b.tripCount}
}
