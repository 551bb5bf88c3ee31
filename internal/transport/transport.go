// Package transport 提供到热泵控制器的字节流通道：
// 串口转 TCP 网关，或本地串口。每个轮询周期打开一次，周期结束即关闭。
package transport

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/heliotherm-exporter/internal/config"
)

// Transport 双工字节通道
// Read 最多等待一个读轮询间隔，返回当前可读的字节（可能为空）
type Transport interface {
	Write(p []byte) (int, error)
	Read(max int) ([]byte, error)
	Close() error
}

// OpenFunc 打开一个 Transport
type OpenFunc func(ctx context.Context) (Transport, error)

// Dialer 按配置打开 Transport，连续失败时熔断
type Dialer struct {
	open    OpenFunc
	breaker *Breaker
	target  string
	log     *zap.Logger
}

// NewDialer 根据网关配置创建拨号器
func NewDialer(cfg cfgpkg.GatewayConfig, log *zap.Logger) (*Dialer, error) {
	var (
		open   OpenFunc
		target string
	)
	switch cfg.Type {
	case "tcp", "":
		target = cfg.Addr()
		open = func(ctx context.Context) (Transport, error) {
			return DialTCP(ctx, target, cfg.DialTimeout, cfg.ReadPoll)
		}
	case "serial":
		target = cfg.Device
		open = func(context.Context) (Transport, error) {
			return OpenSerial(cfg.Device, cfg.BaudRate, cfg.ReadPoll)
		}
	default:
		return nil, fmt.Errorf("unknown gateway type %q", cfg.Type)
	}
	return NewDialerFunc(target, open, NewBreaker(cfg.Breaker.Threshold, cfg.Breaker.Timeout), log), nil
}

// NewDialerFunc 使用自定义打开函数（测试、模拟器）
func NewDialerFunc(target string, open OpenFunc, breaker *Breaker, log *zap.Logger) *Dialer {
	if breaker == nil {
		breaker = NewBreaker(0, 0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dialer{open: open, breaker: breaker, target: target, log: log}
	breaker.SetStateChangeCallback(func(from, to State) {
		d.log.Warn("gateway breaker state changed",
			zap.String("target", target), zap.Stringer("from", from), zap.Stringer("to", to))
	})
	return d
}

// Dial 打开一个新的 Transport
func (d *Dialer) Dial(ctx context.Context) (Transport, error) {
	var t Transport
	err := d.breaker.Call(func() error {
		var err error
		t, err = d.open(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.target, err)
	}
	return t, nil
}

// Target 网关地址或串口设备
func (d *Dialer) Target() string { return d.target }

// BreakerState 熔断器当前状态
func (d *Dialer) BreakerState() State { return d.breaker.State() }

// BreakerStats 熔断器统计
func (d *Dialer) BreakerStats() BreakerStats { return d.breaker.Stats() }
