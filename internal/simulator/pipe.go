package simulator

import (
	"errors"
	"sync"
	"time"
)

// ErrPipeClosed 对已关闭的 Pipe 读写
var ErrPipeClosed = errors.New("simulator: pipe closed")

// Pipe 内存中的设备连接，满足 transport.Transport，用于不经网络的端到端测试
type Pipe struct {
	dev  *Device
	poll time.Duration

	mu      sync.Mutex
	in      []byte
	pending []byte
	closed  bool
}

// NewPipe 打开一条新连接（设备会话状态随之重置）
func NewPipe(dev *Device) *Pipe {
	dev.Reset()
	return &Pipe{dev: dev, poll: time.Millisecond}
}

func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPipeClosed
	}
	var out []byte
	out, p.in = p.dev.Feed(append(p.in, b...))
	p.pending = append(p.pending, out...)
	return len(b), nil
}

// Read 无数据时等待一个轮询间隔后返回空
func (p *Pipe) Read(max int) ([]byte, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPipeClosed
	}
	if len(p.pending) == 0 {
		p.mu.Unlock()
		time.Sleep(p.poll)
		return nil, nil
	}
	n := min(max, len(p.pending))
	out := append([]byte(nil), p.pending[:n]...)
	p.pending = p.pending[n:]
	p.mu.Unlock()
	return out, nil
}

func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
