package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

// defaultReadPoll 单次 Read 的缺省等待
const defaultReadPoll = 10 * time.Millisecond

// TCP 串口转 TCP 网关连接
type TCP struct {
	conn net.Conn
	poll time.Duration
}

// DialTCP 连接网关；poll 为单次 Read 的最长等待
func DialTCP(ctx context.Context, addr string, dialTimeout, poll time.Duration) (*TCP, error) {
	d := net.Dialer{Timeout: dialTimeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCP(c, poll), nil
}

// NewTCP 包装已建立的连接
func NewTCP(c net.Conn, poll time.Duration) *TCP {
	if poll <= 0 {
		poll = defaultReadPoll
	}
	return &TCP{conn: c, poll: poll}
}

func (t *TCP) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

// Read 读超时视为"暂无数据"
func (t *TCP) Read(max int) ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.poll)); err != nil {
		return nil, err
	}
	buf := make([]byte, max)
	n, err := t.conn.Read(buf)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		err = nil
	}
	return buf[:n], err
}

func (t *TCP) Close() error {
	return t.conn.Close()
}
