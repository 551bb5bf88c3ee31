package heliotherm

import (
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultResponseTimeout 无新数据到达时的等待上限
	DefaultResponseTimeout = time.Second

	// UnknownCount 批量查询未知应答帧数
	UnknownCount = -1

	readChunk = 1024
)

// Conn 字节流通道：Read 立即返回当前可读数据（可能为空）
type Conn interface {
	Write(p []byte) (int, error)
	Read(max int) ([]byte, error)
}

// Counter 通信错误计数（prometheus.Counter 满足该接口）
type Counter interface {
	Inc()
}

// Client 请求/应答收发器，每个轮询周期一个实例，不可并发使用
type Client struct {
	conn    Conn
	errs    Counter
	timeout time.Duration
	log     *zap.Logger
}

// NewClient 创建收发器；timeout<=0 时使用 DefaultResponseTimeout
func NewClient(conn Conn, errs Counter, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{conn: conn, errs: errs, timeout: timeout, log: log}
}

type readStatus int

const (
	readOK   readStatus = iota
	readNone            // 超时内未收到任何字节
	readBad             // 成帧/校验/前缀错误，已计数
)

// Query 发送一条命令并读取一帧应答
// 无应答时返回 nil；tolerateEmpty 为 false 时计一次通信错误
func (c *Client) Query(cmd []byte, timeout time.Duration, tolerateEmpty bool) []byte {
	if timeout <= 0 {
		timeout = c.timeout
	}
	if !c.send(cmd) {
		return nil
	}

	payload, rest, st := c.readFrame(nil, timeout, true)
	if st == readNone {
		if !tolerateEmpty {
			c.errs.Inc()
			c.log.Info("received no response", zap.ByteString("cmd", cmd))
		}
		return nil
	}
	if len(rest) > 0 {
		c.log.Debug("dropping trailing bytes", zap.String("packet", hex.EncodeToString(rest)))
	}
	return payload
}

// QueryMulti 发送一条命令并收集多帧应答，直到收满 expected 帧或无更多数据
// expected 为 UnknownCount 时一直读到空闲超时
func (c *Client) QueryMulti(cmd []byte, expected int, tolerateEmpty bool) [][]byte {
	if !c.send(cmd) {
		return nil
	}

	var (
		out [][]byte
		buf []byte
	)
	for expected < 0 || len(out) < expected {
		last := expected >= 0 && len(out) == expected-1
		payload, rest, st := c.readFrame(buf, c.timeout, last)
		buf = rest
		if st != readOK {
			break
		}
		out = append(out, payload)
	}

	switch {
	case len(out) == 0:
		if !tolerateEmpty {
			c.errs.Inc()
			c.log.Info("received no response", zap.ByteString("cmd", cmd))
		}
	case expected >= 0 && len(out) != expected:
		c.errs.Inc()
		c.log.Info("unexpected reply count",
			zap.ByteString("cmd", cmd), zap.Int("expected", expected), zap.Int("received", len(out)))
	}
	if len(buf) > 0 {
		c.log.Debug("dropping trailing bytes", zap.String("packet", hex.EncodeToString(buf)))
	}
	return out
}

// WriteRaw 直接写入未成帧的字节（modem 握手串）
func (c *Client) WriteRaw(b []byte) error {
	_, err := c.conn.Write(b)
	if err != nil {
		c.errs.Inc()
		c.log.Info("write failed", zap.Error(err))
	}
	return err
}

func (c *Client) send(cmd []byte) bool {
	frame, err := EncodeCommand(cmd)
	if err != nil {
		c.errs.Inc()
		c.log.Warn("encode command failed", zap.ByteString("cmd", cmd), zap.Error(err))
		return false
	}
	c.log.Debug("sending query", zap.ByteString("cmd", cmd), zap.String("packet", hex.EncodeToString(frame)))
	if _, err := c.conn.Write(frame); err != nil {
		c.errs.Inc()
		c.log.Info("write failed", zap.ByteString("cmd", cmd), zap.Error(err))
		return false
	}
	return true
}

// readFrame 从传输层拉取字节直到能解出一帧或空闲超时
// 每收到新字节都会刷新超时。last 表示本次交互不再有后续帧：
// 读流暂停（一次读取无新字节）时，len=0 的帧按剩余全部字节解出；
// 否则要等到空闲超时后才这样处理
func (c *Client) readFrame(buf []byte, timeout time.Duration, last bool) ([]byte, []byte, readStatus) {
	deadline := time.Now().Add(timeout)
	for {
		if len(buf) >= MinFrameLen {
			f, rest, err := Decode(buf, false)
			if !errors.Is(err, ErrIncomplete) {
				return c.finish(buf, f, rest, err)
			}
		}
		if time.Now().After(deadline) {
			break
		}
		chunk, err := c.conn.Read(readChunk)
		if len(chunk) > 0 {
			buf = append(buf, chunk...)
			deadline = time.Now().Add(timeout)
		} else if last && len(buf) >= MinFrameLen {
			f, rest, derr := Decode(buf, true)
			if !errors.Is(derr, ErrIncomplete) {
				return c.finish(buf, f, rest, derr)
			}
		}
		if err != nil {
			c.log.Info("read failed", zap.Error(err))
			break
		}
	}

	if len(buf) == 0 {
		return nil, nil, readNone
	}
	f, rest, err := Decode(buf, true)
	if errors.Is(err, ErrIncomplete) {
		c.errs.Inc()
		c.log.Info("not enough data for a full packet", zap.String("packet", hex.EncodeToString(buf)))
		return nil, nil, readBad
	}
	return c.finish(buf, f, rest, err)
}

func (c *Client) finish(buf []byte, f *Frame, rest []byte, err error) ([]byte, []byte, readStatus) {
	if err != nil {
		c.errs.Inc()
		c.log.Info("dropping packet", zap.Error(err), zap.String("packet", hex.EncodeToString(buf)))
		return nil, rest, readBad
	}
	c.log.Debug("received payload", zap.ByteString("payload", f.Payload), zap.Stringer("variant", f.Variant))
	return f.Payload, rest, readOK
}
