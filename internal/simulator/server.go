package simulator

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server 以串口转 TCP 网关的形式暴露模拟设备，同一时刻只服务一个连接
type Server struct {
	dev *Device
	ln  net.Listener
	log *zap.Logger

	mu   sync.Mutex
	conn net.Conn
}

// Listen 在 addr 上监听（"127.0.0.1:0" 取随机端口）
func Listen(addr string, dev *Device, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{dev: dev, ln: ln, log: log}, nil
}

// Addr 实际监听地址
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve 顺序接受连接直到 ctx 取消或 Close
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		s.handle(conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}
}

// Close 停止监听并断开当前连接
func (s *Server) Close() error {
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()
	return s.ln.Close()
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	log := s.log.With(zap.String("remote", conn.RemoteAddr().String()))
	log.Info("client connected")
	s.dev.Reset()

	var (
		buf   []byte
		chunk = make([]byte, 1024)
	)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			var out []byte
			out, buf = s.dev.Feed(append(buf, chunk[:n]...))
			if len(out) > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if _, werr := conn.Write(out); werr != nil {
					log.Info("write failed", zap.Error(werr))
					return
				}
			}
		}
		if err != nil {
			log.Info("client disconnected", zap.Error(err))
			return
		}
	}
}
