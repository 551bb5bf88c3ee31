package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Serial 直连控制器的本地串口
type Serial struct {
	port serial.Port
}

// OpenSerial 打开串口（8N1）并设置读超时
func OpenSerial(device string, baudRate int, poll time.Duration) (*Serial, error) {
	if poll <= 0 {
		poll = defaultReadPoll
	}
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port: %w", err)
	}
	if err := port.SetReadTimeout(poll); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &Serial{port: port}, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Read 超时返回 0 字节、nil 错误
func (s *Serial) Read(max int) ([]byte, error) {
	buf := make([]byte, max)
	n, err := s.port.Read(buf)
	return buf[:n], err
}

func (s *Serial) Close() error {
	return s.port.Close()
}
