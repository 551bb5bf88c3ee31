package config

import (
	"errors"
	"fmt"
)

// Validate 启动前校验配置，任何错误都应阻止进程启动
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	g := cfg.Gateway
	switch g.Type {
	case "tcp":
		if g.Host == "" {
			return errors.New("gateway.host is required for tcp gateway")
		}
		if g.Port <= 0 || g.Port > 65535 {
			return fmt.Errorf("gateway.port %d out of range", g.Port)
		}
	case "serial":
		if g.Device == "" {
			return errors.New("gateway.device is required for serial gateway")
		}
		if g.BaudRate <= 0 {
			return fmt.Errorf("gateway.baudRate %d must be > 0", g.BaudRate)
		}
	default:
		return fmt.Errorf("gateway.type %q: must be tcp or serial", g.Type)
	}
	if g.ReadPoll <= 0 {
		return errors.New("gateway.readPoll must be > 0")
	}

	if cfg.Protocol.ResponseTimeout <= 0 {
		return errors.New("protocol.responseTimeout must be > 0")
	}
	if cfg.Poll.MinInterval < 0 {
		return errors.New("poll.minInterval must be >= 0")
	}
	if len(cfg.Poll.Values) == 0 {
		return errors.New("poll.values must not be empty")
	}
	if _, err := cfg.Poll.ValueKeys(); err != nil {
		return fmt.Errorf("poll.values: %w", err)
	}
	return nil
}
