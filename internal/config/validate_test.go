package config

import (
	"testing"
	"time"
)

// validConfig 返回一个可通过校验的最小配置
func validConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Type:     "tcp",
			Host:     "gw",
			Port:     4001,
			ReadPoll: 10 * time.Millisecond,
		},
		Protocol: ProtocolConfig{ResponseTimeout: time.Second},
		Poll:     PollConfig{Values: []string{"M0", "S223"}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "有效配置", mutate: func(c *Config) {}},
		{name: "串口网关", mutate: func(c *Config) {
			c.Gateway.Type = "serial"
			c.Gateway.Device = "/dev/ttyUSB0"
			c.Gateway.BaudRate = 38400
		}},
		{name: "未知网关类型", mutate: func(c *Config) { c.Gateway.Type = "udp" }, wantErr: true},
		{name: "缺少主机", mutate: func(c *Config) { c.Gateway.Host = "" }, wantErr: true},
		{name: "端口越界", mutate: func(c *Config) { c.Gateway.Port = 70000 }, wantErr: true},
		{name: "串口缺少设备", mutate: func(c *Config) {
			c.Gateway.Type = "serial"
			c.Gateway.BaudRate = 38400
		}, wantErr: true},
		{name: "串口波特率为0", mutate: func(c *Config) {
			c.Gateway.Type = "serial"
			c.Gateway.Device = "/dev/ttyUSB0"
		}, wantErr: true},
		{name: "读轮询为0", mutate: func(c *Config) { c.Gateway.ReadPoll = 0 }, wantErr: true},
		{name: "应答超时为0", mutate: func(c *Config) { c.Protocol.ResponseTimeout = 0 }, wantErr: true},
		{name: "节流间隔为负", mutate: func(c *Config) { c.Poll.MinInterval = -time.Second }, wantErr: true},
		{name: "空数值列表", mutate: func(c *Config) { c.Poll.Values = nil }, wantErr: true},
		{name: "非法数值标识", mutate: func(c *Config) { c.Poll.Values = []string{"M0", "X1"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := Validate(nil); err == nil {
		t.Fatal("nil config should fail")
	}
}
