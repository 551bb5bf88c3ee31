package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig 指标暴露 HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Path         string `mapstructure:"path"`
	Namespace    string `mapstructure:"namespace"`
	GoCollectors bool   `mapstructure:"goCollectors"`
}

// BreakerConfig 网关拨号熔断配置
type BreakerConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// GatewayConfig 串口网关（或本地串口）配置
type GatewayConfig struct {
	Type        string        `mapstructure:"type"` // tcp | serial
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Device      string        `mapstructure:"device"`
	BaudRate    int           `mapstructure:"baudRate"`
	DialTimeout time.Duration `mapstructure:"dialTimeout"`
	ReadPoll    time.Duration `mapstructure:"readPoll"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
}

// Addr 返回 host:port
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// ProtocolConfig 协议收发配置
type ProtocolConfig struct {
	ResponseTimeout time.Duration `mapstructure:"responseTimeout"`
	ConnectString   string        `mapstructure:"connectString"`
}

// PollConfig 轮询数值集合与节流
type PollConfig struct {
	Values      []string      `mapstructure:"values"`
	ValuesFile  string        `mapstructure:"valuesFile"`
	MinInterval time.Duration `mapstructure:"minInterval"`
}

// Config 顶层配置结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Poll     PollConfig     `mapstructure:"poll"`
}

// DefaultValues 默认轮询的数值
var DefaultValues = []string{
	"M0", "M1", "M2", "M3", "M4", "M5", "M6", "M18", "M19", "M22", "M31", "M47", "M48", "M56", "M63", "M67", "M69", "M71", "M72", "M73", "M74",
	"S10", "S11", "S13", "S14", "S69", "S76", "S153", "S155", "S171", "S172", "S173", "S200", "S223",
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试环境变量 HELIOTHERM_CONFIG；否则回退到 ./configs/exporter.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("HELIOTHERM_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("exporter")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// 环境变量覆盖：前缀 HELIOTHERM_，点号替换为下划线
	v.SetEnvPrefix("HELIOTHERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Poll.ValuesFile != "" {
		values, err := LoadValuesFile(cfg.Poll.ValuesFile)
		if err != nil {
			return nil, err
		}
		cfg.Poll.Values = values
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "heliotherm-exporter")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":9997")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "60s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "heliotherm")
	v.SetDefault("metrics.goCollectors", true)

	v.SetDefault("gateway.type", "tcp")
	v.SetDefault("gateway.host", "")
	v.SetDefault("gateway.port", 4001)
	v.SetDefault("gateway.device", "")
	v.SetDefault("gateway.baudRate", 38400)
	v.SetDefault("gateway.dialTimeout", "5s")
	v.SetDefault("gateway.readPoll", "10ms")
	v.SetDefault("gateway.breaker.threshold", 5)
	v.SetDefault("gateway.breaker.timeout", "60s")

	v.SetDefault("protocol.responseTimeout", "1s")
	v.SetDefault("protocol.connectString", "\r\nCONNECT 19200\r\n")

	v.SetDefault("poll.values", DefaultValues)
	v.SetDefault("poll.valuesFile", "")
	v.SetDefault("poll.minInterval", "0s")
}
