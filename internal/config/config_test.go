package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/heliotherm-exporter/internal/protocol/heliotherm"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HELIOTHERM_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err, "缺少配置文件时应回退到默认值")

	assert.Equal(t, ":9997", cfg.HTTP.Addr)
	assert.Equal(t, "tcp", cfg.Gateway.Type)
	assert.Equal(t, 4001, cfg.Gateway.Port)
	assert.Equal(t, 10*time.Millisecond, cfg.Gateway.ReadPoll)
	assert.Equal(t, time.Second, cfg.Protocol.ResponseTimeout)
	assert.Equal(t, "\r\nCONNECT 19200\r\n", cfg.Protocol.ConnectString)
	assert.Equal(t, DefaultValues, cfg.Poll.Values)
	assert.Equal(t, "heliotherm", cfg.Metrics.Namespace)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, "exporter.yaml", `
gateway:
  host: 192.168.1.50
  port: 4002
  breaker:
    threshold: 3
protocol:
  responseTimeout: 2s
poll:
  values: [M0, M3, S223]
  minInterval: 15s
`)
	t.Setenv("HELIOTHERM_GATEWAY_HOST", "gateway.local")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gateway.local", cfg.Gateway.Host, "环境变量覆盖文件")
	assert.Equal(t, 4002, cfg.Gateway.Port)
	assert.Equal(t, 3, cfg.Gateway.Breaker.Threshold)
	assert.Equal(t, 60*time.Second, cfg.Gateway.Breaker.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Protocol.ResponseTimeout)
	assert.Equal(t, 15*time.Second, cfg.Poll.MinInterval)
	assert.Equal(t, []string{"M0", "M3", "S223"}, cfg.Poll.Values)
	assert.Equal(t, "gateway.local:4002", cfg.Gateway.Addr())
	require.NoError(t, Validate(cfg))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadValuesFile(t *testing.T) {
	values := writeFile(t, "values.yaml", "values:\n  - S10\n  - M0\n  - M1\n")
	path := writeFile(t, "exporter.yaml", "gateway:\n  host: gw\npoll:\n  valuesFile: "+values+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"S10", "M0", "M1"}, cfg.Poll.Values, "保持文件中的顺序")

	keys, err := cfg.Poll.ValueKeys()
	require.NoError(t, err)
	assert.Equal(t, heliotherm.ValueKey{Kind: heliotherm.KindSetting, ID: 10}, keys[0])
}

func TestLoadValuesFileInvalid(t *testing.T) {
	_, err := LoadValuesFile(writeFile(t, "values.yaml", "values: [M0"))
	assert.Error(t, err)

	_, err = LoadValuesFile(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
