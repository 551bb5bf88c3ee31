package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/heliotherm-exporter/internal/protocol/heliotherm"
)

// valuesFile 轮询数值列表文件格式：
//
//	values:
//	  - M0
//	  - S223
type valuesFile struct {
	Values []string `yaml:"values"`
}

// LoadValuesFile 从 YAML 文件读取轮询数值列表（保持文件中的顺序）
func LoadValuesFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values file: %w", err)
	}
	var vf valuesFile
	if err := yaml.Unmarshal(b, &vf); err != nil {
		return nil, fmt.Errorf("parse values file %s: %w", path, err)
	}
	return vf.Values, nil
}

// ValueKeys 解析配置中的数值标识，顺序与配置一致
func (c PollConfig) ValueKeys() ([]heliotherm.ValueKey, error) {
	keys := make([]heliotherm.ValueKey, 0, len(c.Values))
	for _, s := range c.Values {
		k, err := heliotherm.ParseValueKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
