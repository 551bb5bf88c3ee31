package catalog

import (
	"strings"
	"sync"

	"github.com/taoyao-code/heliotherm-exporter/internal/protocol/heliotherm"
)

// DataValue 一个已解析出名称的设备数值
// DisplayName/MetricName 以首次观测为准，之后只更新 Value
type DataValue struct {
	Key         heliotherm.ValueKey
	DisplayName string
	MetricName  string
	Value       float64
	HasValue    bool
}

// Catalog 进程级数值目录：ValueKey -> DataValue，跨轮询周期保留，不淘汰
type Catalog struct {
	mu     sync.RWMutex
	values map[heliotherm.ValueKey]*DataValue
}

// New 创建空目录
func New() *Catalog {
	return &Catalog{values: make(map[heliotherm.ValueKey]*DataValue)}
}

// Lookup 返回目录项的副本
func (c *Catalog) Lookup(k heliotherm.ValueKey) (DataValue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[k]
	if !ok {
		return DataValue{}, false
	}
	return *v, true
}

// Upsert 首次出现时按 displayName 生成 MetricName；已存在时仅更新数值
func (c *Catalog) Upsert(k heliotherm.ValueKey, displayName string, value float64) DataValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[k]
	if !ok {
		v = &DataValue{Key: k, DisplayName: displayName, MetricName: MetricName(displayName)}
		if v.MetricName == "" {
			v.MetricName = strings.ToLower(k.String())
		}
		c.values[k] = v
	}
	v.Value = value
	v.HasValue = true
	return *v
}

// Update 仅更新已存在目录项的数值（批量读取应答不带名称）
func (c *Catalog) Update(k heliotherm.ValueKey, value float64) (DataValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[k]
	if !ok {
		return DataValue{}, false
	}
	v.Value = value
	v.HasValue = true
	return *v, true
}

// Len 目录项数量
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Snapshot 返回所有目录项副本（无序）
func (c *Catalog) Snapshot() []DataValue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]DataValue, 0, len(c.values))
	for _, v := range c.values {
		out = append(out, *v)
	}
	return out
}

var nameReplacer = strings.NewReplacer(
	" ", "_",
	".", "_",
	"(", "_",
	")", "_",
	":", "_",
	"-", "_",
	"%", "_prozent_",
	"/", "_pro_",
)

// MetricName 将设备显示名规范为指标名：小写，特殊字符替换为 '_'，
// '%' -> "_prozent_"，'/' -> "_pro_"，合并连续 '_' 并去掉首尾 '_'。
// 其余不在 [a-z0-9_] 内的字符同样替换为 '_'
func MetricName(displayName string) string {
	s := nameReplacer.Replace(strings.ToLower(displayName))

	var sb strings.Builder
	sb.Grow(len(s))
	prevUnderscore := false
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			r = '_'
		}
		if r == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		sb.WriteRune(r)
	}
	return strings.Trim(sb.String(), "_")
}
