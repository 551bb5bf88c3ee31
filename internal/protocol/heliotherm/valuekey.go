package heliotherm

import (
	"fmt"
	"strconv"
)

// Kind 数值类别
type Kind byte

const (
	KindMeasured Kind = 'M' // 测量值
	KindSetting  Kind = 'S' // 参数
)

// ValueKey 设备侧数值标识，例如 M0、S223
type ValueKey struct {
	Kind Kind
	ID   int
}

// ParseValueKey 解析 "M0" / "S223" 形式的字面量
func ParseValueKey(s string) (ValueKey, error) {
	if len(s) < 2 {
		return ValueKey{}, fmt.Errorf("value key %q: too short", s)
	}
	k := Kind(s[0])
	if k != KindMeasured && k != KindSetting {
		return ValueKey{}, fmt.Errorf("value key %q: unknown kind %q", s, s[0])
	}
	id, err := strconv.Atoi(s[1:])
	if err != nil || id < 0 {
		return ValueKey{}, fmt.Errorf("value key %q: invalid id", s)
	}
	return ValueKey{Kind: k, ID: id}, nil
}

// MustParseValueKeys 解析一组字面量，任一非法即 panic（仅用于常量表）
func MustParseValueKeys(ss ...string) []ValueKey {
	out := make([]ValueKey, 0, len(ss))
	for _, s := range ss {
		k, err := ParseValueKey(s)
		if err != nil {
			panic(err)
		}
		out = append(out, k)
	}
	return out
}

func (k ValueKey) String() string {
	return string(k.Kind) + strconv.Itoa(k.ID)
}
