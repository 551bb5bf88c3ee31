package heliotherm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// 文本命令
var (
	CmdLogin  = []byte("LIN;")
	CmdLogout = []byte("LOUT;")
	ReplyOK   = []byte("OK;")

	// DefaultConnectString 网关需要一次伪造的 modem 握手才会转发登录
	DefaultConnectString = []byte("\r\nCONNECT 19200\r\n")
)

const fieldName = "NAME"

var (
	ErrReplyMalformed = errors.New("malformed reply")
	ErrDeviceError    = errors.New("device error reply")
)

// NamedQuery 单值查询命令，例如 "MP,NR=0;"
func NamedQuery(k ValueKey) []byte {
	return []byte(fmt.Sprintf("%cP,NR=%d;", k.Kind, k.ID))
}

// BatchQuery 批量读取测量值命令，例如 "MR,0,2,3;"
func BatchQuery(ids []int) []byte {
	var sb strings.Builder
	sb.WriteString("MR")
	for _, id := range ids {
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(id))
	}
	sb.WriteByte(';')
	return []byte(sb.String())
}

// Reply 按逗号切分后的应答文本
// 首段为应答类型（MP/SP/MA/ERR），其后是 KEY=VALUE 字段或位置参数
type Reply struct {
	Type   string
	Fields map[string]string
	Args   []string
}

// ParseReply 宽松的字段切分
// NAME 取值字符集开放（空格、标点、逗号），其后不含 '=' 的片段视为名称中的逗号；
// 其余字段后的此类片段作为位置参数，不并入数值
func ParseReply(payload []byte) Reply {
	s := strings.TrimSuffix(strings.TrimSpace(DecodeText(payload)), ";")
	parts := strings.Split(s, ",")
	r := Reply{Type: parts[0], Fields: make(map[string]string)}

	lastKey := ""
	for _, p := range parts[1:] {
		if key, val, ok := strings.Cut(p, "="); ok && key != "" {
			key = strings.ToUpper(strings.TrimSpace(key))
			r.Fields[key] = val
			lastKey = key
			continue
		}
		if lastKey == fieldName {
			r.Fields[lastKey] += "," + p
			continue
		}
		r.Args = append(r.Args, p)
	}
	return r
}

// IsError 设备错误应答以 "ERR," 开头
func IsError(payload []byte) bool {
	return strings.HasPrefix(string(payload), "ERR,")
}

// NamedValue 单值查询结果
type NamedValue struct {
	NR    int
	Name  string
	Value float64
}

// ParseNamedReply 解析 "MP,NR=0,ID=0,NAME=Temp. Aussen,LEN=4,...,VAL=4.8,...;"
func ParseNamedReply(payload []byte) (NamedValue, error) {
	if IsError(payload) {
		return NamedValue{}, fmt.Errorf("%w: %s", ErrDeviceError, payload)
	}
	r := ParseReply(payload)

	nrText, ok := r.Fields["NR"]
	if !ok {
		return NamedValue{}, fmt.Errorf("%w: missing NR", ErrReplyMalformed)
	}
	nr, err := parseID(nrText)
	if err != nil {
		return NamedValue{}, fmt.Errorf("%w: NR=%q", ErrReplyMalformed, nrText)
	}
	name, ok := r.Fields[fieldName]
	if !ok {
		return NamedValue{}, fmt.Errorf("%w: missing NAME", ErrReplyMalformed)
	}
	valText, ok := r.Fields["VAL"]
	if !ok {
		return NamedValue{}, fmt.Errorf("%w: missing VAL", ErrReplyMalformed)
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(valText), 64)
	if err != nil {
		return NamedValue{}, fmt.Errorf("%w: VAL=%q", ErrReplyMalformed, valText)
	}
	return NamedValue{NR: nr, Name: name, Value: val}, nil
}

// BatchValue 批量读取中的一条
type BatchValue struct {
	ID    int
	Value float64
}

// ParseBatchReply 解析 "MA,<id>,<value>,<ignored>;"，第三个参数含义未知，不解析
func ParseBatchReply(payload []byte) (BatchValue, error) {
	if IsError(payload) {
		return BatchValue{}, fmt.Errorf("%w: %s", ErrDeviceError, payload)
	}
	r := ParseReply(payload)
	if r.Type != "MA" || len(r.Args) < 2 {
		return BatchValue{}, fmt.Errorf("%w: %q", ErrReplyMalformed, payload)
	}
	id, err := parseID(r.Args[0])
	if err != nil {
		return BatchValue{}, fmt.Errorf("%w: id=%q", ErrReplyMalformed, r.Args[0])
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(r.Args[1]), 64)
	if err != nil {
		return BatchValue{}, fmt.Errorf("%w: value=%q", ErrReplyMalformed, r.Args[1])
	}
	return BatchValue{ID: id, Value: val}, nil
}

// parseID NR 按浮点解析，兼容 "16.0" 形式
func parseID(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) || f < 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return int(f), nil
}

// DecodeText 控制器以 ISO-8859-1 输出文本（如 "Kältekreis"），合法 UTF-8 原样返回
func DecodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "?")
	}
	return string(out)
}
