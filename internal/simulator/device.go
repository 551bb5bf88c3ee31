// Package simulator 热泵控制器行为模拟器
// 只模拟协议层行为（登录、单值查询、批量读取、错误帧），不做物理仿真
package simulator

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/taoyao-code/heliotherm-exporter/internal/protocol/heliotherm"
)

// 设备错误码
const (
	ErrCodeNotLoggedIn = 1
	ErrCodeUnknownCmd  = 2
	ErrCodeUnknownNR   = 5
)

// Point 一个数值点
type Point struct {
	Name  string
	Value float64
}

// Options 模拟器配置
type Options struct {
	Points map[heliotherm.ValueKey]Point

	// RequireHandshake 为 true 时，在收到 modem 握手串之前忽略登录
	RequireHandshake bool
	ConnectString    []byte

	// CorruptChecksum 对这些命令（如 "MP,NR=0;"）的应答写入错误校验字节
	CorruptChecksum map[string]bool
}

// DefaultPoints 常见测量值与设定值
func DefaultPoints() map[heliotherm.ValueKey]Point {
	return map[heliotherm.ValueKey]Point{
		{Kind: heliotherm.KindMeasured, ID: 0}:  {Name: "Temp. Aussen", Value: 4.8},
		{Kind: heliotherm.KindMeasured, ID: 1}:  {Name: "Temp. Brauchwasser", Value: 48.2},
		{Kind: heliotherm.KindMeasured, ID: 2}:  {Name: "Temp. Vorlauf", Value: 30.1},
		{Kind: heliotherm.KindMeasured, ID: 3}:  {Name: "Temp. Ruecklauf", Value: 26.4},
		{Kind: heliotherm.KindMeasured, ID: 16}: {Name: "Niederdruck (bar)", Value: 7.3},
		{Kind: heliotherm.KindSetting, ID: 13}:  {Name: "Betriebsart", Value: 1},
	}
}

// Device 单台控制器的协议状态机
type Device struct {
	mu         sync.Mutex
	opts       Options
	handshaken bool
	loggedIn   bool
	commands   []string
	log        *zap.Logger
}

// NewDevice 创建模拟设备
func NewDevice(opts Options, log *zap.Logger) *Device {
	if opts.Points == nil {
		opts.Points = DefaultPoints()
	}
	if len(opts.ConnectString) == 0 {
		opts.ConnectString = heliotherm.DefaultConnectString
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Device{opts: opts, log: log}
}

// SetValue 修改（或新增）一个数值点的值
func (d *Device) SetValue(k heliotherm.ValueKey, v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.opts.Points[k]
	if p.Name == "" {
		p.Name = k.String()
	}
	p.Value = v
	d.opts.Points[k] = p
}

// Reset 新连接开始时清除会话状态
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handshaken = false
	d.loggedIn = false
}

// Commands 迄今收到的命令（按顺序）
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// Feed 消费收到的字节，返回需要回写的应答与未消费的剩余字节
func (d *Device) Feed(buf []byte) (out []byte, rest []byte) {
	for len(buf) > 0 {
		idx := bytes.Index(buf, heliotherm.ControlPreamble[:])
		if idx < 0 {
			d.scanRaw(buf)
			// 保留可能被截断的帧头
			if len(buf) >= heliotherm.PreambleLen {
				buf = buf[len(buf)-heliotherm.PreambleLen+1:]
			}
			return out, buf
		}
		if idx > 0 {
			d.scanRaw(buf[:idx])
			buf = buf[idx:]
		}

		cmd, next, err := heliotherm.DecodeCommand(buf)
		switch {
		case errors.Is(err, heliotherm.ErrIncomplete):
			return out, buf
		case err != nil:
			d.log.Debug("drop bad command frame", zap.Error(err))
			buf = buf[1:]
			continue
		}
		buf = next
		out = append(out, d.Handle(cmd)...)
	}
	return out, nil
}

// scanRaw 帧之外的原始字节，只关心 modem 握手串
func (d *Device) scanRaw(b []byte) {
	marker := bytes.TrimSpace(d.opts.ConnectString)
	if len(marker) == 0 || !bytes.Contains(b, marker) {
		return
	}
	d.mu.Lock()
	d.handshaken = true
	d.mu.Unlock()
	d.log.Debug("connect string received")
}

// Handle 处理一条命令，返回编码后的应答帧（可能为空）
func (d *Device) Handle(cmd []byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	text := string(cmd)
	d.commands = append(d.commands, text)
	d.log.Debug("command", zap.String("cmd", text))

	var frames [][]byte
	switch {
	case text == string(heliotherm.CmdLogin):
		if d.opts.RequireHandshake && !d.handshaken {
			return nil
		}
		d.loggedIn = true
		frames = append(frames, okFrame())
	case text == string(heliotherm.CmdLogout):
		d.loggedIn = false
		frames = append(frames, okFrame())
	case !d.loggedIn:
		frames = append(frames, errFrame(ErrCodeNotLoggedIn))
	case strings.HasPrefix(text, "MP,") || strings.HasPrefix(text, "SP,"):
		frames = append(frames, d.named(text))
	case strings.HasPrefix(text, "MR,"):
		frames = append(frames, d.batch(text)...)
	default:
		frames = append(frames, errFrame(ErrCodeUnknownCmd))
	}

	if d.opts.CorruptChecksum[text] {
		for _, f := range frames {
			f[len(f)-1] ^= 0xFF
		}
	}
	return bytes.Join(frames, nil)
}

func (d *Device) named(text string) []byte {
	r := heliotherm.ParseReply([]byte(text))
	nr, err := strconv.Atoi(r.Fields["NR"])
	if err != nil {
		return errFrame(ErrCodeUnknownCmd)
	}
	k := heliotherm.ValueKey{Kind: heliotherm.Kind(text[0]), ID: nr}
	p, ok := d.opts.Points[k]
	if !ok {
		return errFrame(ErrCodeUnknownNR)
	}
	return replyFrame(heliotherm.VariantNormal, fmt.Sprintf("%s,NR=%d,ID=%d,NAME=%s,LEN=4,TP=0,BI=0,VAL=%s;\r\n",
		r.Type, nr, nr, p.Name, formatValue(p.Value)))
}

func (d *Device) batch(text string) [][]byte {
	r := heliotherm.ParseReply([]byte(text))
	frames := make([][]byte, 0, len(r.Args))
	for _, a := range r.Args {
		id, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			frames = append(frames, errFrame(ErrCodeUnknownCmd))
			continue
		}
		p, ok := d.opts.Points[heliotherm.ValueKey{Kind: heliotherm.KindMeasured, ID: id}]
		if !ok {
			frames = append(frames, errFrame(ErrCodeUnknownNR))
			continue
		}
		frames = append(frames, replyFrame(heliotherm.VariantNormal,
			fmt.Sprintf("MA,%d,%s,0;\r\n", id, formatValue(p.Value))))
	}
	return frames
}

// Keys 所有数值点，按类型与编号排序
func (d *Device) Keys() []heliotherm.ValueKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]heliotherm.ValueKey, 0, len(d.opts.Points))
	for k := range d.opts.Points {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func okFrame() []byte {
	return replyFrame(heliotherm.VariantNormal, "OK;\r\n")
}

// errFrame 错误应答使用 VariantB 且 len=0，与真实设备一致
func errFrame(code int) []byte {
	p := heliotherm.VariantB.Preamble()
	f := append(p[:], 0x00, heliotherm.Prefix)
	f = append(f, fmt.Sprintf("ERR,%d;\r\n", code)...)
	return append(f, heliotherm.Checksum(f))
}

func replyFrame(v heliotherm.Variant, payload string) []byte {
	f, err := heliotherm.EncodeReply(v, []byte(payload))
	if err != nil {
		// 模拟器数值表内容固定，超长说明名称配置错误
		return errFrame(ErrCodeUnknownCmd)
	}
	return f
}
