package heliotherm

import (
	"bytes"
	"errors"
	"fmt"
)

// 帧布局：
// preamble[6] | len[1] | prefix(0x7E) | payload[len-1] | checksum[1]
// len 只统计 prefix + payload，不含帧头与校验字节
const (
	PreambleLen = 6
	HeaderLen   = PreambleLen + 1 // preamble + len
	MinFrameLen = HeaderLen + 1   // 至少还需一个校验字节

	// Prefix 每个载荷的首字节
	Prefix byte = 0x7E

	// MaxCommandLen len 字段为 1 字节，扣除 prefix
	MaxCommandLen = 0xFF - 1
)

var (
	// ControlPreamble 下行控制帧头
	ControlPreamble = [PreambleLen]byte{0x02, 0xFD, 0xD0, 0xE0, 0x00, 0x00}

	// replySignature 应答帧头前 4 字节，用于零长度帧的边界查找
	replySignature = []byte{0x02, 0xFD, 0xE0, 0xD0}
)

// Variant 应答帧头变体（由第 5 字节区分，第 6 字节恒为 0）
type Variant byte

const (
	VariantNormal Variant = 0x00 // 常规应答
	VariantA      Variant = 0x04 // 部分数值应答，校验字节可能为 0
	VariantB      Variant = 0x02 // 错误类应答，len 可能为 0，校验不可信
	VariantC      Variant = 0x01 // 同 VariantB
)

func (v Variant) String() string {
	switch v {
	case VariantNormal:
		return "normal"
	case VariantA:
		return "variant_a"
	case VariantB:
		return "variant_b"
	case VariantC:
		return "variant_c"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(v))
	}
}

// lenientLength len=0 时需要按下一帧头推断长度
func (v Variant) lenientLength() bool { return v == VariantB || v == VariantC }

// Preamble 返回该变体的完整 6 字节应答帧头
func (v Variant) Preamble() [PreambleLen]byte {
	var p [PreambleLen]byte
	copy(p[:], replySignature)
	p[4] = byte(v)
	return p
}

// parseVariant 识别应答帧头，未知帧头返回 false
func parseVariant(b []byte) (Variant, bool) {
	if len(b) < PreambleLen || !bytes.Equal(b[:4], replySignature) || b[5] != 0x00 {
		return 0, false
	}
	switch v := Variant(b[4]); v {
	case VariantNormal, VariantA, VariantB, VariantC:
		return v, true
	}
	return 0, false
}

// Frame 解出的一帧
type Frame struct {
	Variant Variant
	Payload []byte // 已去掉 prefix 与结尾 CRLF
}

var (
	ErrIncomplete     = errors.New("incomplete frame")
	ErrBadPreamble    = errors.New("unexpected preamble")
	ErrZeroLength     = errors.New("zero-length frame")
	ErrChecksum       = errors.New("checksum mismatch")
	ErrPrefixMismatch = errors.New("unexpected prefix")
	ErrCommandTooLong = errors.New("command too long")
)

// EncodeCommand 构建下行命令帧
func EncodeCommand(cmd []byte) ([]byte, error) {
	return encode(ControlPreamble, cmd)
}

// EncodeReply 构建应答帧（模拟器与测试使用）
func EncodeReply(v Variant, payload []byte) ([]byte, error) {
	return encode(v.Preamble(), payload)
}

func encode(preamble [PreambleLen]byte, body []byte) ([]byte, error) {
	if len(body) > MaxCommandLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrCommandTooLong, len(body))
	}
	out := make([]byte, 0, HeaderLen+1+len(body)+1)
	out = append(out, preamble[:]...)
	out = append(out, byte(1+len(body)))
	out = append(out, Prefix)
	out = append(out, body...)
	return append(out, Checksum(out)), nil
}
