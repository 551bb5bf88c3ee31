package heliotherm

import "bytes"

var crlf = []byte("\r\n")

// Decode 从累积缓冲中解析一帧，返回帧与本帧之后未消费的字节
//
// last 表示本次交互不再有后续帧，用于确定 len=0 的 VariantB/C 帧长度。
// 错误约定：
//   - ErrIncomplete：需要更多字节，rest 为原缓冲
//   - ErrPrefixMismatch：成帧正确但内容不符，本帧已消费，rest 为后续字节
//   - 其余错误：rest 为 nil，调用方丢弃已损坏的数据
func Decode(buf []byte, last bool) (*Frame, []byte, error) {
	if len(buf) < MinFrameLen {
		return nil, buf, ErrIncomplete
	}
	variant, ok := parseVariant(buf)
	if !ok {
		return nil, nil, ErrBadPreamble
	}

	size := int(buf[PreambleLen])
	if size == 0 {
		if !variant.lenientLength() {
			return nil, nil, ErrZeroLength
		}
		n, ok := resolveLength(buf, last)
		if !ok {
			return nil, buf, ErrIncomplete
		}
		size = n
	}

	end := HeaderLen + size
	if len(buf) < end+1 {
		return nil, buf, ErrIncomplete
	}

	sent := buf[end]
	if sent != Checksum(buf[:end]) && !acceptChecksum(variant, sent) {
		return nil, nil, ErrChecksum
	}

	rest := buf[end+1:]
	body := buf[HeaderLen:end]
	if len(body) == 0 || body[0] != Prefix {
		return nil, rest, ErrPrefixMismatch
	}

	payload := bytes.TrimSuffix(body[1:], crlf)
	return &Frame{Variant: variant, Payload: bytes.Clone(payload)}, rest, nil
}

// resolveLength 推断 len=0 帧的真实长度
// 优先以下一个应答帧头为界（其前一字节为本帧校验）；找不到时仅在 last 下取剩余全部
func resolveLength(buf []byte, last bool) (int, bool) {
	if idx := bytes.Index(buf[MinFrameLen:], replySignature); idx >= 0 {
		return idx, true
	}
	if last {
		return len(buf) - MinFrameLen, true
	}
	return 0, false
}

// acceptChecksum 设备对部分应答不计算有效校验
func acceptChecksum(v Variant, sent byte) bool {
	switch v {
	case VariantA:
		return sent == 0
	case VariantB, VariantC:
		return true
	}
	return false
}

// DecodeCommand 解析一条下行命令帧（模拟器侧），返回命令内容与剩余字节
// 命令帧没有变体与零长度规则，校验必须正确
func DecodeCommand(buf []byte) ([]byte, []byte, error) {
	if len(buf) < MinFrameLen {
		return nil, buf, ErrIncomplete
	}
	if !bytes.Equal(buf[:PreambleLen], ControlPreamble[:]) {
		return nil, nil, ErrBadPreamble
	}
	size := int(buf[PreambleLen])
	if size == 0 {
		return nil, nil, ErrZeroLength
	}
	end := HeaderLen + size
	if len(buf) < end+1 {
		return nil, buf, ErrIncomplete
	}
	if buf[end] != Checksum(buf[:end]) {
		return nil, nil, ErrChecksum
	}
	rest := buf[end+1:]
	if buf[HeaderLen] != Prefix {
		return nil, rest, ErrPrefixMismatch
	}
	return bytes.Clone(buf[HeaderLen+1 : end]), rest, nil
}
