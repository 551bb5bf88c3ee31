package heliotherm

// Checksum 计算设备的 1 字节校验
// 算法：c ^= b，再 c ^= (b<<1)&0xFF；不是多项式 CRC，移位结果按 8 位截断
func Checksum(data []byte) byte {
	var c byte
	for _, b := range data {
		c ^= b
		c ^= b << 1
	}
	return c
}

// VerifyChecksum 验证以校验字节结尾的数据
func VerifyChecksum(dataWithChecksum []byte) error {
	if len(dataWithChecksum) < 1 {
		return ErrIncomplete
	}
	pos := len(dataWithChecksum) - 1
	if dataWithChecksum[pos] != Checksum(dataWithChecksum[:pos]) {
		return ErrChecksum
	}
	return nil
}
