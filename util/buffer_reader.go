package util

import "errors"

// ErrShortBuffer 缓冲区长度不足
var ErrShortBuffer = errors.New("buffer too short")

func ReadBytes(buff []byte, cursor int, offset int) (int, []byte) {
	if offset <= 0 {
		return cursor, nil
	}
	return cursor + offset, buff[cursor : cursor+offset]
}

func ReadByte(buff []byte, cursor int) (int, byte) {
	return cursor + 1, buff[cursor]
}

func ReadUB2(buff []byte, cursor int) (int, uint16) {
	i := uint16(buff[cursor])
	i |= uint16(buff[cursor+1]) << 8
	return cursor + 2, i
}

func ReadUB3(buff []byte, cursor int) (int, uint32) {
	i := uint32(buff[cursor])
	i |= uint32(buff[cursor+1]) << 8
	i |= uint32(buff[cursor+2]) << 16
	return cursor + 3, i
}

func ReadUB4(buff []byte, cursor int) (int, uint32) {
	i := uint32(buff[cursor])
	i |= uint32(buff[cursor+1]) << 8
	i |= uint32(buff[cursor+2]) << 16
	i |= uint32(buff[cursor+3]) << 24
	return cursor + 4, i
}

func ReadUB8(buff []byte, cursor int) (int, uint64) {
	i := uint64(buff[cursor])
	i |= uint64(buff[cursor+1]) << 8
	i |= uint64(buff[cursor+2]) << 16
	i |= uint64(buff[cursor+3]) << 24
	i |= uint64(buff[cursor+4]) << 32
	i |= uint64(buff[cursor+5]) << 40
	i |= uint64(buff[cursor+6]) << 48
	i |= uint64(buff[cursor+7]) << 56
	return cursor + 8, i
}

// ReadBE2 大端读取2字节，LOB定位符使用网络字节序
func ReadBE2(buff []byte, cursor int) (int, uint16) {
	return cursor + 2, uint16(buff[cursor])<<8 | uint16(buff[cursor+1])
}

// ReadBE4 大端读取4字节
func ReadBE4(buff []byte, cursor int) (int, uint32) {
	i := uint32(buff[cursor]) << 24
	i |= uint32(buff[cursor+1]) << 16
	i |= uint32(buff[cursor+2]) << 8
	i |= uint32(buff[cursor+3])
	return cursor + 4, i
}

// ReadBE8 大端读取8字节
func ReadBE8(buff []byte, cursor int) (int, uint64) {
	var i uint64
	for k := 0; k < 8; k++ {
		i = i<<8 | uint64(buff[cursor+k])
	}
	return cursor + 8, i
}

// ReadLength 读取长度编码整数，0xFB(NULL)返回 isNull=true
//
// 前缀被截断时返回的游标越过缓冲区末尾，调用方据此判断包不完整。
func ReadLength(buff []byte, cursor int) (int, uint64, bool) {
	if cursor >= len(buff) {
		return cursor, 0, false
	}
	length := buff[cursor]
	cursor++
	if width := lengthWidth(length); cursor+width > len(buff) {
		return cursor + width, 0, false
	}
	switch length {
	case 0xFB:
		return cursor, 0, true
	case 0xFC:
		cursor, u16 := ReadUB2(buff, cursor)
		return cursor, uint64(u16), false
	case 0xFD:
		cursor, u24 := ReadUB3(buff, cursor)
		return cursor, uint64(u24), false
	case 0xFE:
		cursor, u64 := ReadUB8(buff, cursor)
		return cursor, u64, false
	default:
		return cursor, uint64(length), false
	}
}

// lengthWidth 首字节之后整数所占的字节数
func lengthWidth(lead byte) int {
	switch lead {
	case 0xFC:
		return 2
	case 0xFD:
		return 3
	case 0xFE:
		return 8
	}
	return 0
}

// SkipLength 跳过一个长度编码字段而不解析其值，返回新的游标
//
// <0xFB 单字节值; 0xFB NULL; 0xFC/0xFD/0xFE 后随2/3/8字节整数;
// 其他首字节按字面长度的字符串处理。
func SkipLength(buff []byte, cursor int) (int, error) {
	if cursor >= len(buff) {
		return cursor, ErrShortBuffer
	}
	lead := buff[cursor]
	var next int
	switch {
	case lead < 0xFB:
		next = cursor + 1
	case lead == 0xFB:
		next = cursor + 1
	case lead == 0xFC:
		next = cursor + 3
	case lead == 0xFD:
		next = cursor + 4
	case lead == 0xFE:
		next = cursor + 9
	default:
		next = cursor + 1 + int(lead)
	}
	if next > len(buff) {
		return cursor, ErrShortBuffer
	}
	return next, nil
}

// ReadLengthBytes 读取长度编码的字节串，NULL 返回 nil
func ReadLengthBytes(buff []byte, cursor int) (int, []byte, error) {
	cursor, length, isNull := ReadLength(buff, cursor)
	if isNull {
		return cursor, nil, nil
	}
	if cursor > len(buff) || length > uint64(len(buff)-cursor) {
		return cursor, nil, ErrShortBuffer
	}
	end := cursor + int(length)
	return end, buff[cursor:end], nil
}

func ReadLengthString(buff []byte, cursor int) (int, string, error) {
	cursor, tmp, err := ReadLengthBytes(buff, cursor)
	return cursor, string(tmp), err
}

// GetLength 计算长度编码整数占用的字节数
func GetLength(length int64) int {
	if length < 251 {
		return 1
	} else if length < 0x10000 {
		return 3
	} else if length < 0x1000000 {
		return 4
	} else {
		return 9
	}
}
