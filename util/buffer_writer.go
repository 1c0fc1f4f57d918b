package util

func WriteByte(buf []byte, b byte) []byte {
	return append(buf, b)
}

func WriteBytes(buf []byte, from []byte) []byte {
	return append(buf, from...)
}

func WriteUB2(buf []byte, i uint16) []byte {
	return append(buf, byte(i), byte(i>>8))
}

func WriteUB3(buf []byte, i uint32) []byte {
	return append(buf, byte(i), byte(i>>8), byte(i>>16))
}

func WriteUB4(buf []byte, i uint32) []byte {
	return append(buf, byte(i), byte(i>>8), byte(i>>16), byte(i>>24))
}

func WriteUB8(buf []byte, i uint64) []byte {
	for k := 0; k < 8; k++ {
		buf = append(buf, byte(i>>(8*uint(k))))
	}
	return buf
}

// WriteBE2 大端写入2字节
func WriteBE2(buf []byte, i uint16) []byte {
	return append(buf, byte(i>>8), byte(i))
}

// WriteBE4 大端写入4字节
func WriteBE4(buf []byte, i uint32) []byte {
	return append(buf, byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
}

// WriteBE8 大端写入8字节
func WriteBE8(buf []byte, i uint64) []byte {
	for k := 7; k >= 0; k-- {
		buf = append(buf, byte(i>>(8*uint(k))))
	}
	return buf
}

// WriteLength 写入长度编码整数
func WriteLength(buf []byte, length uint64) []byte {
	if length < 251 {
		return WriteByte(buf, byte(length))
	} else if length < 0x10000 {
		buf = WriteByte(buf, 0xFC)
		return WriteUB2(buf, uint16(length))
	} else if length < 0x1000000 {
		buf = WriteByte(buf, 0xFD)
		return WriteUB3(buf, uint32(length))
	}
	buf = WriteByte(buf, 0xFE)
	return WriteUB8(buf, length)
}

func WriteWithLength(buf []byte, from []byte) []byte {
	buf = WriteLength(buf, uint64(len(from)))
	return WriteBytes(buf, from)
}

// WriteWithLengthWithNullValue nil 写为 NULL 标记(0xFB)
func WriteWithLengthWithNullValue(buf []byte, from []byte, nullValue byte) []byte {
	if from == nil {
		return WriteByte(buf, nullValue)
	}
	return WriteWithLength(buf, from)
}
