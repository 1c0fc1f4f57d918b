package protocol

import (
	"io"

	"github.com/zhukovaskychina/xmysql-connector/util"
)

// NullMark 文本行中的NULL标记
const NullMark byte = 0xFB

// EncodeTextRow 构造文本协议行包负载，nil 表示 NULL
func EncodeTextRow(values [][]byte) []byte {
	size := 0
	for _, v := range values {
		size += util.GetLength(int64(len(v))) + len(v)
	}
	payload := make([]byte, 0, size)
	for _, v := range values {
		payload = util.WriteWithLengthWithNullValue(payload, v, NullMark)
	}
	return payload
}

// EncodeColumnCount 构造列数包负载
func EncodeColumnCount(count int) []byte {
	return util.WriteLength(nil, uint64(count))
}

// addPacketHeader 添加MySQL包头
func addPacketHeader(payload []byte, sequenceId byte) []byte {
	length := len(payload)
	header := make([]byte, 4, 4+length)
	header[0] = byte(length)
	header[1] = byte(length >> 8)
	header[2] = byte(length >> 16)
	header[3] = sequenceId
	return append(header, payload...)
}

// MemorySource 内存中的帧序列，供结果集重放与测试使用
type MemorySource struct {
	frames [][]byte
	next   int
	reads  int
}

func NewMemorySource(frames ...[]byte) *MemorySource {
	return &MemorySource{frames: frames}
}

func (m *MemorySource) Append(frames ...[]byte) {
	m.frames = append(m.frames, frames...)
}

func (m *MemorySource) NextFrame() ([]byte, error) {
	m.reads++
	if m.next >= len(m.frames) {
		return nil, io.ErrUnexpectedEOF
	}
	f := m.frames[m.next]
	m.next++
	return f, nil
}

// Reads 已调用 NextFrame 的次数
func (m *MemorySource) Reads() int {
	return m.reads
}

// Remaining 尚未读取的帧数
func (m *MemorySource) Remaining() int {
	return len(m.frames) - m.next
}
