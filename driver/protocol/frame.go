package protocol

import (
	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
)

// 包首字节标识
const (
	OKHeader  byte = 0x00
	EOFHeader byte = 0xFE
	ErrHeader byte = 0xFF

	// 经典EOF包长度上限，行包即使以0xFE开头也远大于此
	classicEOFMaxLength = 9
	// OK包代替EOF时的长度上限
	deprecatedEOFMaxLength = 0xFFFFFF
)

// FrameKind 帧类型
type FrameKind int

const (
	FrameRow FrameKind = iota
	FrameError
	FrameEnd
)

func (k FrameKind) String() string {
	switch k {
	case FrameRow:
		return "ROW"
	case FrameError:
		return "ERROR"
	default:
		return "END"
	}
}

// PacketSource 按帧读取服务端返回的数据，阻塞调用
type PacketSource interface {
	NextFrame() ([]byte, error)
}

// StreamFlags 结束帧携带的状态
type StreamFlags struct {
	WarningCount uint16
	ServerStatus uint16
}

func (f StreamFlags) MoreResultsExist() bool {
	return f.ServerStatus&mysql.ServerMoreResultsExists > 0
}

func (f StreamFlags) LastRowSent() bool {
	return f.ServerStatus&mysql.ServerStatusLastRowSent > 0
}

func (f StreamFlags) OutParams() bool {
	return f.ServerStatus&mysql.ServerPSOutParams > 0
}

func (f StreamFlags) HasWarnings() bool {
	return f.WarningCount > 0
}

// Frame 分类后的帧
type Frame struct {
	Kind  FrameKind
	Row   []byte
	Err   *mysql.SQLError
	Flags StreamFlags
}

// Classifier 帧分类器，deprecateEOF 表示会话协商了 CLIENT_DEPRECATE_EOF
type Classifier struct {
	DeprecateEOF bool
}

// Classify 判断一帧是行、错误还是结束帧
func (c Classifier) Classify(buf []byte) (*Frame, error) {
	if len(buf) == 0 {
		return &Frame{Kind: FrameRow, Row: buf}, nil
	}
	switch buf[0] {
	case ErrHeader:
		return &Frame{Kind: FrameError, Err: DecodeError(buf)}, nil
	case EOFHeader:
		if c.isTerminator(len(buf)) {
			var flags StreamFlags
			var err error
			if c.DeprecateEOF {
				flags, err = DecodeOKTerminator(buf)
			} else {
				flags, err = DecodeEOF(buf)
			}
			if err != nil {
				return nil, err
			}
			return &Frame{Kind: FrameEnd, Flags: flags}, nil
		}
	}
	return &Frame{Kind: FrameRow, Row: buf}, nil
}

func (c Classifier) isTerminator(length int) bool {
	if c.DeprecateEOF {
		return length < deprecatedEOFMaxLength
	}
	return length < classicEOFMaxLength
}
