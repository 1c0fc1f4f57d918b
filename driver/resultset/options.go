package resultset

import (
	"github.com/zhukovaskychina/xmysql-connector/driver/lob"
)

// ScrollType 结果集滚动方式
type ScrollType int

const (
	ScrollForwardOnly ScrollType = iota
	ScrollInsensitive
	ScrollSensitive
)

// Concurrency 结果集并发方式
type Concurrency int

const (
	ConcurReadOnly Concurrency = iota
	ConcurUpdatable
)

// CursorState 取数策略，构造后不再改变
type CursorState int

const (
	StateEager CursorState = iota
	StateStreaming
	StatePaged
)

func (s CursorState) String() string {
	switch s {
	case StateEager:
		return "EAGER"
	case StateStreaming:
		return "STREAMING"
	case StatePaged:
		return "PAGED"
	}
	return "UNKNOWN"
}

// Options 构造结果集的参数
type Options struct {
	Scroll      ScrollType
	Concurrency Concurrency
	FetchSize   int
	MaxRows     int64
	// CursorID 服务端游标，非0、会话开启 use_cursor_fetch 且有 CursorFetcher 时分页取数
	CursorID uint32
	Binary   bool
	// LobRPC 定位符列的读写通道
	LobRPC lob.RPC
}

// selectState 由取数参数决定取数策略
func selectState(opts Options, hasFetcher bool) CursorState {
	if opts.FetchSize > 0 && opts.CursorID != 0 && hasFetcher {
		return StatePaged
	}
	if opts.FetchSize > 0 && opts.Scroll == ScrollForwardOnly && opts.Concurrency == ConcurReadOnly {
		return StateStreaming
	}
	return StateEager
}
