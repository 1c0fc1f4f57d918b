package session

import (
	"context"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/driver/protocol"
)

// Statement 待执行的语句，Args 中 nil 表示 NULL，其余为文本形式的值
type Statement struct {
	SQL    string
	Args   [][]byte
	Binary bool
	// FoundRows 要求 AffectedRows 报告匹配行数而非实际变更行数(CLIENT_FOUND_ROWS)
	FoundRows bool
}

// Response 执行结果: 行流或更新计数二选一
type Response struct {
	Columns []*mysql.ColumnDescriptor
	Source  protocol.PacketSource
	Binary  bool

	AffectedRows uint64
	LastInsertID uint64

	// Rows 经 Session.Execute 读完的行，Flags 为结束包状态
	Rows  [][]byte
	Flags protocol.StreamFlags
}

// IsResultSet 是否返回了行
func (r *Response) IsResultSet() bool {
	return r.Columns != nil
}

// Executor 命令执行入口
type Executor interface {
	Execute(ctx context.Context, stmt *Statement) (*Response, error)
}

// CatalogColumn 目录探测得到的列信息
type CatalogColumn struct {
	Name          string
	Nullable      bool
	HasDefault    bool
	Generated     bool
	IsPrimary     bool
	AutoIncrement bool
}

// Catalog 表结构探测
type Catalog interface {
	ColumnsOf(ctx context.Context, db, table string) ([]CatalogColumn, error)
}

// CursorFetcher 服务端游标取数
type CursorFetcher interface {
	FetchMore(ctx context.Context, cursorID uint32, rows int) (protocol.PacketSource, error)
}

// Streamer 当前连接上未读完的流式结果
type Streamer interface {
	// DrainStreaming 读完剩余的行，之后连接可以发送新命令
	DrainStreaming() error
}
