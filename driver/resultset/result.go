package resultset

import (
	"context"

	"github.com/juju/errors"

	"github.com/zhukovaskychina/xmysql-connector/driver/lob"
	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/driver/protocol"
	"github.com/zhukovaskychina/xmysql-connector/driver/rowstore"
	"github.com/zhukovaskychina/xmysql-connector/driver/session"
	"github.com/zhukovaskychina/xmysql-connector/logger"
)

// ResultSet 查询结果: 行缓存加一种取数策略
type ResultSet struct {
	ctx        context.Context
	sess       *session.Session
	store      *rowstore.RowStore
	src        protocol.PacketSource
	classifier protocol.Classifier
	opts       Options
	state      CursorState

	eof      bool
	closed   bool
	initial  bool
	flags    protocol.StreamFlags
	accepted int64
	pageRows int
	pages    int

	lobChannel *lob.Channel
	lobs       []*lob.Blob

	upd *updater
}

// New 由列定义与帧源构造结果集；EAGER 在返回前读完全部行
//
// 先读完会话上未结束的流式结果。FetchSize/MaxRows 为0时取会话配置，
// 只有配置开启 use_cursor_fetch 才会使用服务端游标分页。
func New(ctx context.Context, sess *session.Session, columns []*mysql.ColumnDescriptor, src protocol.PacketSource, opts Options) (*ResultSet, error) {
	if err := sess.PrepareCommand(); err != nil {
		return nil, err
	}
	cfg := sess.Config()
	if opts.FetchSize == 0 {
		opts.FetchSize = cfg.FetchSize
	}
	if opts.MaxRows == 0 {
		opts.MaxRows = cfg.MaxRows
	}
	rs := &ResultSet{
		ctx:        ctx,
		sess:       sess,
		store:      rowstore.NewRowStore(columns, rowstore.CodecFor(opts.Binary)),
		src:        src,
		classifier: protocol.Classifier{DeprecateEOF: cfg.DeprecateEOF},
		opts:       opts,
		state:      selectState(opts, cfg.UseCursorFetch && sess.CursorFetcher() != nil),
		initial:    true,
	}
	logger.Debugf("session %s: result with %d columns uses %s cursor (fetchSize=%d, cursor=%d)",
		sess.ID(), len(columns), rs.state, opts.FetchSize, opts.CursorID)

	switch rs.state {
	case StateEager, StatePaged:
		sess.Lock()
		err := rs.drainSource()
		sess.Unlock()
		if err != nil {
			return nil, err
		}
		if rs.state == StateEager {
			rs.store.MarkKnown()
		}
	case StateStreaming:
		sess.SetActiveStreaming(rs)
	}

	if opts.Concurrency == ConcurUpdatable {
		rs.upd = newUpdater(ctx, rs)
	}
	return rs, nil
}

// NewFromResponse 由执行结果构造
func NewFromResponse(ctx context.Context, sess *session.Session, resp *session.Response, opts Options) (*ResultSet, error) {
	if !resp.IsResultSet() {
		return nil, mysql.NewInvalidOperation("statement did not return a result set")
	}
	opts.Binary = resp.Binary
	if resp.Source == nil {
		src := protocol.NewMemorySource()
		for _, row := range resp.Rows {
			src.Append(row)
		}
		src.Append(protocol.EncodeEOF(resp.Flags.WarningCount, resp.Flags.ServerStatus))
		return New(ctx, sess, resp.Columns, src, opts)
	}
	return New(ctx, sess, resp.Columns, resp.Source, opts)
}

func (rs *ResultSet) State() CursorState {
	return rs.state
}

func (rs *ResultSet) Columns() []*mysql.ColumnDescriptor {
	return rs.store.Columns()
}

func (rs *ResultSet) IsClosed() bool {
	return rs.closed
}

// Flags 结束包中的状态
func (rs *ResultSet) Flags() protocol.StreamFlags {
	return rs.flags
}

// IsCallableOutput 存储过程输出参数结果集
func (rs *ResultSet) IsCallableOutput() bool {
	return rs.flags.OutParams()
}

func (rs *ResultSet) FetchSize() int {
	return rs.opts.FetchSize
}

// RowCount 已知的总行数，未读完时返回 -1
func (rs *ResultSet) RowCount() int {
	if !rs.eof {
		return rowstore.SizeUnknown
	}
	return rs.store.Discarded() + rs.store.Len()
}

func (rs *ResultSet) checkClosed() error {
	if rs.closed {
		return mysql.NewInvalidOperation("operation not permit on a closed resultSet")
	}
	return nil
}

// fail 传输或服务端错误后结果集不再可用
func (rs *ResultSet) fail() {
	rs.eof = true
	rs.closed = true
	rs.src = nil
	if rs.state == StateStreaming {
		rs.sess.ClearActiveStreaming(rs)
	}
}

// nextFromSource 从当前帧源读取直到追加一行或帧源结束，调用方持有命令锁
func (rs *ResultSet) nextFromSource() (bool, error) {
	for rs.src != nil {
		buf, err := rs.src.NextFrame()
		if err != nil {
			rs.fail()
			logger.Errorf("session %s: read row frame failed: %v", rs.sess.ID(), err)
			return false, mysql.NewTransportFailure(err, "read row frame")
		}
		frame, err := rs.classifier.Classify(buf)
		if err != nil {
			rs.fail()
			return false, mysql.NewTransportFailure(err, "decode row frame")
		}
		switch frame.Kind {
		case protocol.FrameError:
			rs.fail()
			return false, frame.Err
		case protocol.FrameEnd:
			rs.endOfSource(frame.Flags)
			return false, nil
		}
		if rs.opts.MaxRows > 0 && rs.accepted >= rs.opts.MaxRows {
			continue
		}
		if _, err := rs.store.Append(frame.Row); err != nil {
			return false, errors.Trace(err)
		}
		rs.accepted++
		rs.pageRows++
		return true, nil
	}
	return false, nil
}

func (rs *ResultSet) endOfSource(flags protocol.StreamFlags) {
	rs.flags = flags
	rs.src = nil
	switch {
	case rs.state != StatePaged:
		rs.eof = true
	case rs.initial:
		rs.eof = flags.ServerStatus&mysql.ServerStatusCursorExists == 0 || flags.LastRowSent()
	default:
		rs.eof = flags.LastRowSent() || rs.pageRows == 0
	}
	rs.initial = false
	if rs.eof {
		rs.store.MarkKnown()
		if rs.state == StateStreaming {
			rs.sess.ClearActiveStreaming(rs)
		}
	}
}

func (rs *ResultSet) drainSource() error {
	for {
		ok, err := rs.nextFromSource()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// fetchStreamingRow 流式取一行，每次取数持有命令锁
func (rs *ResultSet) fetchStreamingRow() (bool, error) {
	rs.sess.Lock()
	defer rs.sess.Unlock()
	return rs.nextFromSource()
}

// fetchPage 通过服务端游标取下一页
func (rs *ResultSet) fetchPage() (bool, error) {
	if rs.eof {
		return false, nil
	}
	if rs.opts.MaxRows > 0 && rs.accepted >= rs.opts.MaxRows {
		rs.eof = true
		rs.store.MarkKnown()
		return false, nil
	}
	if err := rs.sess.PrepareCommand(); err != nil {
		return false, err
	}
	rs.sess.Lock()
	defer rs.sess.Unlock()

	src, err := rs.sess.CursorFetcher().FetchMore(rs.ctx, rs.opts.CursorID, rs.opts.FetchSize)
	if err != nil {
		if _, ok := mysql.AsSQLError(err); ok {
			rs.fail()
			return false, err
		}
		rs.fail()
		return false, mysql.NewTransportFailure(err, "fetch %d rows from cursor %d", rs.opts.FetchSize, rs.opts.CursorID)
	}
	rs.src = src
	rs.pageRows = 0
	rs.pages++
	before := rs.store.Len()
	if err := rs.drainSource(); err != nil {
		return false, err
	}
	logger.Debugf("session %s: cursor %d page %d fetched %d rows", rs.sess.ID(), rs.opts.CursorID, rs.pages, rs.store.Len()-before)
	return rs.store.Len() > before, nil
}

// DrainStreaming 读完剩余行并缓存，会话发送新命令前调用，调用时不持有命令锁
func (rs *ResultSet) DrainStreaming() error {
	rs.sess.Lock()
	defer rs.sess.Unlock()
	return rs.drainSource()
}

// FetchRemaining 读完全部剩余行
func (rs *ResultSet) FetchRemaining() error {
	if err := rs.checkClosed(); err != nil {
		return err
	}
	switch rs.state {
	case StateStreaming:
		if rs.eof {
			return nil
		}
		err := rs.DrainStreaming()
		rs.sess.ClearActiveStreaming(rs)
		return err
	case StatePaged:
		for !rs.eof {
			if _, err := rs.fetchPage(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close 关闭结果集；未读完的流式结果先读完连接上的剩余帧
func (rs *ResultSet) Close() error {
	if rs.closed {
		return nil
	}
	var err error
	if rs.state == StateStreaming && !rs.eof {
		err = rs.DrainStreaming()
		rs.store.Clear()
	}
	if rs.state == StateStreaming {
		rs.sess.ClearActiveStreaming(rs)
	}
	for _, b := range rs.lobs {
		b.Release()
	}
	rs.lobs = nil
	rs.closed = true
	return err
}

// CloneEmpty 同列定义的空结果集，不共享行缓存
func (rs *ResultSet) CloneEmpty() *ResultSet {
	opts := rs.opts
	opts.Concurrency = ConcurReadOnly
	return &ResultSet{
		ctx:        rs.ctx,
		sess:       rs.sess,
		store:      rs.store.CloneEmpty(),
		classifier: rs.classifier,
		opts:       opts,
		state:      StateEager,
		eof:        true,
	}
}
