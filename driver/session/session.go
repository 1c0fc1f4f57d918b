package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/juju/errors"

	"github.com/zhukovaskychina/xmysql-connector/driver/conf"
	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/driver/protocol"
	"github.com/zhukovaskychina/xmysql-connector/logger"
)

// Session 一条连接上的客户端会话
//
// cmdMutex 保证同一时刻连接上只有一个命令在传输，流式结果每次取行都持有它；
// mutex 保护会话自身状态。
type Session struct {
	id  string
	cfg *conf.Cfg

	executor Executor
	catalog  Catalog
	fetcher  CursorFetcher

	cmdMutex sync.Mutex

	mutex        sync.RWMutex
	active       Streamer
	lastActivity time.Time
	attributes   map[string]interface{}
	closed       bool
}

type Option func(s *Session)

func WithCatalog(c Catalog) Option {
	return func(s *Session) { s.catalog = c }
}

func WithCursorFetcher(f CursorFetcher) Option {
	return func(s *Session) { s.fetcher = f }
}

func WithConfig(cfg *conf.Cfg) Option {
	return func(s *Session) { s.cfg = cfg }
}

// NewSession 创建会话
func NewSession(executor Executor, opts ...Option) *Session {
	s := &Session{
		id:           generateSessionID(),
		executor:     executor,
		lastActivity: time.Now(),
		attributes:   make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg == nil {
		s.cfg = conf.NewCfg()
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Config() *conf.Cfg {
	return s.cfg
}

func (s *Session) Catalog() Catalog {
	return s.catalog
}

func (s *Session) CursorFetcher() CursorFetcher {
	return s.fetcher
}

// Lock 获取命令锁
func (s *Session) Lock() {
	s.cmdMutex.Lock()
}

func (s *Session) Unlock() {
	s.cmdMutex.Unlock()
}

// SetActiveStreaming 登记当前流式结果
func (s *Session) SetActiveStreaming(st Streamer) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.active = st
	s.lastActivity = time.Now()
}

// ClearActiveStreaming 流式结果结束时注销，只注销自己
func (s *Session) ClearActiveStreaming(st Streamer) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.active == st {
		s.active = nil
	}
}

// ActiveStreaming 当前登记的流式结果
func (s *Session) ActiveStreaming() Streamer {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.active
}

// PrepareCommand 发送新命令前读完未结束的流式结果，期间不持有命令锁
func (s *Session) PrepareCommand() error {
	if s.IsClosed() {
		return mysql.NewInvalidOperation("session %s is closed", s.id)
	}
	s.mutex.Lock()
	active := s.active
	s.active = nil
	s.mutex.Unlock()
	if active == nil {
		return nil
	}
	logger.Debugf("session %s: draining active streaming result before new command", s.id)
	if err := active.DrainStreaming(); err != nil {
		return errors.Annotate(err, "drain streaming result")
	}
	return nil
}

// Execute 执行一条命令；返回行时在命令锁内读完全部行
func (s *Session) Execute(ctx context.Context, stmt *Statement) (*Response, error) {
	if err := s.PrepareCommand(); err != nil {
		return nil, err
	}
	s.Lock()
	defer s.Unlock()
	s.UpdateActivity()

	logger.Debugf("session %s execute: %s", s.id, stmt.SQL)
	resp, err := s.executor.Execute(ctx, stmt)
	if err != nil {
		if _, ok := mysql.AsSQLError(err); ok {
			return nil, err
		}
		return nil, mysql.NewTransportFailure(err, "execute %q", stmt.SQL)
	}
	if !resp.IsResultSet() || resp.Source == nil {
		return resp, nil
	}
	classifier := protocol.Classifier{DeprecateEOF: s.cfg.DeprecateEOF}
	for {
		buf, err := resp.Source.NextFrame()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, mysql.NewTransportFailure(err, "read result of %q", stmt.SQL)
		}
		frame, err := classifier.Classify(buf)
		if err != nil {
			return nil, mysql.NewTransportFailure(err, "decode result of %q", stmt.SQL)
		}
		switch frame.Kind {
		case protocol.FrameRow:
			resp.Rows = append(resp.Rows, frame.Row)
			continue
		case protocol.FrameError:
			return nil, frame.Err
		}
		resp.Flags = frame.Flags
		break
	}
	return resp, nil
}

func (s *Session) UpdateActivity() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActivity = time.Now()
}

func (s *Session) LastActivity() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActivity
}

// GetAttribute 获取会话属性
func (s *Session) GetAttribute(key string) interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.attributes[key]
}

// SetAttribute 设置会话属性
func (s *Session) SetAttribute(key string, value interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.attributes[key] = value
}

func (s *Session) IsClosed() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.closed
}

// Close 关闭会话，未读完的流式结果先读完
func (s *Session) Close() error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return nil
	}
	active := s.active
	s.active = nil
	s.mutex.Unlock()

	var err error
	if active != nil {
		err = active.DrainStreaming()
	}

	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()
	return errors.Trace(err)
}

// generateSessionID 生成会话ID
func generateSessionID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return fmt.Sprintf("%x", bytes)
}
