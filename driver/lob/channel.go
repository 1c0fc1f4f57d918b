package lob

import (
	"context"

	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xmysql-connector/driver/conf"
	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/driver/session"
	"github.com/zhukovaskychina/xmysql-connector/logger"
)

// RPC 定位符读写接口；offset 从1开始
type RPC interface {
	// Read 返回数据与本次读取量，读到末尾时返回错误码 1403
	Read(ctx context.Context, loc *Locator, maxAmount int, offset int64) ([]byte, int, error)
	Write(ctx context.Context, loc *Locator, offset int64, buf []byte) (*Locator, error)
	Trim(ctx context.Context, loc *Locator, newLength int64) (*Locator, error)
}

// Owner 持有LOB的结果集
type Owner interface {
	IsClosed() bool
}

// Channel 按块调用定位符RPC，每次调用前让会话读完流式结果并持有命令锁
type Channel struct {
	sess      *session.Session
	rpc       RPC
	chunkSize int
	maxChunks int
}

func NewChannel(sess *session.Session, rpc RPC) *Channel {
	cfg := sess.Config()
	ch := &Channel{
		sess:      sess,
		rpc:       rpc,
		chunkSize: cfg.LobChunkSize,
		maxChunks: cfg.LobMaxChunks,
	}
	if ch.chunkSize <= 0 || ch.chunkSize > conf.MaxLobChunkSize {
		ch.chunkSize = conf.MaxLobChunkSize
	}
	if ch.maxChunks <= 0 {
		ch.maxChunks = conf.NewCfg().LobMaxChunks
	}
	return ch
}

// ChunkSize 单次RPC的最大字节数
func (c *Channel) ChunkSize() int {
	return c.chunkSize
}

func (c *Channel) begin() error {
	if c.sess.IsClosed() {
		return errClosedObject()
	}
	if err := c.sess.PrepareCommand(); err != nil {
		return err
	}
	c.sess.Lock()
	return nil
}

func (c *Channel) read(ctx context.Context, loc *Locator, maxAmount int, offset int64) ([]byte, int, error) {
	if err := c.begin(); err != nil {
		return nil, 0, err
	}
	defer c.sess.Unlock()
	return c.rpc.Read(ctx, loc, maxAmount, offset)
}

func (c *Channel) write(ctx context.Context, loc *Locator, offset int64, buf []byte) (*Locator, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.sess.Unlock()
	return c.rpc.Write(ctx, loc, offset, buf)
}

func (c *Channel) trim(ctx context.Context, loc *Locator, newLength int64) (*Locator, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.sess.Unlock()
	return c.rpc.Trim(ctx, loc, newLength)
}

// ReadAll 从 offset 开始按块读取直到服务端返回无数据
func (c *Channel) ReadAll(ctx context.Context, loc *Locator, offset int64) ([]byte, error) {
	var out []byte
	for i := 0; ; i++ {
		if i >= c.maxChunks {
			return nil, mysql.NewLocatorError("read exceeds %d chunks of %d bytes", c.maxChunks, c.chunkSize)
		}
		data, amount, err := c.read(ctx, loc, c.chunkSize, offset)
		if err != nil {
			if mysql.IsNoDataFound(err) {
				break
			}
			if mysql.IsLocatorError(err) || mysql.IsInvalidOperation(err) {
				return nil, err
			}
			logger.Errorf("lob read %s at offset %d failed: %v", loc, offset, err)
			return nil, errors.Wrapf(err, "read lob at offset %d", offset)
		}
		if amount <= 0 {
			break
		}
		out = append(out, data...)
		offset += int64(amount)
	}
	logger.Debugf("lob read %s: %d bytes", loc, len(out))
	return out, nil
}

// WriteChunked 按块写入，全部成功后返回最终定位符
func (c *Channel) WriteChunked(ctx context.Context, loc *Locator, offset int64, data []byte) (*Locator, error) {
	current := loc
	for start := 0; start < len(data); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(data) {
			end = len(data)
		}
		next, err := c.write(ctx, current, offset+int64(start), data[start:end])
		if err != nil {
			if mysql.IsLocatorError(err) || mysql.IsInvalidOperation(err) {
				return nil, err
			}
			logger.Errorf("lob write %s at offset %d failed: %v", current, offset+int64(start), err)
			return nil, errors.Wrapf(err, "write lob chunk at offset %d", offset+int64(start))
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

// Trim 截断到 newLength
func (c *Channel) Trim(ctx context.Context, loc *Locator, newLength int64) (*Locator, error) {
	next, err := c.trim(ctx, loc, newLength)
	if err != nil {
		if mysql.IsLocatorError(err) || mysql.IsInvalidOperation(err) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "trim lob to %d", newLength)
	}
	if next == nil {
		next = loc
	}
	return next, nil
}

func errClosedObject() error {
	return mysql.NewLocatorError("invalid operation on closed object")
}
