package lob

import (
	"context"
	"sync"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/util"
)

// Blob 定位符方式的二进制大对象
type Blob struct {
	ch    *Channel
	owner Owner

	mutex    sync.Mutex
	loc      *Locator
	released bool
}

func NewBlob(ch *Channel, owner Owner, loc *Locator) *Blob {
	return &Blob{ch: ch, owner: owner, loc: loc}
}

// Locator 当前定位符
func (b *Blob) Locator() *Locator {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.loc
}

// Release 结果集关闭时释放
func (b *Blob) Release() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.released = true
}

func (b *Blob) check() (*Locator, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.released || (b.owner != nil && b.owner.IsClosed()) || b.ch.sess.IsClosed() {
		return nil, errClosedObject()
	}
	return b.loc, nil
}

func (b *Blob) swap(loc *Locator) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.loc = loc
}

// Length V2 直接使用定位符中的长度，V1 需要完整读取
func (b *Blob) Length(ctx context.Context) (int64, error) {
	loc, err := b.check()
	if err != nil {
		return 0, err
	}
	if loc.HasLength() {
		return int64(loc.PayloadSize), nil
	}
	data, err := b.ch.ReadAll(ctx, loc, 1)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// Bytes 读取全部内容
func (b *Blob) Bytes(ctx context.Context) ([]byte, error) {
	loc, err := b.check()
	if err != nil {
		return nil, err
	}
	return b.ch.ReadAll(ctx, loc, 1)
}

// BytesAt 从 pos(从1开始) 读取至多 length 字节
func (b *Blob) BytesAt(ctx context.Context, pos int64, length int) ([]byte, error) {
	if pos < 1 || length < 0 {
		return nil, mysql.NewOutOfRange("invalid lob position %d length %d", pos, length)
	}
	loc, err := b.check()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, length)
	for len(out) < length {
		amount := length - len(out)
		if amount > b.ch.chunkSize {
			amount = b.ch.chunkSize
		}
		data, n, err := b.ch.read(ctx, loc, amount, pos)
		if err != nil {
			if mysql.IsNoDataFound(err) {
				break
			}
			return nil, err
		}
		if n <= 0 {
			break
		}
		out = append(out, data...)
		pos += int64(n)
	}
	return out, nil
}

// SetBytes 从 pos(从1开始) 写入，返回写入字节数
func (b *Blob) SetBytes(ctx context.Context, pos int64, data []byte) (int, error) {
	if pos < 1 {
		return 0, mysql.NewOutOfRange("invalid lob position %d", pos)
	}
	loc, err := b.check()
	if err != nil {
		return 0, err
	}
	next, err := b.ch.WriteChunked(ctx, loc, pos, data)
	if err != nil {
		return 0, err
	}
	b.swap(next)
	return len(data), nil
}

// Truncate 截断到 length 字节
func (b *Blob) Truncate(ctx context.Context, length int64) error {
	if length < 0 {
		return mysql.NewOutOfRange("invalid lob length %d", length)
	}
	loc, err := b.check()
	if err != nil {
		return err
	}
	next, err := b.ch.Trim(ctx, loc, length)
	if err != nil {
		return err
	}
	b.swap(next)
	return nil
}

// Clob 字符大对象，按列字符集编解码
type Clob struct {
	*Blob
	charset uint16
}

func NewClob(ch *Channel, owner Owner, loc *Locator, charset uint16) *Clob {
	return &Clob{Blob: NewBlob(ch, owner, loc), charset: charset}
}

// ReadString 读取全部内容并解码
func (c *Clob) ReadString(ctx context.Context) (string, error) {
	data, err := c.Bytes(ctx)
	if err != nil {
		return "", err
	}
	return util.DecodeCharset(data, c.charset), nil
}

// SetString 从 pos 写入字符串
func (c *Clob) SetString(ctx context.Context, pos int64, s string) (int, error) {
	return c.SetBytes(ctx, pos, util.EncodeCharset(s, c.charset))
}
