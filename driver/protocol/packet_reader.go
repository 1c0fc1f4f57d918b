package protocol

import (
	"compress/flate"
	"io"
	"strings"
	"sync/atomic"

	gxbytes "github.com/dubbogo/gost/bytes"
	"github.com/golang/snappy"
	"github.com/juju/errors"
	"github.com/pierrec/lz4/v4"

	"github.com/zhukovaskychina/xmysql-connector/logger"
)

// MaxPacketSize 单个物理包的最大负载，等于该值时后续还有续包
const MaxPacketSize = 0xFFFFFF

type CompressType int

const (
	CompressNone CompressType = iota
	CompressZip
	CompressSnappy
	CompressLz4
)

// ParseCompressType 配置中的压缩方式
func ParseCompressType(s string) CompressType {
	switch strings.ToLower(s) {
	case "zip", "flate":
		return CompressZip
	case "snappy":
		return CompressSnappy
	case "lz4":
		return CompressLz4
	default:
		return CompressNone
	}
}

var ErrPacketSequence = errors.New("packets out of order")

// PacketReader 从字节流中切分MySQL包，实现 PacketSource
type PacketReader struct {
	reader     io.Reader
	compress   CompressType
	seq        byte
	readBytes  uint32
	readPkgNum uint32
}

func NewPacketReader(r io.Reader, compress CompressType) *PacketReader {
	p := &PacketReader{compress: compress}
	switch compress {
	case CompressZip:
		p.reader = flate.NewReader(r)
	case CompressSnappy:
		p.reader = snappy.NewReader(r)
	case CompressLz4:
		p.reader = lz4.NewReader(r)
	default:
		p.reader = r
	}
	return p
}

// ResetSequence 新命令开始时序号归零
func (p *PacketReader) ResetSequence() {
	p.seq = 0
}

// NextFrame 读取一个逻辑包，自动拼接 0xFFFFFF 续包
func (p *PacketReader) NextFrame() ([]byte, error) {
	var payload []byte
	bufp := gxbytes.GetBytes(4)
	defer gxbytes.PutBytes(bufp)
	header := (*bufp)[:4]

	for {
		if _, err := io.ReadFull(p.reader, header); err != nil {
			return nil, errors.Annotatef(err, "read packet header(seq:%d)", p.seq)
		}
		pkgLen := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)
		if header[3] != p.seq {
			logger.Warnf("packet sequence mismatch, expect %d got %d", p.seq, header[3])
			return nil, errors.Annotatef(ErrPacketSequence, "expect %d got %d", p.seq, header[3])
		}
		p.seq++

		start := len(payload)
		payload = append(payload, make([]byte, pkgLen)...)
		if _, err := io.ReadFull(p.reader, payload[start:]); err != nil {
			return nil, errors.Annotatef(err, "read packet body(len:%d)", pkgLen)
		}
		atomic.AddUint32(&p.readBytes, uint32(pkgLen+4))
		if pkgLen < MaxPacketSize {
			break
		}
	}
	atomic.AddUint32(&p.readPkgNum, 1)
	return payload, nil
}

// Stats 已读取的字节数与逻辑包数
func (p *PacketReader) Stats() (readBytes uint32, readPkgNum uint32) {
	return atomic.LoadUint32(&p.readBytes), atomic.LoadUint32(&p.readPkgNum)
}

// PacketWriter 与 PacketReader 对称的写端，用于回放录制的结果集
type PacketWriter struct {
	writer io.Writer
	closer io.Closer
	seq    byte
}

func NewPacketWriter(w io.Writer, compress CompressType) *PacketWriter {
	p := &PacketWriter{}
	switch compress {
	case CompressZip:
		fw, _ := flate.NewWriter(w, flate.DefaultCompression)
		p.writer, p.closer = fw, fw
	case CompressSnappy:
		sw := snappy.NewBufferedWriter(w)
		p.writer, p.closer = sw, sw
	case CompressLz4:
		lw := lz4.NewWriter(w)
		p.writer, p.closer = lw, lw
	default:
		p.writer = w
	}
	return p
}

// WritePacket 写入一个逻辑包，超长负载拆分为续包
func (p *PacketWriter) WritePacket(payload []byte) error {
	for {
		n := len(payload)
		if n > MaxPacketSize {
			n = MaxPacketSize
		}
		if _, err := p.writer.Write(addPacketHeader(payload[:n], p.seq)); err != nil {
			return errors.Annotatef(err, "write packet(len:%d)", n)
		}
		p.seq++
		payload = payload[n:]
		if n < MaxPacketSize {
			return nil
		}
	}
}

// Close 刷新压缩流
func (p *PacketWriter) Close() error {
	if p.closer != nil {
		return errors.Trace(p.closer.Close())
	}
	return nil
}
