package lob

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/util"
)

// Version 定位符版本
type Version int

const (
	VersionV1 Version = 1
	VersionV2 Version = 2
)

func (v Version) String() string {
	return fmt.Sprintf("V%d", int(v))
}

const (
	headerLen = 8
	// V1 固定部分: snapshot(8) table(8) column(4) mode(2) option(2) offset(4) inline(4) rowid(4)
	v1FixedLen = 36
	// V2 固定部分: flags(4) payload size(8)
	v2FixedLen = 12
)

// Locator LOB定位符，解析后不可变；写入/截断返回新的定位符
type Locator struct {
	Magic      uint32
	RawVersion uint32
	Version    Version

	// V1
	SnapshotVersion uint64
	TableID         uint64
	ColumnID        uint32
	Mode            uint16
	Option          uint16
	PayloadOffset   uint32
	InlineSize      uint32
	RowID           []byte
	Inline          []byte

	// V2
	Flags       uint32
	PayloadSize uint64

	raw []byte
}

// ParseLocator 解析定位符头部，按版本解析主体
func ParseLocator(raw []byte) (*Locator, error) {
	if len(raw) < headerLen {
		return nil, mysql.NewLocatorError("locator too short: %d bytes", len(raw))
	}
	loc := &Locator{raw: append([]byte{}, raw...)}
	cursor := 0
	cursor, loc.Magic = util.ReadBE4(raw, cursor)
	cursor, loc.RawVersion = util.ReadBE4(raw, cursor)

	switch {
	case loc.RawVersion == 1:
		loc.Version = VersionV1
		if err := loc.parseV1(raw, cursor); err != nil {
			return nil, err
		}
	case loc.RawVersion&0xFF == 2:
		loc.Version = VersionV2
		if len(raw) < cursor+v2FixedLen {
			return nil, mysql.NewLocatorError("V2 locator truncated: %d bytes", len(raw))
		}
		cursor, loc.Flags = util.ReadBE4(raw, cursor)
		_, loc.PayloadSize = util.ReadBE8(raw, cursor)
	default:
		return nil, mysql.NewLocatorError("unknown locator version %d", loc.RawVersion)
	}
	return loc, nil
}

func (l *Locator) parseV1(raw []byte, cursor int) error {
	if len(raw) < cursor+v1FixedLen {
		return mysql.NewLocatorError("V1 locator truncated: %d bytes", len(raw))
	}
	var rowIDSize uint32
	cursor, l.SnapshotVersion = util.ReadBE8(raw, cursor)
	cursor, l.TableID = util.ReadBE8(raw, cursor)
	cursor, l.ColumnID = util.ReadBE4(raw, cursor)
	cursor, l.Mode = util.ReadBE2(raw, cursor)
	cursor, l.Option = util.ReadBE2(raw, cursor)
	cursor, l.PayloadOffset = util.ReadBE4(raw, cursor)
	cursor, l.InlineSize = util.ReadBE4(raw, cursor)
	cursor, rowIDSize = util.ReadBE4(raw, cursor)
	if uint64(len(raw)) < uint64(cursor)+uint64(rowIDSize)+uint64(l.InlineSize) {
		return errors.Wrapf(mysql.NewLocatorError("V1 locator truncated"),
			"rowid %d inline %d available %d", rowIDSize, l.InlineSize, len(raw)-cursor)
	}
	cursor, l.RowID = util.ReadBytes(raw, cursor, int(rowIDSize))
	_, l.Inline = util.ReadBytes(raw, cursor, int(l.InlineSize))
	return nil
}

// HasLength 定位符自带权威长度(V2)
func (l *Locator) HasLength() bool {
	return l.Version == VersionV2
}

// Bytes 定位符原始字节
func (l *Locator) Bytes() []byte {
	return append([]byte{}, l.raw...)
}

func (l *Locator) String() string {
	if l.Version == VersionV2 {
		return fmt.Sprintf("locator(%s magic=%#x size=%d)", l.Version, l.Magic, l.PayloadSize)
	}
	return fmt.Sprintf("locator(%s magic=%#x table=%d column=%d)", l.Version, l.Magic, l.TableID, l.ColumnID)
}

// EncodeV1 构造V1定位符
func EncodeV1(magic uint32, l *Locator) []byte {
	buf := make([]byte, 0, headerLen+v1FixedLen+len(l.RowID)+len(l.Inline))
	buf = util.WriteBE4(buf, magic)
	buf = util.WriteBE4(buf, 1)
	buf = util.WriteBE8(buf, l.SnapshotVersion)
	buf = util.WriteBE8(buf, l.TableID)
	buf = util.WriteBE4(buf, l.ColumnID)
	buf = util.WriteBE2(buf, l.Mode)
	buf = util.WriteBE2(buf, l.Option)
	buf = util.WriteBE4(buf, l.PayloadOffset)
	buf = util.WriteBE4(buf, uint32(len(l.Inline)))
	buf = util.WriteBE4(buf, uint32(len(l.RowID)))
	buf = util.WriteBytes(buf, l.RowID)
	return util.WriteBytes(buf, l.Inline)
}

// EncodeV2 构造V2定位符，handle 为不透明的剩余部分
func EncodeV2(magic, flags uint32, payloadSize uint64, handle []byte) []byte {
	buf := make([]byte, 0, headerLen+v2FixedLen+len(handle))
	buf = util.WriteBE4(buf, magic)
	buf = util.WriteBE4(buf, 2)
	buf = util.WriteBE4(buf, flags)
	buf = util.WriteBE8(buf, payloadSize)
	return util.WriteBytes(buf, handle)
}
