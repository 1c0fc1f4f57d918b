package protocol

import (
	"github.com/juju/errors"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/util"
)

var (
	DEFAULT_CATALOG = []byte("def")
	FILLER          = make([]byte, 2)
)

// DecodeColumnDefinition 解析 Protocol::ColumnDefinition41
func DecodeColumnDefinition(buff []byte) (*mysql.ColumnDescriptor, error) {
	col := new(mysql.ColumnDescriptor)
	var err error
	cursor := 0
	fields := []*string{&col.Catalog, &col.Database, &col.Table, &col.OrgTable, &col.Name, &col.OrgName}
	for _, f := range fields {
		cursor, *f, err = util.ReadLengthString(buff, cursor)
		if err != nil {
			return nil, errors.Annotate(err, "column definition")
		}
	}
	// 0x0C 固定长度字段
	cursor, _, _ = util.ReadLength(buff, cursor)
	if cursor+10 > len(buff) {
		return nil, errors.Errorf("column definition too short: %d bytes", len(buff))
	}
	cursor, col.Charset = util.ReadUB2(buff, cursor)
	cursor, col.Length = util.ReadUB4(buff, cursor)
	cursor, col.Type = util.ReadByte(buff, cursor)
	cursor, col.Flags = util.ReadUB2(buff, cursor)
	_, col.Decimals = util.ReadByte(buff, cursor)
	return col, nil
}

// EncodeColumnDefinition 构造列定义包负载
func EncodeColumnDefinition(col *mysql.ColumnDescriptor) []byte {
	buff := make([]byte, 0, 64)
	catalog := col.Catalog
	if catalog == "" {
		catalog = string(DEFAULT_CATALOG)
	}
	for _, s := range []string{catalog, col.Database, col.Table, col.OrgTable, col.Name, col.OrgName} {
		buff = util.WriteWithLength(buff, []byte(s))
	}
	buff = util.WriteByte(buff, 0x0C)
	buff = util.WriteUB2(buff, col.Charset)
	buff = util.WriteUB4(buff, col.Length)
	buff = util.WriteByte(buff, col.Type)
	buff = util.WriteUB2(buff, col.Flags)
	buff = util.WriteByte(buff, col.Decimals)
	buff = util.WriteBytes(buff, FILLER)
	return buff
}

// ReadColumns 读取列数包之后的 count 个列定义，非 deprecateEOF 会话还需消费中间的EOF包
func ReadColumns(src PacketSource, count int, deprecateEOF bool) ([]*mysql.ColumnDescriptor, error) {
	columns := make([]*mysql.ColumnDescriptor, 0, count)
	for i := 0; i < count; i++ {
		buf, err := src.NextFrame()
		if err != nil {
			return nil, mysql.NewTransportFailure(err, "could not read column definition %d", i+1)
		}
		if len(buf) > 0 && buf[0] == ErrHeader {
			return nil, DecodeError(buf)
		}
		col, err := DecodeColumnDefinition(buf)
		if err != nil {
			return nil, errors.Trace(err)
		}
		columns = append(columns, col)
	}
	if !deprecateEOF {
		buf, err := src.NextFrame()
		if err != nil {
			return nil, mysql.NewTransportFailure(err, "could not read column definition EOF")
		}
		if len(buf) == 0 || buf[0] != EOFHeader {
			return nil, errors.Errorf("expected EOF after column definitions, got 0x%02x", firstByte(buf))
		}
	}
	return columns, nil
}

// ReadColumnCount 读取结果集首包中的列数
func ReadColumnCount(buf []byte) (int, error) {
	next, n, isNull := util.ReadLength(buf, 0)
	if isNull || len(buf) == 0 || next > len(buf) {
		return 0, errors.New("malformed column count packet")
	}
	return int(n), nil
}

func firstByte(buf []byte) byte {
	if len(buf) == 0 {
		return 0
	}
	return buf[0]
}
