package rowstore

import (
	"github.com/juju/errors"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
)

// RowCodec 行编码能力，文本协议与二进制协议各有一种实现
type RowCodec interface {
	// Binary 是否为二进制协议行
	Binary() bool
	// Position 将游标移动到第 index 列(从0开始)
	Position(rb *RowBuffer, columns []*mysql.ColumnDescriptor, index int) error
	// TextBytes 当前列值的文本形式，字符串类列返回原始字节
	TextBytes(rb *RowBuffer, col *mysql.ColumnDescriptor) ([]byte, error)
	Int64(rb *RowBuffer, col *mysql.ColumnDescriptor) (int64, error)
	Uint64(rb *RowBuffer, col *mysql.ColumnDescriptor) (uint64, error)
	Float64(rb *RowBuffer, col *mysql.ColumnDescriptor) (float64, error)
	// Encode 由文本形式的值构造一行，nil 表示 NULL
	Encode(columns []*mysql.ColumnDescriptor, values [][]byte) ([]byte, error)
}

var (
	textCodecInstance   RowCodec = textCodec{}
	binaryCodecInstance RowCodec = binaryCodec{}
)

// CodecFor 根据协议选择编码
func CodecFor(binary bool) RowCodec {
	if binary {
		return binaryCodecInstance
	}
	return textCodecInstance
}

// Transcode 将一行从一种编码转换为另一种，刷新行时返回编码与结果集不一致时使用
func Transcode(row []byte, from, to RowCodec, columns []*mysql.ColumnDescriptor) ([]byte, error) {
	if from.Binary() == to.Binary() {
		return row, nil
	}
	rb := NewRowBuffer(row)
	values := make([][]byte, len(columns))
	for i, col := range columns {
		if err := from.Position(rb, columns, i); err != nil {
			return nil, errors.Trace(err)
		}
		if rb.IsNull() {
			continue
		}
		v, err := from.TextBytes(rb, col)
		if err != nil {
			return nil, errors.Trace(err)
		}
		values[i] = append([]byte{}, v...)
	}
	return to.Encode(columns, values)
}

// ExtractValues 读取一行全部列的文本形式
func ExtractValues(row []byte, codec RowCodec, columns []*mysql.ColumnDescriptor) ([][]byte, error) {
	rb := NewRowBuffer(row)
	values := make([][]byte, len(columns))
	for i, col := range columns {
		if err := codec.Position(rb, columns, i); err != nil {
			return nil, errors.Trace(err)
		}
		if rb.IsNull() {
			continue
		}
		v, err := codec.TextBytes(rb, col)
		if err != nil {
			return nil, errors.Trace(err)
		}
		values[i] = append([]byte{}, v...)
	}
	return values, nil
}

func errMalformedRow(index int, col *mysql.ColumnDescriptor) error {
	return errors.Errorf("malformed row while decoding column %d (%s)", index+1, col.Name)
}
