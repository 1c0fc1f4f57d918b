package rowstore

import (
	"strconv"

	"github.com/juju/errors"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/util"
)

// textCodec 文本协议行: 每列为长度编码字符串，0xFB 表示 NULL
type textCodec struct{}

func (textCodec) Binary() bool {
	return false
}

func (textCodec) Position(rb *RowBuffer, columns []*mysql.ColumnDescriptor, index int) error {
	if index == rb.index {
		return nil
	}
	if index < rb.index {
		rb.Reset(rb.buf)
	}
	cursor := 0
	if rb.index >= 0 {
		cursor = rb.end()
	}
	buf := rb.buf
	for rb.index < index {
		if cursor >= len(buf) {
			return errMalformedRow(rb.index+1, columns[rb.index+1])
		}
		if buf[cursor] == 0xFB {
			rb.set(rb.index+1, cursor+1, 0, true)
			cursor++
			continue
		}
		next, length, _ := util.ReadLength(buf, cursor)
		if next > len(buf) || length > uint64(len(buf)-next) {
			return errMalformedRow(rb.index+1, columns[rb.index+1])
		}
		rb.set(rb.index+1, next, int(length), false)
		cursor = next + int(length)
	}
	return nil
}

func (textCodec) TextBytes(rb *RowBuffer, _ *mysql.ColumnDescriptor) ([]byte, error) {
	return rb.Value(), nil
}

func (textCodec) Int64(rb *RowBuffer, col *mysql.ColumnDescriptor) (int64, error) {
	s := string(rb.Value())
	if col.Type == mysql.TypeBit {
		var v int64
		for _, b := range rb.Value() {
			v = v<<8 | int64(b)
		}
		return v, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, errors.Annotatef(err, "column %s value %q", col.Name, s)
		}
		return int64(f), nil
	}
	return v, nil
}

func (textCodec) Uint64(rb *RowBuffer, col *mysql.ColumnDescriptor) (uint64, error) {
	s := string(rb.Value())
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Annotatef(err, "column %s value %q", col.Name, s)
	}
	return v, nil
}

func (textCodec) Float64(rb *RowBuffer, col *mysql.ColumnDescriptor) (float64, error) {
	s := string(rb.Value())
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Annotatef(err, "column %s value %q", col.Name, s)
	}
	return v, nil
}

func (textCodec) Encode(_ []*mysql.ColumnDescriptor, values [][]byte) ([]byte, error) {
	payload := make([]byte, 0, 64)
	for _, v := range values {
		payload = util.WriteWithLengthWithNullValue(payload, v, 0xFB)
	}
	return payload, nil
}
