package rowstore

import (
	"math"
	"strings"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/util"
)

const (
	// MaxCapacity 行缓存上限
	MaxCapacity = math.MaxInt32 - 8

	defaultCapacity = 10

	// SizeUnknown 行数尚未确定(流式或分页未结束)
	SizeUnknown = -1
)

// RowStore 结果集行缓存与行指针
//
// pointer 取值 [-1, size]，-1 表示第一行之前，size 表示最后一行之后。
type RowStore struct {
	columns []*mysql.ColumnDescriptor
	codec   RowCodec

	rows      [][]byte
	size      int
	pointer   int
	discarded int

	reader      RowBuffer
	lastPointer int
	wasNull     bool
}

func NewRowStore(columns []*mysql.ColumnDescriptor, codec RowCodec) *RowStore {
	return &RowStore{
		columns:     columns,
		codec:       codec,
		rows:        make([][]byte, 0, defaultCapacity),
		size:        SizeUnknown,
		pointer:     -1,
		lastPointer: -2,
	}
}

func (s *RowStore) Columns() []*mysql.ColumnDescriptor {
	return s.columns
}

func (s *RowStore) Codec() RowCodec {
	return s.codec
}

// Len 当前缓存的行数
func (s *RowStore) Len() int {
	return len(s.rows)
}

// Size -1 未知，否则为已知的行数
func (s *RowStore) Size() int {
	return s.size
}

// MarkKnown 行数已确定为当前缓存行数
func (s *RowStore) MarkKnown() {
	s.size = len(s.rows)
}

func (s *RowStore) Pointer() int {
	return s.pointer
}

func (s *RowStore) SetPointer(pointer int) {
	s.pointer = pointer
}

// Discarded 已丢弃(仅前向结果集)的行数
func (s *RowStore) Discarded() int {
	return s.discarded
}

func (s *RowStore) Row(index int) []byte {
	return s.rows[index]
}

// Current 指针所在行，不在行上时返回 nil
func (s *RowStore) Current() []byte {
	if s.pointer < 0 || s.pointer >= len(s.rows) {
		return nil
	}
	return s.rows[s.pointer]
}

func (s *RowStore) grow() error {
	c := cap(s.rows)
	if c >= MaxCapacity {
		return mysql.NewOutOfRange("row store capacity %d exhausted", MaxCapacity)
	}
	newCap := c + c>>1
	if newCap < defaultCapacity {
		newCap = defaultCapacity
	}
	if newCap > MaxCapacity || newCap < c {
		newCap = MaxCapacity
	}
	rows := make([][]byte, len(s.rows), newCap)
	copy(rows, s.rows)
	s.rows = rows
	return nil
}

// Append 追加一行，返回其下标
func (s *RowStore) Append(row []byte) (int, error) {
	if len(s.rows) == cap(s.rows) {
		if err := s.grow(); err != nil {
			return -1, err
		}
	}
	s.rows = append(s.rows, row)
	if s.size >= 0 {
		s.size = len(s.rows)
	}
	return len(s.rows) - 1, nil
}

// InsertAt 在 index 处插入一行，其后行下移
func (s *RowStore) InsertAt(index int, row []byte) error {
	if index < 0 || index > len(s.rows) {
		return mysql.NewOutOfRange("insert index %d outside [0, %d]", index, len(s.rows))
	}
	if len(s.rows) == cap(s.rows) {
		if err := s.grow(); err != nil {
			return err
		}
	}
	s.rows = append(s.rows, nil)
	copy(s.rows[index+1:], s.rows[index:])
	s.rows[index] = row
	if s.size >= 0 {
		s.size = len(s.rows)
	}
	s.invalidate()
	return nil
}

// RemoveAt 删除 index 处的行
func (s *RowStore) RemoveAt(index int) error {
	if index < 0 || index >= len(s.rows) {
		return mysql.NewOutOfRange("remove index %d outside [0, %d)", index, len(s.rows))
	}
	copy(s.rows[index:], s.rows[index+1:])
	s.rows[len(s.rows)-1] = nil
	s.rows = s.rows[:len(s.rows)-1]
	if s.size > 0 {
		s.size--
	}
	s.invalidate()
	return nil
}

// Replace 整行替换
func (s *RowStore) Replace(index int, row []byte) error {
	if index < 0 || index >= len(s.rows) {
		return mysql.NewOutOfRange("replace index %d outside [0, %d)", index, len(s.rows))
	}
	s.rows[index] = row
	s.invalidate()
	return nil
}

// DiscardConsumed 丢弃指针之前的所有行，前向分页结果集使用
func (s *RowStore) DiscardConsumed() {
	n := s.pointer
	if n > len(s.rows) {
		n = len(s.rows)
	}
	if n <= 0 {
		return
	}
	s.discarded += n
	s.rows = append(s.rows[:0], s.rows[n:]...)
	s.pointer -= n
	if s.size >= 0 {
		s.size = len(s.rows)
	}
	s.invalidate()
}

// Clear 清空缓存
func (s *RowStore) Clear() {
	s.rows = s.rows[:0]
	s.pointer = -1
	if s.size >= 0 {
		s.size = 0
	}
	s.invalidate()
}

func (s *RowStore) invalidate() {
	s.lastPointer = -2
}

// CheckPosition 校验当前指针在行上且列号(从1开始)合法
func (s *RowStore) CheckPosition(column int) error {
	if s.pointer < 0 {
		return mysql.NewOutOfRange("current position is before the first row")
	}
	if s.pointer >= len(s.rows) {
		return mysql.NewOutOfRange("current position is after the last row")
	}
	if column < 1 || column > len(s.columns) {
		return mysql.NewOutOfRange("wrong column index %d, must be in [1, %d]", column, len(s.columns))
	}
	return nil
}

// position 定位到列值，仅在行指针变化后才重置解码游标
func (s *RowStore) position(column int) (*mysql.ColumnDescriptor, error) {
	if err := s.CheckPosition(column); err != nil {
		return nil, err
	}
	if s.lastPointer != s.pointer {
		s.reader.Reset(s.rows[s.pointer])
		s.lastPointer = s.pointer
	}
	if err := s.codec.Position(&s.reader, s.columns, column-1); err != nil {
		return nil, errors.Trace(err)
	}
	s.wasNull = s.reader.IsNull()
	return s.columns[column-1], nil
}

// WasNull 最近一次读取的列值是否为 NULL
func (s *RowStore) WasNull() bool {
	return s.wasNull
}

func (s *RowStore) IsNull(column int) (bool, error) {
	if _, err := s.position(column); err != nil {
		return false, err
	}
	return s.reader.IsNull(), nil
}

// GetBytes 列值的文本形式字节拷贝，NULL 返回 nil
func (s *RowStore) GetBytes(column int) ([]byte, error) {
	col, err := s.position(column)
	if err != nil || s.wasNull {
		return nil, err
	}
	v, err := s.codec.TextBytes(&s.reader, col)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, v...), nil
}

// GetString 按列字符集解码
func (s *RowStore) GetString(column int) (string, error) {
	col, err := s.position(column)
	if err != nil || s.wasNull {
		return "", err
	}
	v, err := s.codec.TextBytes(&s.reader, col)
	if err != nil {
		return "", err
	}
	if col.IsBinary() {
		return string(v), nil
	}
	return util.DecodeCharset(v, col.Charset), nil
}

func (s *RowStore) GetInt64(column int) (int64, error) {
	col, err := s.position(column)
	if err != nil || s.wasNull {
		return 0, err
	}
	return s.codec.Int64(&s.reader, col)
}

func (s *RowStore) GetUint64(column int) (uint64, error) {
	col, err := s.position(column)
	if err != nil || s.wasNull {
		return 0, err
	}
	return s.codec.Uint64(&s.reader, col)
}

func (s *RowStore) GetFloat64(column int) (float64, error) {
	col, err := s.position(column)
	if err != nil || s.wasNull {
		return 0, err
	}
	return s.codec.Float64(&s.reader, col)
}

func (s *RowStore) GetBool(column int) (bool, error) {
	col, err := s.position(column)
	if err != nil || s.wasNull {
		return false, err
	}
	switch col.Type {
	case mysql.TypeVarchar, mysql.TypeVarString, mysql.TypeString:
		v, err := s.codec.TextBytes(&s.reader, col)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(string(v))) {
		case "", "0", "false", "n", "no":
			return false, nil
		}
		return true, nil
	}
	v, err := s.codec.Float64(&s.reader, col)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (s *RowStore) GetDecimal(column int) (decimal.Decimal, error) {
	col, err := s.position(column)
	if err != nil || s.wasNull {
		return decimal.Zero, err
	}
	v, err := s.codec.TextBytes(&s.reader, col)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(string(v))
	if err != nil {
		return decimal.Zero, errors.Annotatef(err, "column %s is not numeric", col.Name)
	}
	return d, nil
}

// GetRaw 未经转换的列值字节(LOB定位符等)
func (s *RowStore) GetRaw(column int) ([]byte, error) {
	if _, err := s.position(column); err != nil || s.wasNull {
		return nil, err
	}
	return append([]byte{}, s.reader.Value()...), nil
}

// FindColumn 按列名(大小写不敏感)查找列号，从1开始
func (s *RowStore) FindColumn(name string) (int, error) {
	for i, col := range s.columns {
		if strings.EqualFold(col.Name, name) {
			return i + 1, nil
		}
	}
	for i, col := range s.columns {
		if strings.EqualFold(col.OrgName, name) {
			return i + 1, nil
		}
	}
	return 0, mysql.NewInvalidOperation("column %q not found", name)
}

// CloneEmpty 同列定义、同编码的空缓存，不共享任何行
func (s *RowStore) CloneEmpty() *RowStore {
	cols := make([]*mysql.ColumnDescriptor, len(s.columns))
	for i, c := range s.columns {
		cols[i] = c.Clone()
	}
	clone := NewRowStore(cols, s.codec)
	clone.MarkKnown()
	return clone
}
