package rowstore

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/juju/errors"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/util"
)

// binaryCodec 二进制协议行: 0x00 包头，NULL 位图(偏移2)，之后按列类型紧凑存放非NULL值
type binaryCodec struct{}

func (binaryCodec) Binary() bool {
	return true
}

func nullBitmapLen(columnCount int) int {
	return (columnCount + 7 + 2) / 8
}

func binaryIsNull(buf []byte, index int) bool {
	pos := index + 2
	return buf[1+pos/8]&(1<<(uint(pos)%8)) != 0
}

func fixedWidth(tp byte) int {
	switch tp {
	case mysql.TypeTiny:
		return 1
	case mysql.TypeShort, mysql.TypeYear:
		return 2
	case mysql.TypeInt24, mysql.TypeLong, mysql.TypeFloat:
		return 4
	case mysql.TypeLonglong, mysql.TypeDouble:
		return 8
	}
	return 0
}

func (binaryCodec) Position(rb *RowBuffer, columns []*mysql.ColumnDescriptor, index int) error {
	if index == rb.index {
		return nil
	}
	if index < rb.index {
		rb.Reset(rb.buf)
	}
	buf := rb.buf
	bitmapEnd := 1 + nullBitmapLen(len(columns))
	if len(buf) < bitmapEnd {
		return errMalformedRow(index, columns[index])
	}
	cursor := bitmapEnd
	if rb.index >= 0 {
		cursor = rb.end()
	}
	for rb.index < index {
		i := rb.index + 1
		col := columns[i]
		if binaryIsNull(buf, i) {
			rb.set(i, cursor, 0, true)
			continue
		}
		if w := fixedWidth(col.Type); w > 0 {
			if cursor+w > len(buf) {
				return errMalformedRow(i, col)
			}
			rb.set(i, cursor, w, false)
			cursor += w
			continue
		}
		if mysql.IsTemporalType(col.Type) {
			if cursor >= len(buf) || cursor+1+int(buf[cursor]) > len(buf) {
				return errMalformedRow(i, col)
			}
			n := int(buf[cursor])
			rb.set(i, cursor+1, n, false)
			cursor += 1 + n
			continue
		}
		if cursor >= len(buf) {
			return errMalformedRow(i, col)
		}
		next, length, _ := util.ReadLength(buf, cursor)
		if next > len(buf) || length > uint64(len(buf)-next) {
			return errMalformedRow(i, col)
		}
		rb.set(i, next, int(length), false)
		cursor = next + int(length)
	}
	return nil
}

// fixedInt 将定长整数按列的符号性解码
func fixedInt(v []byte, unsigned bool) (int64, uint64) {
	switch len(v) {
	case 1:
		if unsigned {
			return int64(v[0]), uint64(v[0])
		}
		return int64(int8(v[0])), uint64(int8(v[0]))
	case 2:
		_, u := util.ReadUB2(v, 0)
		if unsigned {
			return int64(u), uint64(u)
		}
		return int64(int16(u)), uint64(int16(u))
	case 4:
		_, u := util.ReadUB4(v, 0)
		if unsigned {
			return int64(u), uint64(u)
		}
		return int64(int32(u)), uint64(int32(u))
	default:
		_, u := util.ReadUB8(v, 0)
		return int64(u), u
	}
}

func (c binaryCodec) TextBytes(rb *RowBuffer, col *mysql.ColumnDescriptor) ([]byte, error) {
	v := rb.Value()
	switch col.Type {
	case mysql.TypeTiny, mysql.TypeShort, mysql.TypeYear, mysql.TypeInt24, mysql.TypeLong, mysql.TypeLonglong:
		s, u := fixedInt(v, col.IsUnsigned())
		if col.IsUnsigned() {
			return strconv.AppendUint(nil, u, 10), nil
		}
		return strconv.AppendInt(nil, s, 10), nil
	case mysql.TypeFloat:
		_, bits := util.ReadUB4(v, 0)
		return strconv.AppendFloat(nil, float64(math.Float32frombits(bits)), 'g', -1, 32), nil
	case mysql.TypeDouble:
		_, bits := util.ReadUB8(v, 0)
		return strconv.AppendFloat(nil, math.Float64frombits(bits), 'g', -1, 64), nil
	case mysql.TypeDate, mysql.TypeNewDate, mysql.TypeDatetime, mysql.TypeTimestamp:
		return []byte(formatDatetime(v, col)), nil
	case mysql.TypeDuration:
		return []byte(formatDuration(v, col)), nil
	}
	return v, nil
}

func (c binaryCodec) Int64(rb *RowBuffer, col *mysql.ColumnDescriptor) (int64, error) {
	if w := fixedWidth(col.Type); w > 0 && mysql.IsIntegerType(col.Type) {
		s, _ := fixedInt(rb.Value(), col.IsUnsigned())
		return s, nil
	}
	if col.Type == mysql.TypeFloat || col.Type == mysql.TypeDouble {
		f, err := c.Float64(rb, col)
		return int64(f), err
	}
	text, err := c.TextBytes(rb, col)
	if err != nil {
		return 0, err
	}
	rbText := NewRowBuffer(util.WriteWithLength(nil, text))
	if err := textCodecInstance.Position(rbText, []*mysql.ColumnDescriptor{col}, 0); err != nil {
		return 0, err
	}
	return textCodecInstance.Int64(rbText, col)
}

func (c binaryCodec) Uint64(rb *RowBuffer, col *mysql.ColumnDescriptor) (uint64, error) {
	if mysql.IsIntegerType(col.Type) {
		_, u := fixedInt(rb.Value(), col.IsUnsigned())
		return u, nil
	}
	text, err := c.TextBytes(rb, col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(string(text), 10, 64)
	if err != nil {
		return 0, errors.Annotatef(err, "column %s value %q", col.Name, text)
	}
	return v, nil
}

func (c binaryCodec) Float64(rb *RowBuffer, col *mysql.ColumnDescriptor) (float64, error) {
	v := rb.Value()
	switch col.Type {
	case mysql.TypeFloat:
		_, bits := util.ReadUB4(v, 0)
		return float64(math.Float32frombits(bits)), nil
	case mysql.TypeDouble:
		_, bits := util.ReadUB8(v, 0)
		return math.Float64frombits(bits), nil
	}
	if mysql.IsIntegerType(col.Type) {
		s, u := fixedInt(v, col.IsUnsigned())
		if col.IsUnsigned() {
			return float64(u), nil
		}
		return float64(s), nil
	}
	text, err := c.TextBytes(rb, col)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return 0, errors.Annotatef(err, "column %s value %q", col.Name, text)
	}
	return f, nil
}

func (binaryCodec) Encode(columns []*mysql.ColumnDescriptor, values [][]byte) ([]byte, error) {
	if len(values) != len(columns) {
		return nil, errors.Errorf("row has %d values for %d columns", len(values), len(columns))
	}
	bitmap := make([]byte, nullBitmapLen(len(columns)))
	body := make([]byte, 0, 64)
	for i, col := range columns {
		v := values[i]
		if v == nil {
			pos := i + 2
			bitmap[pos/8] |= 1 << (uint(pos) % 8)
			continue
		}
		encoded, err := encodeBinaryValue(body, col, string(v))
		if err != nil {
			return nil, errors.Annotatef(err, "encode column %s", col.Name)
		}
		body = encoded
	}
	payload := make([]byte, 0, 1+len(bitmap)+len(body))
	payload = append(payload, 0x00)
	payload = append(payload, bitmap...)
	return append(payload, body...), nil
}

func encodeBinaryValue(buf []byte, col *mysql.ColumnDescriptor, s string) ([]byte, error) {
	if w := fixedWidth(col.Type); w > 0 && mysql.IsIntegerType(col.Type) {
		var u uint64
		if col.IsUnsigned() {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, err
			}
			u = v
		} else {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, err
			}
			u = uint64(v)
		}
		switch w {
		case 1:
			return util.WriteByte(buf, byte(u)), nil
		case 2:
			return util.WriteUB2(buf, uint16(u)), nil
		case 4:
			return util.WriteUB4(buf, uint32(u)), nil
		default:
			return util.WriteUB8(buf, u), nil
		}
	}
	switch col.Type {
	case mysql.TypeFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, err
		}
		return util.WriteUB4(buf, math.Float32bits(float32(f))), nil
	case mysql.TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		return util.WriteUB8(buf, math.Float64bits(f)), nil
	case mysql.TypeDate, mysql.TypeNewDate, mysql.TypeDatetime, mysql.TypeTimestamp:
		v, err := parseDatetime(s)
		if err != nil {
			return nil, err
		}
		return append(util.WriteByte(buf, byte(len(v))), v...), nil
	case mysql.TypeDuration:
		v, err := parseDuration(s)
		if err != nil {
			return nil, err
		}
		return append(util.WriteByte(buf, byte(len(v))), v...), nil
	}
	return util.WriteWithLength(buf, []byte(s)), nil
}

func fraction(micro uint32, decimals byte) string {
	if decimals == 0 || decimals > 6 {
		if micro == 0 {
			return ""
		}
		decimals = 6
	}
	return "." + fmt.Sprintf("%06d", micro)[:decimals]
}

// formatDatetime 二进制日期时间: year(2) month day [hour minute second [micro(4)]]
func formatDatetime(v []byte, col *mysql.ColumnDescriptor) string {
	var year uint16
	var month, day, hour, minute, second byte
	var micro uint32
	if len(v) >= 4 {
		_, year = util.ReadUB2(v, 0)
		month, day = v[2], v[3]
	}
	if len(v) >= 7 {
		hour, minute, second = v[4], v[5], v[6]
	}
	if len(v) >= 11 {
		_, micro = util.ReadUB4(v, 7)
	}
	date := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	if col.Type == mysql.TypeDate || col.Type == mysql.TypeNewDate {
		return date
	}
	return date + fmt.Sprintf(" %02d:%02d:%02d", hour, minute, second) + fraction(micro, col.Decimals)
}

// formatDuration 二进制时间: negative(1) days(4) hour minute second [micro(4)]
func formatDuration(v []byte, col *mysql.ColumnDescriptor) string {
	if len(v) < 8 {
		return "00:00:00"
	}
	sign := ""
	if v[0] == 1 {
		sign = "-"
	}
	_, days := util.ReadUB4(v, 1)
	hours := days*24 + uint32(v[5])
	var micro uint32
	if len(v) >= 12 {
		_, micro = util.ReadUB4(v, 8)
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, hours, v[6], v[7]) + fraction(micro, col.Decimals)
}

func splitFraction(s string) (string, uint32, error) {
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return s, 0, nil
	}
	frac := (s[idx+1:] + "000000")[:6]
	micro, err := strconv.ParseUint(frac, 10, 32)
	if err != nil {
		return "", 0, err
	}
	return s[:idx], uint32(micro), nil
}

func parseDatetime(s string) ([]byte, error) {
	s, micro, err := splitFraction(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	var year, month, day, hour, minute, second int
	n, _ := fmt.Sscanf(s, "%d-%d-%d %d:%d:%d", &year, &month, &day, &hour, &minute, &second)
	if n < 3 {
		return nil, errors.Errorf("invalid datetime %q", s)
	}
	out := util.WriteUB2(nil, uint16(year))
	out = append(out, byte(month), byte(day))
	if year == 0 && month == 0 && day == 0 && hour == 0 && minute == 0 && second == 0 && micro == 0 {
		return nil, nil
	}
	if hour == 0 && minute == 0 && second == 0 && micro == 0 {
		return out, nil
	}
	out = append(out, byte(hour), byte(minute), byte(second))
	if micro == 0 {
		return out, nil
	}
	return util.WriteUB4(out, micro), nil
}

func parseDuration(s string) ([]byte, error) {
	s, micro, err := splitFraction(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	negative := byte(0)
	if strings.HasPrefix(s, "-") {
		negative = 1
		s = s[1:]
	}
	var hours, minute, second int
	if n, _ := fmt.Sscanf(s, "%d:%d:%d", &hours, &minute, &second); n < 3 {
		return nil, errors.Errorf("invalid time %q", s)
	}
	if hours == 0 && minute == 0 && second == 0 && micro == 0 {
		return nil, nil
	}
	out := []byte{negative}
	out = util.WriteUB4(out, uint32(hours/24))
	out = append(out, byte(hours%24), byte(minute), byte(second))
	if micro == 0 {
		return out, nil
	}
	return util.WriteUB4(out, micro), nil
}
