package rowstore

// RowBuffer 一行编码后的字节及其解码游标
//
// pos/length 指向当前列值，index 为当前列下标(从0开始，-1表示尚未定位)。
type RowBuffer struct {
	buf    []byte
	pos    int
	length int
	index  int
	isNull bool
}

func NewRowBuffer(buf []byte) *RowBuffer {
	rb := &RowBuffer{}
	rb.Reset(buf)
	return rb
}

// Reset 重新指向一行数据，游标回到行首
func (rb *RowBuffer) Reset(buf []byte) {
	rb.buf = buf
	rb.pos = 0
	rb.length = 0
	rb.index = -1
	rb.isNull = false
}

func (rb *RowBuffer) Bytes() []byte {
	return rb.buf
}

// Value 当前列值的原始字节，NULL 时返回 nil
func (rb *RowBuffer) Value() []byte {
	if rb.isNull {
		return nil
	}
	return rb.buf[rb.pos : rb.pos+rb.length]
}

func (rb *RowBuffer) IsNull() bool {
	return rb.isNull
}

func (rb *RowBuffer) Index() int {
	return rb.index
}

func (rb *RowBuffer) end() int {
	return rb.pos + rb.length
}

func (rb *RowBuffer) set(index, pos, length int, isNull bool) {
	rb.index = index
	rb.pos = pos
	rb.length = length
	rb.isNull = isNull
}
