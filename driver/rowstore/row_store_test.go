package rowstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
)

func testColumns() []*mysql.ColumnDescriptor {
	return []*mysql.ColumnDescriptor{
		{Name: "id", Type: mysql.TypeLong, Flags: mysql.PriKeyFlag | mysql.NotNullFlag},
		{Name: "name", Type: mysql.TypeVarString, Charset: 33},
		{Name: "price", Type: mysql.TypeNewDecimal, Decimals: 2},
	}
}

func textRow(values ...string) []byte {
	raw := make([][]byte, len(values))
	for i, v := range values {
		if v != "\x00NULL" {
			raw[i] = []byte(v)
		}
	}
	row, _ := textCodecInstance.Encode(nil, raw)
	return row
}

const null = "\x00NULL"

func TestRowStore_AppendAndRead(t *testing.T) {
	s := NewRowStore(testColumns(), CodecFor(false))
	for _, r := range [][]string{{"1", "apple", "1.50"}, {"2", null, "2.00"}} {
		_, err := s.Append(textRow(r...))
		require.NoError(t, err)
	}
	s.MarkKnown()
	assert.Equal(t, 2, s.Size())

	t.Run("before first", func(t *testing.T) {
		_, err := s.GetInt64(1)
		assert.True(t, mysql.IsOutOfRange(err))
	})

	t.Run("typed accessors", func(t *testing.T) {
		s.SetPointer(0)
		id, err := s.GetInt64(1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		name, err := s.GetString(2)
		require.NoError(t, err)
		assert.Equal(t, "apple", name)
		price, err := s.GetDecimal(3)
		require.NoError(t, err)
		assert.Equal(t, "1.5", price.String())
		// backwards column access restarts the decode cursor
		id, err = s.GetInt64(1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
	})

	t.Run("null column", func(t *testing.T) {
		s.SetPointer(1)
		name, err := s.GetString(2)
		require.NoError(t, err)
		assert.Equal(t, "", name)
		assert.True(t, s.WasNull())
		id, err := s.GetInt64(1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), id)
		assert.False(t, s.WasNull())
	})

	t.Run("column out of range", func(t *testing.T) {
		_, err := s.GetInt64(0)
		assert.True(t, mysql.IsOutOfRange(err))
		_, err = s.GetInt64(4)
		assert.True(t, mysql.IsOutOfRange(err))
	})

	t.Run("after last", func(t *testing.T) {
		s.SetPointer(2)
		_, err := s.GetString(2)
		assert.True(t, mysql.IsOutOfRange(err))
	})
}

func TestRowStore_RemoveInsertReplace(t *testing.T) {
	s := NewRowStore(testColumns(), CodecFor(false))
	for _, id := range []string{"1", "2", "3"} {
		_, err := s.Append(textRow(id, "n"+id, "0"))
		require.NoError(t, err)
	}
	s.MarkKnown()

	s.SetPointer(1)
	id, err := s.GetInt64(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	// same pointer, different row after removal: cached cursor must be dropped
	require.NoError(t, s.RemoveAt(1))
	assert.Equal(t, 2, s.Size())
	id, err = s.GetInt64(1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	require.NoError(t, s.Replace(1, textRow("30", "thirty", "9.99")))
	name, err := s.GetString(2)
	require.NoError(t, err)
	assert.Equal(t, "thirty", name)

	require.NoError(t, s.InsertAt(0, textRow("0", "zero", "0")))
	assert.Equal(t, 3, s.Size())
	s.SetPointer(0)
	id, err = s.GetInt64(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)

	assert.True(t, mysql.IsOutOfRange(s.RemoveAt(5)))
	assert.True(t, mysql.IsOutOfRange(s.InsertAt(-1, nil)))
}

func TestRowStore_Grow(t *testing.T) {
	s := NewRowStore(testColumns(), CodecFor(false))
	for i := 0; i < 100; i++ {
		idx, err := s.Append(textRow("1", "x", "0"))
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}
	assert.Equal(t, 100, s.Len())
	assert.Equal(t, SizeUnknown, s.Size())
	assert.GreaterOrEqual(t, cap(s.rows), 100)
}

func TestRowStore_DiscardConsumed(t *testing.T) {
	s := NewRowStore(testColumns(), CodecFor(false))
	for _, id := range []string{"1", "2", "3", "4"} {
		_, _ = s.Append(textRow(id, "x", "0"))
	}
	s.SetPointer(3)
	s.DiscardConsumed()
	assert.Equal(t, 3, s.Discarded())
	assert.Equal(t, 0, s.Pointer())
	assert.Equal(t, 1, s.Len())
	id, err := s.GetInt64(1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestRowStore_CloneEmptySharesNothing(t *testing.T) {
	s := NewRowStore(testColumns(), CodecFor(true))
	_, _ = s.Append([]byte{0x00, 0x00})
	clone := s.CloneEmpty()
	assert.Equal(t, 0, clone.Size())
	assert.True(t, clone.Codec().Binary())
	clone.Columns()[0].Name = "changed"
	assert.Equal(t, "id", s.Columns()[0].Name)
}

func TestRowStore_FindColumn(t *testing.T) {
	s := NewRowStore(testColumns(), CodecFor(false))
	idx, err := s.FindColumn("NAME")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	_, err = s.FindColumn("missing")
	assert.True(t, mysql.IsInvalidOperation(err))
}

func TestRowStore_GetBool(t *testing.T) {
	cols := []*mysql.ColumnDescriptor{
		{Name: "flag", Type: mysql.TypeTiny},
		{Name: "txt", Type: mysql.TypeVarString},
	}
	s := NewRowStore(cols, CodecFor(false))
	_, _ = s.Append(textRow("1", "false"))
	s.SetPointer(0)
	b, err := s.GetBool(1)
	require.NoError(t, err)
	assert.True(t, b)
	b, err = s.GetBool(2)
	require.NoError(t, err)
	assert.False(t, b)
}
