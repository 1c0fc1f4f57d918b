package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
)

func itemColumns() []*mysql.ColumnDescriptor {
	return []*mysql.ColumnDescriptor{
		{Database: "shop", Table: "i", OrgTable: "items", Name: "item_id", OrgName: "id",
			Charset: 63, Length: 20, Type: mysql.TypeLonglong, Flags: mysql.PriKeyFlag | mysql.NotNullFlag | mysql.AutoIncrementFlag},
		{Database: "shop", Table: "i", OrgTable: "items", Name: "price", OrgName: "price",
			Charset: 63, Length: 12, Type: mysql.TypeNewDecimal, Decimals: 2},
	}
}

func TestColumnDefinition(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, col := range itemColumns() {
			got, err := DecodeColumnDefinition(EncodeColumnDefinition(col))
			require.NoError(t, err)
			assert.Equal(t, "def", got.Catalog)
			assert.Equal(t, col.Database, got.Database)
			assert.Equal(t, col.Table, got.Table)
			assert.Equal(t, col.OrgTable, got.OrgTable)
			assert.Equal(t, col.Name, got.Name)
			assert.Equal(t, col.OrgName, got.OrgName)
			assert.Equal(t, col.Charset, got.Charset)
			assert.Equal(t, col.Length, got.Length)
			assert.Equal(t, col.Type, got.Type)
			assert.Equal(t, col.Flags, got.Flags)
			assert.Equal(t, col.Decimals, got.Decimals)
		}
	})

	t.Run("Flags", func(t *testing.T) {
		got, err := DecodeColumnDefinition(EncodeColumnDefinition(itemColumns()[0]))
		require.NoError(t, err)
		assert.True(t, got.IsPrimaryKey())
		assert.True(t, got.IsAutoIncrement())
		assert.False(t, got.IsNullable())
		assert.Equal(t, "id", got.SourceName())
		assert.Equal(t, "items", got.SourceTable())
	})

	t.Run("TooShort", func(t *testing.T) {
		buf := EncodeColumnDefinition(itemColumns()[0])
		_, err := DecodeColumnDefinition(buf[:len(buf)-8])
		assert.Error(t, err)
	})
}

func TestReadColumns(t *testing.T) {
	frames := func() [][]byte {
		var out [][]byte
		for _, c := range itemColumns() {
			out = append(out, EncodeColumnDefinition(c))
		}
		return out
	}

	t.Run("WithIntermediateEOF", func(t *testing.T) {
		src := NewMemorySource(frames()...)
		src.Append(EncodeEOF(0, 0))
		cols, err := ReadColumns(src, 2, false)
		require.NoError(t, err)
		require.Len(t, cols, 2)
		assert.Equal(t, "price", cols[1].Name)
		assert.Equal(t, 0, src.Remaining())
	})

	t.Run("DeprecateEOF", func(t *testing.T) {
		src := NewMemorySource(frames()...)
		src.Append(EncodeTextRow([][]byte{[]byte("1"), []byte("9.99")}))
		cols, err := ReadColumns(src, 2, true)
		require.NoError(t, err)
		assert.Len(t, cols, 2)
		assert.Equal(t, 1, src.Remaining())
	})

	t.Run("MissingEOF", func(t *testing.T) {
		src := NewMemorySource(frames()...)
		src.Append(EncodeTextRow([][]byte{[]byte("1")}))
		_, err := ReadColumns(src, 2, false)
		assert.Error(t, err)
	})

	t.Run("ErrorPacket", func(t *testing.T) {
		src := NewMemorySource(EncodeError(1054, "42S22", "Unknown column 'x' in 'field list'"))
		_, err := ReadColumns(src, 1, true)
		require.Error(t, err)
		assert.True(t, mysql.IsServerError(err))
	})

	t.Run("Truncated", func(t *testing.T) {
		src := NewMemorySource(frames()[0])
		_, err := ReadColumns(src, 2, true)
		assert.True(t, mysql.IsTransportFailure(err))
	})

	t.Run("ColumnCount", func(t *testing.T) {
		n, err := ReadColumnCount(EncodeColumnCount(300))
		require.NoError(t, err)
		assert.Equal(t, 300, n)
		_, err = ReadColumnCount([]byte{0xFB})
		assert.Error(t, err)
	})
}
