package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
)

func TestClassify(t *testing.T) {
	classic := Classifier{}
	deprecated := Classifier{DeprecateEOF: true}

	t.Run("ErrorWithSqlstate", func(t *testing.T) {
		frame, err := classic.Classify(EncodeError(1146, "42S02", "Table 'shop.items' doesn't exist"))
		require.NoError(t, err)
		require.Equal(t, FrameError, frame.Kind)
		assert.Equal(t, uint16(1146), frame.Err.Code)
		assert.Equal(t, "42S02", frame.Err.State)
		assert.Equal(t, "Table 'shop.items' doesn't exist", frame.Err.Message)
		assert.True(t, mysql.IsServerError(frame.Err))
	})

	t.Run("ErrorWithoutSqlstate", func(t *testing.T) {
		frame, err := classic.Classify([]byte{0xFF, 0x10, 0x04, 'T', 'o', 'o'})
		require.NoError(t, err)
		require.Equal(t, FrameError, frame.Kind)
		assert.Equal(t, uint16(1040), frame.Err.Code)
		assert.Equal(t, "HY000", frame.Err.State)
		assert.Equal(t, "Too", frame.Err.Message)
	})

	t.Run("ClassicEOF", func(t *testing.T) {
		frame, err := classic.Classify(EncodeEOF(2, mysql.ServerStatusCursorExists|mysql.ServerStatusLastRowSent))
		require.NoError(t, err)
		require.Equal(t, FrameEnd, frame.Kind)
		assert.Equal(t, uint16(2), frame.Flags.WarningCount)
		assert.True(t, frame.Flags.LastRowSent())
		assert.True(t, frame.Flags.HasWarnings())
		assert.False(t, frame.Flags.OutParams())
	})

	t.Run("PreProtocol41EOF", func(t *testing.T) {
		frame, err := classic.Classify([]byte{0xFE})
		require.NoError(t, err)
		assert.Equal(t, FrameEnd, frame.Kind)
		assert.Equal(t, StreamFlags{}, frame.Flags)
	})

	t.Run("MalformedEOF", func(t *testing.T) {
		_, err := classic.Classify([]byte{0xFE, 0x00, 0x00})
		assert.Error(t, err)
	})

	t.Run("RowStartingWithEOFHeader", func(t *testing.T) {
		buf := append([]byte{0xFE}, make([]byte, 9)...)
		frame, err := classic.Classify(buf)
		require.NoError(t, err)
		assert.Equal(t, FrameRow, frame.Kind)
		assert.Equal(t, buf, frame.Row)
	})

	t.Run("DeprecatedEOFSkipsLengthEncodedFields", func(t *testing.T) {
		// affected rows as 0xFC two-byte integer, insert id as 0xFB
		buf := []byte{0xFE, 0xFC, 0x05, 0x00, 0xFB, 0x22, 0x10, 0x01, 0x00}
		frame, err := deprecated.Classify(buf)
		require.NoError(t, err)
		require.Equal(t, FrameEnd, frame.Kind)
		assert.Equal(t, uint16(0x1022), frame.Flags.ServerStatus)
		assert.Equal(t, uint16(1), frame.Flags.WarningCount)
		assert.True(t, frame.Flags.OutParams())
	})

	t.Run("DeprecatedEOFFromEncoder", func(t *testing.T) {
		buf := EncodeOK(EOFHeader, 70000, 1<<40, mysql.ServerMoreResultsExists, 0, "")
		frame, err := deprecated.Classify(buf)
		require.NoError(t, err)
		require.Equal(t, FrameEnd, frame.Kind)
		assert.True(t, frame.Flags.MoreResultsExist())
	})

	t.Run("DeprecatedEOFTruncated", func(t *testing.T) {
		_, err := deprecated.Classify([]byte{0xFE, 0xFC, 0x05})
		assert.Error(t, err)
	})

	t.Run("HugeRowStartingWithEOFHeader", func(t *testing.T) {
		buf := make([]byte, deprecatedEOFMaxLength)
		buf[0] = EOFHeader
		frame, err := deprecated.Classify(buf)
		require.NoError(t, err)
		assert.Equal(t, FrameRow, frame.Kind)
	})

	t.Run("RegularRow", func(t *testing.T) {
		row := EncodeTextRow([][]byte{[]byte("1"), nil, []byte("abc")})
		assert.Equal(t, len(row), cap(row))
		frame, err := deprecated.Classify(row)
		require.NoError(t, err)
		assert.Equal(t, FrameRow, frame.Kind)
		assert.Equal(t, []byte{0x01, '1', NullMark, 0x03, 'a', 'b', 'c'}, frame.Row)
	})

	t.Run("EmptyFrame", func(t *testing.T) {
		frame, err := classic.Classify(nil)
		require.NoError(t, err)
		assert.Equal(t, FrameRow, frame.Kind)
	})
}

func TestOKPacket(t *testing.T) {
	buf := EncodeOK(OKHeader, 5, 7, mysql.ServerStatusAutocommit, 1, "Rows matched: 5  Changed: 5  Warnings: 1")
	ok, err := DecodeOk(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), ok.AffectedRows)
	assert.Equal(t, uint64(7), ok.InsertID)
	assert.Equal(t, mysql.ServerStatusAutocommit, ok.ServerStatus)
	assert.Equal(t, uint16(1), ok.WarningNum)
	assert.Equal(t, "Rows matched: 5  Changed: 5  Warnings: 1", ok.Info)

	_, err = DecodeOk([]byte{0x00, 0x01})
	assert.Error(t, err)

	_, err = DecodeOk([]byte{0x00, 0xFE, 0x01, 0x02, 0x03, 0x04, 0x05})
	assert.Error(t, err)

	_, err = ReadColumnCount([]byte{0xFC, 0x01})
	assert.Error(t, err)
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource([]byte{1})
	src.Append([]byte{2})
	assert.Equal(t, 2, src.Remaining())

	f, err := src.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, f)
	_, err = src.NextFrame()
	require.NoError(t, err)
	_, err = src.NextFrame()
	assert.Error(t, err)
	assert.Equal(t, 3, src.Reads())
	assert.Equal(t, 0, src.Remaining())
}

func TestFrameKindString(t *testing.T) {
	assert.Equal(t, "ROW", FrameRow.String())
	assert.Equal(t, "ERROR", FrameError.String())
	assert.Equal(t, "END", FrameEnd.String())
}
