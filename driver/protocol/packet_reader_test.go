package protocol

import (
	"bytes"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompressType(t *testing.T) {
	cases := map[string]CompressType{
		"":       CompressNone,
		"none":   CompressNone,
		"zip":    CompressZip,
		"FLATE":  CompressZip,
		"snappy": CompressSnappy,
		"lz4":    CompressLz4,
		"gzip":   CompressNone,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseCompressType(in), in)
	}
}

func TestPacketRoundTrip(t *testing.T) {
	small := EncodeTextRow([][]byte{[]byte("42"), []byte("hello")})
	exact := bytes.Repeat([]byte{'x'}, MaxPacketSize)
	large := bytes.Repeat([]byte("abcdefgh"), MaxPacketSize/8+100)

	for _, compress := range []CompressType{CompressNone, CompressZip, CompressSnappy, CompressLz4} {
		compress := compress
		t.Run(compressName(compress), func(t *testing.T) {
			var stream bytes.Buffer
			w := NewPacketWriter(&stream, compress)
			for _, p := range [][]byte{small, exact, large, EncodeEOF(0, 0)} {
				require.NoError(t, w.WritePacket(p))
			}
			require.NoError(t, w.Close())

			r := NewPacketReader(bytes.NewReader(stream.Bytes()), compress)
			for _, want := range [][]byte{small, exact, large} {
				got, err := r.NextFrame()
				require.NoError(t, err)
				require.Equal(t, len(want), len(got))
				assert.True(t, bytes.Equal(want, got))
			}
			frame, err := r.NextFrame()
			require.NoError(t, err)
			classified, err := Classifier{}.Classify(frame)
			require.NoError(t, err)
			assert.Equal(t, FrameEnd, classified.Kind)

			_, pkgs := r.Stats()
			assert.Equal(t, uint32(4), pkgs)

			_, err = r.NextFrame()
			assert.Error(t, err)
		})
	}
}

func compressName(c CompressType) string {
	switch c {
	case CompressZip:
		return "zip"
	case CompressSnappy:
		return "snappy"
	case CompressLz4:
		return "lz4"
	}
	return "none"
}

func TestPacketReaderErrors(t *testing.T) {
	t.Run("SequenceMismatch", func(t *testing.T) {
		stream := append(addPacketHeader([]byte{0x01}, 0), addPacketHeader([]byte{0x02}, 5)...)
		r := NewPacketReader(bytes.NewReader(stream), CompressNone)
		_, err := r.NextFrame()
		require.NoError(t, err)
		_, err = r.NextFrame()
		require.Error(t, err)
		assert.Equal(t, ErrPacketSequence, errors.Cause(err))
	})

	t.Run("ResetSequence", func(t *testing.T) {
		stream := append(addPacketHeader([]byte{0x01}, 0), addPacketHeader([]byte{0x02}, 0)...)
		r := NewPacketReader(bytes.NewReader(stream), CompressNone)
		_, err := r.NextFrame()
		require.NoError(t, err)
		r.ResetSequence()
		frame, err := r.NextFrame()
		require.NoError(t, err)
		assert.Equal(t, []byte{0x02}, frame)
	})

	t.Run("TruncatedBody", func(t *testing.T) {
		stream := addPacketHeader([]byte("0123456789"), 0)[:8]
		r := NewPacketReader(bytes.NewReader(stream), CompressNone)
		_, err := r.NextFrame()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read packet body(len:10)")
	})

	t.Run("TruncatedHeader", func(t *testing.T) {
		r := NewPacketReader(bytes.NewReader([]byte{0x01, 0x00}), CompressNone)
		_, err := r.NextFrame()
		assert.Error(t, err)
	})
}
