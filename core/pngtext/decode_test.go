package pngtext

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/pngmeta/core/errors"
)

func chunkOf(rc rawChunk) Chunk {
	var tag [4]byte
	copy(tag[:], rc.typ)
	return Chunk{
		Header:  Header{Length: uint32(len(rc.data)), Type: tag, Kind: KindOf(tag)},
		Offset:  8,
		Payload: rc.data,
	}
}

func TestDecodeTextPlain(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantKey   string
		wantValue string
	}{
		{"keyword and value", "Prompt\x00a cat", "Prompt", "a cat"},
		{"no separator", "Title", "Title", ""},
		{"empty value", "Comment\x00", "Comment", ""},
		{"empty keyword", "\x00value", "", "value"},
		{"empty payload", "", "", ""},
		{"first null wins", "a\x00b\x00c", "a", "b\x00c"},
		{"multiline value", "parameters\x00a cat\nSteps: 20, Seed: 1", "parameters", "a cat\nSteps: 20, Seed: 1"},
		{"utf8 kept", "prompt\x00日本の猫", "prompt", "日本の猫"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, v, err := DecodeText(chunkOf(tEXt(tt.payload)))
			require.NoError(t, err)
			require.Equal(t, tt.wantKey, k)
			require.Equal(t, tt.wantValue, v)
		})
	}
}

func TestDecodeTextLatin1(t *testing.T) {
	// 0xE9 is é in ISO-8859-1 and invalid on its own in UTF-8
	k, v, err := DecodeText(chunkOf(rawChunk{"tEXt", []byte("Author\x00Ren\xe9")}))
	require.NoError(t, err)
	require.Equal(t, "Author", k)
	require.Equal(t, "René", v)
}

func TestDecodeTextCompressed(t *testing.T) {
	k, v, err := DecodeText(chunkOf(zTXt(t, 0, "Seed\x00123")))
	require.NoError(t, err)
	require.Equal(t, "Seed", k)
	require.Equal(t, "123", v)
}

func TestDecodeTextUnsupportedCompression(t *testing.T) {
	_, _, err := DecodeText(chunkOf(zTXt(t, 1, "Seed\x00123")))
	require.ErrorIs(t, err, errors.ErrUnsupportedCompression)

	var de *errors.DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, "zTXt", de.ChunkType)
	require.Equal(t, 8, de.Offset)
}

func TestDecodeTextCorruptStream(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty payload", nil},
		{"method only", []byte{0}},
		{"garbage", []byte{0, 'n', 'o', 't', ' ', 'z', 'l', 'i', 'b'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeText(chunkOf(rawChunk{"zTXt", tt.payload}))
			require.ErrorIs(t, err, errors.ErrCorruptStream)
			require.True(t, errors.IsChunkLevel(err))
		})
	}

	t.Run("truncated stream", func(t *testing.T) {
		good := zTXt(t, 0, "Seed\x00123456789").data
		_, _, err := DecodeText(chunkOf(rawChunk{"zTXt", good[:len(good)-6]}))
		require.ErrorIs(t, err, errors.ErrCorruptStream)
	})
}

func TestDecodeTextNotText(t *testing.T) {
	_, _, err := DecodeText(chunkOf(rawChunk{"IDAT", []byte{1, 2}}))
	require.ErrorIs(t, err, errors.ErrNotText)
}
