package pngtext

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/FocuswithJustin/pngmeta/core/errors"
)

// MaxInflatedSize caps the decompressed size of one zTXt chunk.
const MaxInflatedSize = 32 << 20

// compressionDeflate is the only zTXt compression method PNG defines.
const compressionDeflate = 0

// DecodeText returns the keyword and value carried by a text chunk.
//
// The first NUL byte separates the keyword from the value. Without a NUL
// the whole text is the keyword and the value is empty. Any further NUL
// bytes stay in the value.
func DecodeText(c Chunk) (keyword, value string, err error) {
	var blob []byte
	switch c.Kind {
	case KindPlainText:
		blob = c.Payload
	case KindCompressedText:
		blob, err = inflate(c)
		if err != nil {
			return "", "", err
		}
	default:
		return "", "", errors.NewDecode(errors.NotText, c.TypeName(), c.Offset, nil)
	}

	k, v, _ := bytes.Cut(blob, []byte{0})
	return toText(k), toText(v), nil
}

// inflate decompresses a zTXt payload: one method byte, then a zlib stream.
func inflate(c Chunk) ([]byte, error) {
	if len(c.Payload) == 0 {
		return nil, errors.NewDecode(errors.CorruptStream, c.TypeName(), c.Offset, io.ErrUnexpectedEOF)
	}
	if method := c.Payload[0]; method != compressionDeflate {
		return nil, errors.NewDecode(errors.UnsupportedCompression, c.TypeName(), c.Offset,
			fmt.Errorf("method %d", method))
	}

	zr, err := zlib.NewReader(bytes.NewReader(c.Payload[1:]))
	if err != nil {
		return nil, errors.NewDecode(errors.CorruptStream, c.TypeName(), c.Offset, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, MaxInflatedSize+1))
	if err != nil {
		return nil, errors.NewDecode(errors.CorruptStream, c.TypeName(), c.Offset, err)
	}
	if len(out) > MaxInflatedSize {
		return nil, errors.NewDecode(errors.CorruptStream, c.TypeName(), c.Offset,
			fmt.Errorf("inflated text exceeds %d bytes", MaxInflatedSize))
	}
	return out, nil
}

// toText returns b as a string. UTF-8 is kept as is, which is what most
// image generators write; anything else is read as ISO-8859-1, the
// encoding PNG prescribes for text chunks.
func toText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
