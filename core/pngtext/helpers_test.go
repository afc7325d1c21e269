package pngtext

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

const pngSignature = "\x89PNG\r\n\x1a\n"

type rawChunk struct {
	typ  string
	data []byte
}

// buildPNG assembles a PNG byte stream from the given chunks.
func buildPNG(chunks ...rawChunk) []byte {
	var buf bytes.Buffer
	buf.WriteString(pngSignature)
	for _, c := range chunks {
		writeChunk(&buf, c.typ, c.data)
	}
	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	buf.Write(n[:])
	buf.WriteString(typ)
	buf.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	binary.BigEndian.PutUint32(n[:], crc.Sum32())
	buf.Write(n[:])
}

func ihdr() rawChunk {
	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:4], 1)
	binary.BigEndian.PutUint32(data[4:8], 1)
	data[8] = 8 // bit depth
	data[9] = 6 // RGBA
	return rawChunk{"IHDR", data}
}

func iend() rawChunk {
	return rawChunk{"IEND", nil}
}

func tEXt(text string) rawChunk {
	return rawChunk{"tEXt", []byte(text)}
}

func zTXt(t testing.TB, method byte, text string) rawChunk {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteByte(method)
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte(text)); err != nil {
		t.Fatalf("failed to compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zlib writer: %v", err)
	}
	return rawChunk{"zTXt", buf.Bytes()}
}

// scanAll drains a Scanner over data and returns every chunk it produced.
func scanAll(data []byte) ([]Chunk, error) {
	s, err := NewScanner(data)
	if err != nil {
		return nil, err
	}
	var chunks []Chunk
	for s.Next() {
		chunks = append(chunks, s.Chunk())
	}
	return chunks, s.Err()
}
