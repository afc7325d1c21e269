package pngtext

import (
	"encoding/binary"
	"fmt"

	"github.com/FocuswithJustin/pngmeta/core/errors"
)

const (
	// signatureLen is the size of the PNG file signature.
	signatureLen = 8
	// chunkOverhead is length + type + CRC.
	chunkOverhead = 12
)

// Kind classifies a chunk by its type tag.
type Kind int

const (
	// KindOther is any chunk that does not carry keyword/value text.
	KindOther Kind = iota
	// KindPlainText is a tEXt chunk.
	KindPlainText
	// KindCompressedText is a zTXt chunk.
	KindCompressedText
)

func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "tEXt"
	case KindCompressedText:
		return "zTXt"
	default:
		return "other"
	}
}

// IsText reports whether chunks of this kind are handed to DecodeText.
func (k Kind) IsText() bool {
	return k == KindPlainText || k == KindCompressedText
}

// KindOf maps a 4-byte type tag to its Kind.
func KindOf(tag [4]byte) Kind {
	switch string(tag[:]) {
	case "tEXt":
		return KindPlainText
	case "zTXt":
		return KindCompressedText
	default:
		return KindOther
	}
}

// Header is the length and type of one chunk.
type Header struct {
	Length uint32
	Type   [4]byte
	Kind   Kind
}

// TypeName returns the type tag as a string.
func (h Header) TypeName() string {
	return string(h.Type[:])
}

// Chunk is a header plus its payload. Payload aliases the scanned buffer
// and is only valid until the buffer is reused.
type Chunk struct {
	Header
	Offset  int // offset of the length field
	Payload []byte
}

// Scanner walks the chunks of a PNG held in memory.
//
//	s, err := pngtext.NewScanner(data)
//	for s.Next() {
//		c := s.Chunk()
//		...
//	}
//	if err := s.Err(); err != nil { ... }
type Scanner struct {
	data []byte
	off  int
	cur  Chunk
	err  error
}

// NewScanner checks the signature and returns a scanner positioned at the
// first chunk. Only bytes 1-3 ("PNG") are compared; the rest of the
// signature is not validated.
func NewScanner(data []byte) (*Scanner, error) {
	if len(data) < 4 {
		return nil, errors.NewNotAPng(fmt.Sprintf("file is %d bytes", len(data)))
	}
	if string(data[1:4]) != "PNG" {
		return nil, errors.NewNotAPng("")
	}
	return &Scanner{data: data, off: signatureLen}, nil
}

// Next advances to the next chunk. It returns false at the end of the
// buffer or on error; check Err to tell them apart.
func (s *Scanner) Next() bool {
	if s.err != nil || s.off >= len(s.data) {
		return false
	}

	if s.off+4 > len(s.data) {
		s.err = errors.NewTruncated(s.off, "incomplete chunk length")
		return false
	}
	length := binary.BigEndian.Uint32(s.data[s.off : s.off+4])

	payloadStart := s.off + 8
	payloadEnd := uint64(payloadStart) + uint64(length)
	if payloadEnd > uint64(len(s.data)) {
		s.err = errors.NewTruncated(s.off, fmt.Sprintf("chunk declares %d bytes, %d remain", length, len(s.data)-min(payloadStart, len(s.data))))
		return false
	}

	var tag [4]byte
	copy(tag[:], s.data[s.off+4:payloadStart])

	s.cur = Chunk{
		Header: Header{
			Length: length,
			Type:   tag,
			Kind:   KindOf(tag),
		},
		Offset:  s.off,
		Payload: s.data[payloadStart:int(payloadEnd)],
	}
	s.off = int(payloadEnd) + 4
	return true
}

// Chunk returns the chunk produced by the last call to Next.
func (s *Scanner) Chunk() Chunk {
	return s.cur
}

// Err returns the first error met while scanning.
func (s *Scanner) Err() error {
	return s.err
}
