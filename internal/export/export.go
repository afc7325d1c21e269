// Package export writes rendered metadata to disk and reads image files
// for scanning.
package export

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/pngmeta/core/cas"
	"github.com/FocuswithJustin/pngmeta/core/errors"
	"github.com/FocuswithJustin/pngmeta/core/metadata"
	"github.com/FocuswithJustin/pngmeta/core/render"
	"github.com/FocuswithJustin/pngmeta/internal/validation"
)

// Injectable for tests.
var (
	gzipNewWriterLevel = gzip.NewWriterLevel
	xzNewWriter        = xz.NewWriter
	writeFileAtomic    = cas.WriteFileAtomic
)

// Format is the content written by an export.
type Format string

const (
	// FormatText writes the rendered text block.
	FormatText Format = "text"
	// FormatJSON writes the metadata as an ordered JSON object.
	FormatJSON Format = "json"
)

// Compression is applied to the exported bytes.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionXZ   Compression = "xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// Options configures Write.
type Options struct {
	Compress Compression
	Perm     os.FileMode // defaults to 0644
}

// Result describes a finished export.
type Result struct {
	Path    string     `json:"path"`
	Bytes   int        `json:"bytes"`   // uncompressed content length
	Written int        `json:"written"` // bytes on disk
	Digest  cas.Digest `json:"digest"`  // of the uncompressed content
}

// ParseFormat validates a format name. The empty string selects FormatText.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", errors.NewValidation("format", fmt.Sprintf("unknown export format %q", s))
}

// ParseCompression validates a compression name. The empty string selects
// CompressionNone.
func ParseCompression(s string) (Compression, error) {
	switch Compression(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip, "gz":
		return CompressionGzip, nil
	case CompressionXZ:
		return CompressionXZ, nil
	}
	return "", errors.NewValidation("compress", fmt.Sprintf("unknown compression %q", s))
}

// DefaultName is the export file name for the given format and
// compression, without any source prefix.
func DefaultName(f Format, c Compression) string {
	name := "metadata.txt"
	if f == FormatJSON {
		name = "metadata.json"
	}
	switch c {
	case CompressionGzip:
		name += ".gz"
	case CompressionXZ:
		name += ".xz"
	}
	return name
}

// NameFor names the export of source when only a directory is given:
// the sanitized source stem followed by DefaultName, or DefaultName alone
// when the stem cannot be made into a valid file name.
func NameFor(source string, f Format, c Compression) string {
	suffix := DefaultName(f, c)
	base := filepath.Base(source)
	stem, err := validation.SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return suffix
	}
	name := stem + "." + suffix
	if validation.ValidateFilename(name) != nil {
		return suffix
	}
	return name
}

// Content produces the export body for m. Text is the full, untruncated
// rendering in the given style.
func Content(m *metadata.Map, f Format, style render.Style) (string, error) {
	if f != FormatJSON {
		return render.Render(m, style)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return "", errors.Wrap(err, "encode metadata")
	}
	return buf.String(), nil
}

// Write stores text at path, compressed as requested. The file is
// replaced atomically; a failed write leaves no partial output. path must
// name a file, not a directory.
func Write(path, text string, opts Options) (Result, error) {
	if path == "" {
		return Result{}, errors.NewValidation("out", "must not be empty")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return Result{}, errors.NewValidation("out", path+" is a directory")
	}
	perm := opts.Perm
	if perm == 0 {
		perm = 0o644
	}

	data, err := compress([]byte(text), opts.Compress)
	if err != nil {
		return Result{}, err
	}
	if err := writeFileAtomic(path, data, perm); err != nil {
		return Result{}, errors.NewIO("write", path, err)
	}

	return Result{
		Path:    path,
		Bytes:   len(text),
		Written: len(data),
		Digest:  cas.Sum([]byte(text)),
	}, nil
}

func compress(data []byte, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error

	switch c {
	case "", CompressionNone:
		return data, nil
	case CompressionGzip:
		w, err = gzipNewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
	case CompressionXZ:
		w, err = xzNewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
	default:
		return nil, errors.NewValidation("compress", fmt.Sprintf("unknown compression %q", c))
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish compression: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify reads the exported file back and checks it against the digest
// recorded by Write.
func Verify(res Result) error {
	data, err := ReadBack(res.Path)
	if err != nil {
		return err
	}
	got := cas.Sum(data)
	if got != res.Digest {
		return fmt.Errorf("verify %s: blake3 %s, want %s", res.Path, got.BLAKE3, res.Digest.BLAKE3)
	}
	return nil
}

// DetectCompression inspects the leading magic bytes.
func DetectCompression(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, xzMagic):
		return CompressionXZ
	case bytes.HasPrefix(data, gzipMagic):
		return CompressionGzip
	}
	return CompressionNone
}

// ReadBack returns the uncompressed content of an exported file.
func ReadBack(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}

	var r io.Reader
	switch DetectCompression(data) {
	case CompressionGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gr.Close()
		r = gr
	case CompressionXZ:
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xr
	default:
		return data, nil
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return out, nil
}
