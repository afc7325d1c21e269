package pngtext

import (
	"context"

	"github.com/FocuswithJustin/pngmeta/core/errors"
	"github.com/FocuswithJustin/pngmeta/core/metadata"
	"github.com/FocuswithJustin/pngmeta/internal/logging"
)

// Status is the outcome of a single-file scan.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
)

// Stats counts what a scan saw.
type Stats struct {
	Chunks     int // all chunks walked
	TextChunks int // tEXt and zTXt chunks
	Decoded    int // text chunks that produced a pair
	Skipped    int // text chunks dropped because of a DecodeError
}

// Result is the outcome of Extract or ReadFile. Metadata is never nil and
// is empty whenever Status is StatusFail.
type Result struct {
	Status   Status
	Metadata *metadata.Map
	Stats    Stats
	Err      error
}

// OK reports whether the scan succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// FileReader loads a whole file. Implementations may block; the scan itself
// never does.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// Collect scans data and returns the text pairs in chunk order. Chunk-level
// decode errors are logged and skipped. A file-level error returns an
// empty map along with the error.
func Collect(data []byte) (*metadata.Map, Stats, error) {
	var stats Stats

	s, err := NewScanner(data)
	if err != nil {
		return metadata.New(), stats, err
	}

	m := metadata.New()
	for s.Next() {
		c := s.Chunk()
		stats.Chunks++
		if !c.Kind.IsText() {
			continue
		}
		stats.TextChunks++

		k, v, err := DecodeText(c)
		if err != nil {
			if !errors.IsChunkLevel(err) {
				return metadata.New(), stats, err
			}
			stats.Skipped++
			logging.ChunkSkipped(c.TypeName(), c.Offset, err)
			continue
		}
		m.Set(k, v)
		stats.Decoded++
	}
	if err := s.Err(); err != nil {
		return metadata.New(), stats, err
	}
	return m, stats, nil
}

// Extract runs Collect and folds the outcome into a Result.
func Extract(data []byte) Result {
	m, stats, err := Collect(data)
	if err != nil {
		return Result{Status: StatusFail, Metadata: m, Stats: stats, Err: err}
	}
	return Result{Status: StatusSuccess, Metadata: m, Stats: stats}
}

// ReadFile loads path through r and extracts its text metadata. A read
// failure is reported as StatusFail with an IOError.
func ReadFile(ctx context.Context, r FileReader, path string) Result {
	data, err := r.ReadFile(ctx, path)
	if err != nil {
		var ioErr *errors.IOError
		if !errors.As(err, &ioErr) {
			err = errors.NewIO("read", path, err)
		}
		return Result{Status: StatusFail, Metadata: metadata.New(), Err: err}
	}
	return Extract(data)
}
