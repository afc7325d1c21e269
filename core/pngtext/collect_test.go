package pngtext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/pngmeta/core/errors"
)

func TestCollectNoTextChunks(t *testing.T) {
	m, stats, err := Collect(buildPNG(ihdr(), rawChunk{"IDAT", []byte{0}}, iend()))
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, 0, m.Len())
	require.Equal(t, Stats{Chunks: 3}, stats)
}

func TestCollectMixedChunks(t *testing.T) {
	data := buildPNG(
		ihdr(),
		tEXt("Prompt\x00a cat"),
		zTXt(t, 0, "Seed\x00123"),
		rawChunk{"IDAT", []byte{0}},
		tEXt("Software\x00gen"),
		iend(),
	)
	m, stats, err := Collect(data)
	require.NoError(t, err)
	require.Equal(t, []string{"Prompt", "Seed", "Software"}, m.Keys())
	v, _ := m.Get("Seed")
	require.Equal(t, "123", v)
	require.Equal(t, Stats{Chunks: 6, TextChunks: 3, Decoded: 3}, stats)
}

func TestCollectLastWriteWins(t *testing.T) {
	m, _, err := Collect(buildPNG(ihdr(), tEXt("X\x001"), tEXt("X\x002"), iend()))
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())
	v, _ := m.Get("X")
	require.Equal(t, "2", v)
}

func TestCollectSkipsBadChunks(t *testing.T) {
	data := buildPNG(
		ihdr(),
		tEXt("Prompt\x00a cat"),
		zTXt(t, 1, "Seed\x00123"),
		rawChunk{"zTXt", []byte{0, 0xde, 0xad}},
		tEXt("Steps\x0020"),
		iend(),
	)
	m, stats, err := Collect(data)
	require.NoError(t, err)
	require.Equal(t, []string{"Prompt", "Steps"}, m.Keys())
	require.Equal(t, 2, stats.Skipped)
	require.Equal(t, 2, stats.Decoded)
	_, ok := m.Get("Seed")
	require.False(t, ok, "a chunk with an unsupported method must not add an entry")
}

func TestCollectFileLevelFailureDropsEverything(t *testing.T) {
	data := buildPNG(ihdr(), tEXt("Prompt\x00a cat"))
	data = append(data, 0, 0, 1, 0, 't', 'E', 'X', 't', 'x')

	m, _, err := Collect(data)
	require.ErrorIs(t, err, errors.ErrTruncated)
	require.Equal(t, 0, m.Len())
}

func TestExtract(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r := Extract(buildPNG(ihdr(), tEXt("Prompt\x00a cat"), iend()))
		require.True(t, r.OK())
		require.Equal(t, StatusSuccess, r.Status)
		require.NoError(t, r.Err)
		v, _ := r.Metadata.Get("Prompt")
		require.Equal(t, "a cat", v)
	})

	t.Run("not a png", func(t *testing.T) {
		r := Extract([]byte("GIF89a....."))
		require.False(t, r.OK())
		require.Equal(t, StatusFail, r.Status)
		require.ErrorIs(t, r.Err, errors.ErrNotAPng)
		require.NotNil(t, r.Metadata)
		require.Equal(t, 0, r.Metadata.Len())
	})
}

type stubReader struct {
	data []byte
	err  error
}

func (s stubReader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return s.data, s.err
}

type osReader struct{}

func (osReader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

func TestReadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.png")
		require.NoError(t, os.WriteFile(path, buildPNG(ihdr(), tEXt("Prompt\x00a cat"), iend()), 0o644))

		r := ReadFile(ctx, osReader{}, path)
		require.True(t, r.OK())
		require.Equal(t, 1, r.Metadata.Len())
	})

	t.Run("read failure", func(t *testing.T) {
		r := ReadFile(ctx, stubReader{err: fmt.Errorf("disk gone")}, "/x.png")
		require.Equal(t, StatusFail, r.Status)
		require.Equal(t, 0, r.Metadata.Len())

		var ioErr *errors.IOError
		require.ErrorAs(t, r.Err, &ioErr)
		require.Equal(t, "/x.png", ioErr.Path)
	})

	t.Run("io error passed through", func(t *testing.T) {
		orig := errors.NewIO("open", "/y.png", fmt.Errorf("denied"))
		r := ReadFile(ctx, stubReader{err: orig}, "/y.png")
		var ioErr *errors.IOError
		require.ErrorAs(t, r.Err, &ioErr)
		require.Equal(t, "open", ioErr.Operation)
	})
}
