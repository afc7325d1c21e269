package annotate

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/pngmeta/core/errors"
	"github.com/FocuswithJustin/pngmeta/core/render"
)

func pngWithText(pairs ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(typ string, data []byte) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(data)))
		buf.Write(n[:])
		buf.WriteString(typ)
		buf.Write(data)
		binary.BigEndian.PutUint32(n[:], crc32.ChecksumIEEE(append([]byte(typ), data...)))
		buf.Write(n[:])
	}
	chunk("IHDR", make([]byte, 13))
	for i := 0; i+1 < len(pairs); i += 2 {
		chunk("tEXt", []byte(pairs[i]+"\x00"+pairs[i+1]))
	}
	chunk("IEND", nil)
	return buf.Bytes()
}

type fakeCatalog struct {
	mu          sync.Mutex
	items       []Item
	annotations map[string]string
	sets        int
	setErr      error
}

func newFakeCatalog(items ...Item) *fakeCatalog {
	return &fakeCatalog{items: items, annotations: map[string]string{}}
}

func (c *fakeCatalog) ListItems(ctx context.Context) ([]Item, error) {
	return append([]Item(nil), c.items...), nil
}

func (c *fakeCatalog) GetItem(ctx context.Context, id string) (Item, error) {
	for _, it := range c.items {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, errors.NewNotFound("item", id)
}

func (c *fakeCatalog) GetAnnotation(ctx context.Context, id string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.annotations[id], nil
}

func (c *fakeCatalog) SetAnnotation(ctx context.Context, id, annotation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.sets++
	c.annotations[id] = annotation
	return nil
}

type fakeReader struct {
	files map[string][]byte
	reads int
}

func (r *fakeReader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	r.reads++
	data, ok := r.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return data, nil
}

func TestMergeItemIdempotent(t *testing.T) {
	item := Item{ID: "1", Name: "a", Ext: "png", Path: "/a.png"}
	cat := newFakeCatalog(item)
	cat.annotations["1"] = "my notes"
	rd := &fakeReader{files: map[string][]byte{"/a.png": pngWithText("prompt", "a cat", "seed", "42")}}
	m := NewMerger(cat, rd)

	res, err := m.MergeItem(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, Updated, res.Outcome)
	require.Equal(t, "prompt: a cat\nseed: 42", res.Rendered)
	require.Equal(t, "my notes\n\nprompt: a cat\nseed: 42", cat.annotations["1"])

	res, err = m.MergeItem(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, Skipped, res.Outcome)
	require.True(t, res.Cached)
	require.Equal(t, "my notes\n\nprompt: a cat\nseed: 42", cat.annotations["1"])
	require.Equal(t, 1, cat.sets)
}

func TestMergeItemNoMetadata(t *testing.T) {
	item := Item{ID: "1", Ext: "png", Path: "/a.png"}
	cat := newFakeCatalog(item)
	rd := &fakeReader{files: map[string][]byte{"/a.png": pngWithText()}}

	res, err := NewMerger(cat, rd).MergeItem(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, NoMetadata, res.Outcome)
	require.Zero(t, cat.sets)
}

func TestMergeItemFailures(t *testing.T) {
	t.Run("read error", func(t *testing.T) {
		item := Item{ID: "1", Ext: "png", Path: "/missing.png"}
		cat := newFakeCatalog(item)
		cat.annotations["1"] = "keep"
		res, err := NewMerger(cat, &fakeReader{}).MergeItem(context.Background(), item)
		require.Error(t, err)
		var ioErr *errors.IOError
		require.True(t, errors.As(err, &ioErr))
		require.Equal(t, Failed, res.Outcome)
		require.Equal(t, "keep", cat.annotations["1"])
	})

	t.Run("not a png", func(t *testing.T) {
		item := Item{ID: "1", Ext: "png", Path: "/fake.png"}
		cat := newFakeCatalog(item)
		rd := &fakeReader{files: map[string][]byte{"/fake.png": []byte("GIF89a....")}}
		res, err := NewMerger(cat, rd).MergeItem(context.Background(), item)
		require.ErrorIs(t, err, errors.ErrNotAPng)
		require.Equal(t, Failed, res.Outcome)
	})

	t.Run("store error", func(t *testing.T) {
		item := Item{ID: "1", Ext: "png", Path: "/a.png"}
		cat := newFakeCatalog(item)
		cat.setErr = fmt.Errorf("database is locked")
		rd := &fakeReader{files: map[string][]byte{"/a.png": pngWithText("k", "v")}}
		res, err := NewMerger(cat, rd).MergeItem(context.Background(), item)
		require.Error(t, err)
		require.Equal(t, Failed, res.Outcome)
		require.Empty(t, cat.annotations["1"])
	})
}

func TestMergeByID(t *testing.T) {
	item := Item{ID: "abc", Ext: "png", Path: "/a.png"}
	cat := newFakeCatalog(item)
	rd := &fakeReader{files: map[string][]byte{"/a.png": pngWithText("k", "v")}}
	m := NewMerger(cat, rd)

	res, err := m.MergeByID(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, Updated, res.Outcome)
	require.Equal(t, "k: v", cat.annotations["abc"])

	_, err = m.MergeByID(context.Background(), "nope")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMergeAll(t *testing.T) {
	items := []Item{
		{ID: "1", Ext: "png", Path: "/1.png"},
		{ID: "2", Ext: "PNG", Path: "/2.png"},
		{ID: "3", Ext: "png", Path: "/3.png"},
		{ID: "4", Ext: "jpg", Path: "/4.jpg"},
		{ID: "5", Path: "/5.png"},
		{ID: "6", Ext: "png", Path: "/missing.png"},
	}
	cat := newFakeCatalog(items...)
	cat.annotations["3"] = "k: v"
	rd := &fakeReader{files: map[string][]byte{
		"/1.png": pngWithText("k", "v"),
		"/2.png": pngWithText(),
		"/3.png": pngWithText("k", "v"),
		"/5.png": pngWithText("other", "x"),
	}}
	m := NewMerger(cat, rd)

	report, err := m.MergeAll(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.Equal(t, 5, report.Total)
	require.Equal(t, 2, report.Updated)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, 1, report.NoMetadata)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Ignored)
	require.Equal(t, "k: v", cat.annotations["1"])
	require.Equal(t, "other: x", cat.annotations["5"])
	// items 1 and 3 share the same bytes
	require.Equal(t, 1, report.CacheHits)
	require.Equal(t, 3, report.CacheMisses)

	again, err := m.MergeAll(context.Background())
	require.NoError(t, err)
	require.Zero(t, again.Updated)
	require.Equal(t, 3, again.Skipped)
	require.NotEqual(t, report.RunID, again.RunID)
	require.Equal(t, 1, again.CacheHits)
	require.Equal(t, 3, again.CacheMisses)
}

func TestMergeAllCancelled(t *testing.T) {
	cat := newFakeCatalog(Item{ID: "1", Ext: "png", Path: "/1.png"})
	rd := &fakeReader{files: map[string][]byte{"/1.png": pngWithText("k", "v")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMerger(cat, rd).MergeAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, cat.sets)
}

func TestMergerLegacyStyle(t *testing.T) {
	item := Item{ID: "1", Ext: "png", Path: "/a.png"}
	cat := newFakeCatalog(item)
	rd := &fakeReader{files: map[string][]byte{"/a.png": pngWithText("k", "v")}}
	m := NewMerger(cat, rd, WithStyle(render.StyleLegacy), WithCacheSize(4))

	res, err := m.MergeItem(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, `"k": "v"`, res.Rendered)
}
