package annotate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/pngmeta/core/cas"
	"github.com/FocuswithJustin/pngmeta/core/errors"
	"github.com/FocuswithJustin/pngmeta/core/pngtext"
	"github.com/FocuswithJustin/pngmeta/core/render"
	"github.com/FocuswithJustin/pngmeta/internal/cache"
	"github.com/FocuswithJustin/pngmeta/internal/logging"
	"github.com/FocuswithJustin/pngmeta/internal/validation"
)

// Item is one image record of the host catalog.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Ext  string `json:"ext"`
	Path string `json:"path"`
}

// IsPNG reports whether the item is a PNG file. The extension field wins;
// the path is only consulted when the field is empty.
func (it Item) IsPNG() bool {
	if it.Ext != "" {
		return validation.IsPNGExtension(it.Ext)
	}
	return validation.IsPNGExtension(validation.ExtensionOf(it.Path))
}

// Catalog is the host application's item store. SetAnnotation is assumed
// to be atomic for a single item.
type Catalog interface {
	ListItems(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	GetAnnotation(ctx context.Context, id string) (string, error)
	SetAnnotation(ctx context.Context, id, annotation string) error
}

// ItemResult is the outcome of merging one item.
type ItemResult struct {
	ItemID     string
	Outcome    Outcome
	Rendered   string
	Annotation string // annotation after the merge
	Cached     bool   // rendered text came from an earlier identical file
}

// Report summarizes a bulk run. Only Updated counts as an update.
type Report struct {
	RunID       string        `json:"run_id"`
	Total       int           `json:"total"` // PNG items processed
	Updated     int           `json:"updated"`
	Skipped     int           `json:"skipped"`
	NoMetadata  int           `json:"no_metadata"`
	Failed      int           `json:"failed"`
	Ignored     int           `json:"ignored"`      // non-PNG items
	CacheHits   int           `json:"cache_hits"`   // files whose content was already scanned this run
	CacheMisses int           `json:"cache_misses"` // files scanned
	Duration    time.Duration `json:"duration"`
}

func (r *Report) add(o Outcome) {
	switch o {
	case Updated:
		r.Updated++
	case Skipped:
		r.Skipped++
	case NoMetadata:
		r.NoMetadata++
	case Failed:
		r.Failed++
	}
}

// scanned is what the memo keeps per distinct file content.
type scanned struct {
	text    string
	entries int
}

// Option configures a Merger.
type Option func(*Merger)

// WithStyle selects the rendering merged into annotations.
func WithStyle(s render.Style) Option {
	return func(m *Merger) { m.style = s }
}

// WithCacheSize bounds how many distinct files are remembered per Merger.
func WithCacheSize(n int) Option {
	return func(m *Merger) { m.memo = cache.New[string, scanned](0, n) }
}

// Merger runs scan, render and merge for catalog items.
type Merger struct {
	catalog Catalog
	reader  pngtext.FileReader
	style   render.Style
	memo    *cache.Memo[string, scanned]
}

// DefaultCacheSize is the memo bound used when no option overrides it.
const DefaultCacheSize = 1024

// NewMerger creates a Merger over the given collaborators.
func NewMerger(c Catalog, r pngtext.FileReader, opts ...Option) *Merger {
	m := &Merger{
		catalog: c,
		reader:  r,
		style:   render.StylePlain,
		memo:    cache.New[string, scanned](0, DefaultCacheSize),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MergeByID looks the item up and merges it.
func (m *Merger) MergeByID(ctx context.Context, id string) (ItemResult, error) {
	item, err := m.catalog.GetItem(ctx, id)
	if err != nil {
		return ItemResult{ItemID: id, Outcome: Failed}, err
	}
	return m.MergeItem(ctx, item)
}

// MergeItem reads, scans and renders the item's file and appends the text
// to its annotation unless it is already there. On failure the annotation
// is left untouched.
func (m *Merger) MergeItem(ctx context.Context, item Item) (ItemResult, error) {
	res := ItemResult{ItemID: item.ID, Outcome: Failed}

	sc, cached, err := m.scan(ctx, item.Path)
	if err != nil {
		logging.ScanFailed(ctx, item.Path, err, "item_id", item.ID, "file_level", errors.IsFileLevel(err))
		return res, err
	}
	res.Cached = cached
	res.Rendered = sc.text

	if sc.entries == 0 {
		res.Outcome = NoMetadata
		logging.ItemMerged(ctx, item.ID, res.Outcome.String())
		return res, nil
	}

	current, err := m.catalog.GetAnnotation(ctx, item.ID)
	if err != nil {
		return res, errors.Wrapf(err, "get annotation for %s", item.ID)
	}

	updated, outcome := Merge(current, sc.text)
	if outcome == Updated {
		if err := m.catalog.SetAnnotation(ctx, item.ID, updated); err != nil {
			return res, errors.Wrapf(err, "set annotation for %s", item.ID)
		}
	}

	res.Outcome = outcome
	res.Annotation = updated
	logging.ItemMerged(ctx, item.ID, outcome.String(),
		"entries", sc.entries,
		"fingerprint", cas.Blake3String(sc.text)[:16],
		"cached", cached)
	return res, nil
}

// scan reads path and renders its metadata, reusing the result for file
// contents seen before.
func (m *Merger) scan(ctx context.Context, path string) (scanned, bool, error) {
	data, err := m.reader.ReadFile(ctx, path)
	if err != nil {
		var ioErr *errors.IOError
		if !errors.As(err, &ioErr) {
			err = errors.NewIO("read", path, err)
		}
		return scanned{}, false, err
	}

	return m.memo.GetOrCompute(cas.Blake3Hash(data), func() (scanned, error) {
		r := pngtext.Extract(data)
		if !r.OK() {
			return scanned{}, r.Err
		}
		text, err := render.Render(r.Metadata, m.style)
		if err != nil {
			return scanned{}, err
		}
		return scanned{text: text, entries: r.Metadata.Len()}, nil
	})
}

// MergeAll merges every PNG item of the catalog, one at a time and in
// listing order. A failing item is logged and counted; only a failing
// listing or a cancelled context stops the run. Scan results are shared
// within one run only.
func (m *Merger) MergeAll(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, report.RunID)
	m.memo.Invalidate()
	finish := func() {
		report.CacheHits, report.CacheMisses = m.memo.Stats()
		report.Duration = time.Since(start)
	}

	items, err := m.catalog.ListItems(ctx)
	if err != nil {
		return report, errors.Wrap(err, "list items")
	}
	logging.InfoContext(ctx, "merge_started", "items", len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			finish()
			logging.WarnContext(ctx, "merge_cancelled", "processed", report.Total, "error", err.Error())
			return report, err
		}
		if !item.IsPNG() {
			report.Ignored++
			continue
		}

		report.Total++
		res, err := m.MergeItem(ctx, item)
		if err != nil {
			logging.ErrorContext(ctx, "item_failed", "item_id", item.ID, "error", err.Error())
		}
		report.add(res.Outcome)
	}

	finish()
	logging.InfoContext(ctx, "merge_finished",
		"total", report.Total,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"no_metadata", report.NoMetadata,
		"failed", report.Failed,
		"ignored", report.Ignored,
		"cache_hits", report.CacheHits,
		"duration_ms", report.Duration.Milliseconds())
	return report, nil
}
