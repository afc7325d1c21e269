// Package catalog is a small SQLite-backed image library. It stands in for
// the host application whose items carry a free-text annotation.
//
// Table: items
// - id TEXT primary key (UUID)
// - name TEXT (file name without extension)
// - ext TEXT (lowercase, no dot)
// - path TEXT unique
// - annotation TEXT
// - created_at, updated_at TEXT (RFC3339)
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/pngmeta/core/annotate"
	"github.com/FocuswithJustin/pngmeta/core/errors"
	"github.com/FocuswithJustin/pngmeta/internal/logging"
	"github.com/FocuswithJustin/pngmeta/internal/sqlite"
	"github.com/FocuswithJustin/pngmeta/internal/validation"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	ext TEXT NOT NULL,
	path TEXT NOT NULL UNIQUE,
	annotation TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_ext ON items(ext);
`

// Catalog implements annotate.Catalog on a SQLite database.
type Catalog struct {
	db  *sql.DB
	now func() time.Time
}

var _ annotate.Catalog = (*Catalog)(nil)

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	c, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// OpenReadOnly opens an existing catalog for queries only. It fails when
// the database does not exist.
func OpenReadOnly(path string) (*Catalog, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.NewIO("open", path, err)
	}
	return &Catalog{db: db, now: time.Now}, nil
}

// New wraps an open database and creates the schema if needed.
func New(db *sql.DB) (*Catalog, error) {
	c := &Catalog{db: db, now: time.Now}
	if err := c.migrate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Catalog) migrate() error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (c *Catalog) timestamp() string {
	return c.now().UTC().Format(time.RFC3339)
}

// Add registers the file at path and returns the new item. Adding a path
// that is already known returns the existing item.
func (c *Catalog) Add(ctx context.Context, path string) (annotate.Item, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return annotate.Item{}, false, errors.NewIO("resolve", path, err)
	}
	if err := validation.ValidatePath(abs); err != nil {
		return annotate.Item{}, false, &errors.ValidationError{Field: "path", Value: path, Message: err.Error(), Err: err}
	}

	if existing, err := c.itemByPath(ctx, abs); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, errors.ErrNotFound) {
		return annotate.Item{}, false, err
	}

	base := filepath.Base(abs)
	item := annotate.Item{
		ID:   uuid.NewString(),
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		Ext:  validation.ExtensionOf(abs),
		Path: abs,
	}
	ts := c.timestamp()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO items (id, name, ext, path, annotation, created_at, updated_at) VALUES (?, ?, ?, ?, '', ?, ?)`,
		item.ID, item.Name, item.Ext, item.Path, ts, ts)
	if err != nil {
		return annotate.Item{}, false, errors.NewIO("insert", abs, err)
	}
	return item, true, nil
}

// ImportStats counts what Import did.
type ImportStats struct {
	Added    int `json:"added"`
	Existing int `json:"existing"`
	Ignored  int `json:"ignored"` // files that are not images
}

// Import walks dir and adds every image file it finds. Files already in
// the catalog are left alone.
func (c *Catalog) Import(ctx context.Context, dir string) (ImportStats, error) {
	var stats ImportStats
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !validation.IsImagePath(path) {
			stats.Ignored++
			return nil
		}
		_, added, err := c.Add(ctx, path)
		if err != nil {
			return err
		}
		if added {
			stats.Added++
		} else {
			stats.Existing++
		}
		return nil
	})
	if err != nil {
		return stats, errors.Wrapf(err, "import %s", dir)
	}
	logging.InfoContext(ctx, "catalog_imported",
		"dir", dir, "added", stats.Added, "existing", stats.Existing, "ignored", stats.Ignored)
	return stats, nil
}

// ListItems returns every item ordered by path.
func (c *Catalog) ListItems(ctx context.Context) ([]annotate.Item, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, ext, path FROM items ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []annotate.Item
	for rows.Next() {
		var it annotate.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Ext, &it.Path); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItem returns the item with the given id.
func (c *Catalog) GetItem(ctx context.Context, id string) (annotate.Item, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, name, ext, path FROM items WHERE id = ?`, id)
	var it annotate.Item
	if err := row.Scan(&it.ID, &it.Name, &it.Ext, &it.Path); err != nil {
		if err == sql.ErrNoRows {
			return annotate.Item{}, errors.NewNotFound("item", id)
		}
		return annotate.Item{}, fmt.Errorf("reading item: %w", err)
	}
	return it, nil
}

func (c *Catalog) itemByPath(ctx context.Context, path string) (annotate.Item, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, name, ext, path FROM items WHERE path = ?`, path)
	var it annotate.Item
	if err := row.Scan(&it.ID, &it.Name, &it.Ext, &it.Path); err != nil {
		if err == sql.ErrNoRows {
			return annotate.Item{}, errors.NewNotFound("item", path)
		}
		return annotate.Item{}, fmt.Errorf("reading item: %w", err)
	}
	return it, nil
}

// GetAnnotation returns the item's annotation, empty if none was set.
func (c *Catalog) GetAnnotation(ctx context.Context, id string) (string, error) {
	var annotation string
	err := c.db.QueryRowContext(ctx, `SELECT annotation FROM items WHERE id = ?`, id).Scan(&annotation)
	if err == sql.ErrNoRows {
		return "", errors.NewNotFound("item", id)
	}
	if err != nil {
		return "", fmt.Errorf("reading annotation: %w", err)
	}
	return annotation, nil
}

// SetAnnotation replaces the item's annotation.
func (c *Catalog) SetAnnotation(ctx context.Context, id, annotation string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE items SET annotation = ?, updated_at = ? WHERE id = ?`,
		annotation, c.timestamp(), id)
	if err != nil {
		return errors.NewIO("update", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewIO("update", id, err)
	}
	if n == 0 {
		return errors.NewNotFound("item", id)
	}
	return nil
}
