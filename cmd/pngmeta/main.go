// Command pngmeta reads the text metadata embedded in PNG files, exports
// it, and merges it into the annotations of a local image catalog.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"unicode/utf8"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/pngmeta/core/annotate"
	"github.com/FocuswithJustin/pngmeta/core/errors"
	"github.com/FocuswithJustin/pngmeta/core/pngtext"
	"github.com/FocuswithJustin/pngmeta/core/render"
	"github.com/FocuswithJustin/pngmeta/internal/catalog"
	"github.com/FocuswithJustin/pngmeta/internal/export"
	"github.com/FocuswithJustin/pngmeta/internal/logging"
	"github.com/FocuswithJustin/pngmeta/internal/sqlite"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	DB        string          `name:"db" help:"Catalog database path" type:"path" default:"~/.pngmeta.db" env:"PNGMETA_DB"`
	LogLevel  string          `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info" env:"PNGMETA_LOG_LEVEL"`
	LogFormat string          `name:"log-format" help:"Log format (json, text)" default:"json" env:"PNGMETA_LOG_FORMAT"`
	Config    kong.ConfigFlag `help:"JSON config file with flag defaults"`
}

// CLI defines the command-line interface for pngmeta.
type CLI struct {
	Globals

	Show     ShowCmd      `cmd:"" help:"Print the text metadata of a PNG file"`
	Export   ExportCmd    `cmd:"" help:"Write the text metadata of a PNG file to disk"`
	Catalog  CatalogGroup `cmd:"" help:"Image catalog operations"`
	Annotate AnnotateCmd  `cmd:"" help:"Merge PNG metadata into catalog annotations"`
	Version  VersionCmd   `cmd:"" help:"Print version information"`
}

// env carries what commands need beyond their flags.
type env struct {
	ctx    context.Context
	out    io.Writer
	reader pngtext.FileReader
}

func (g *Globals) openCatalog() (*catalog.Catalog, error) {
	return catalog.Open(g.DB)
}

func (g *Globals) openCatalogReadOnly() (*catalog.Catalog, error) {
	return catalog.OpenReadOnly(g.DB)
}

// ShowCmd scans one file and prints its metadata.
type ShowCmd struct {
	File  string `arg:"" help:"PNG file to read" type:"existingfile"`
	Full  bool   `help:"Print the full text instead of a preview"`
	Style string `help:"Rendering style" enum:"plain,legacy" default:"plain"`
	Key   string `help:"Print only the value of this keyword"`
	Keys  bool   `help:"Print only the keywords, one per line"`
}

func (c *ShowCmd) Run(g *Globals, e *env) error {
	style, err := render.ParseStyle(c.Style)
	if err != nil {
		return err
	}

	res := pngtext.ReadFile(e.ctx, e.reader, c.File)
	if !res.OK() {
		logging.ScanFailed(e.ctx, c.File, res.Err)
		return res.Err
	}
	if res.Metadata.Len() == 0 {
		fmt.Fprintln(e.out, "No text metadata found.")
		return nil
	}

	switch {
	case c.Keys:
		for _, k := range res.Metadata.Keys() {
			fmt.Fprintln(e.out, k)
		}
		return nil
	case c.Key != "":
		v, ok := res.Metadata.Get(c.Key)
		if !ok {
			return errors.NewNotFound("keyword", c.Key)
		}
		fmt.Fprintln(e.out, v)
		return nil
	}

	text, err := render.Render(res.Metadata, style)
	if err != nil {
		return err
	}
	if c.Full || !render.Truncated(text, render.PreviewLimit) {
		fmt.Fprintln(e.out, text)
		return nil
	}
	fmt.Fprintln(e.out, render.Preview(text, render.PreviewLimit))
	fmt.Fprintf(e.out, "(truncated, use --full to see all %d characters)\n", utf8.RuneCountInString(text))
	return nil
}

// ExportCmd writes the full metadata of one file.
type ExportCmd struct {
	File     string `arg:"" help:"PNG file to read" type:"existingfile"`
	Out      string `required:"" help:"Output file or directory" type:"path"`
	Format   string `help:"Output format" enum:"text,json" default:"text"`
	Compress string `help:"Compression" enum:"none,gzip,xz" default:"none"`
	Style    string `help:"Rendering style for text output" enum:"plain,legacy" default:"plain"`
	Verify   bool   `help:"Read the written file back and check its digest"`
}

func (c *ExportCmd) Run(g *Globals, e *env) error {
	style, err := render.ParseStyle(c.Style)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	compression, err := export.ParseCompression(c.Compress)
	if err != nil {
		return err
	}

	res := pngtext.ReadFile(e.ctx, e.reader, c.File)
	if !res.OK() {
		logging.ScanFailed(e.ctx, c.File, res.Err)
		return res.Err
	}

	content, err := export.Content(res.Metadata, format, style)
	if err != nil {
		return err
	}

	out := c.Out
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, export.NameFor(c.File, format, compression))
	}
	written, err := export.Write(out, content, export.Options{Compress: compression})
	if err != nil {
		logging.ExportFailed(out, err)
		return err
	}
	if c.Verify {
		if err := export.Verify(written); err != nil {
			logging.ExportFailed(out, err)
			return err
		}
	}

	fmt.Fprintf(e.out, "Wrote %s (%d bytes, blake3 %s)\n", written.Path, written.Written, written.Digest.BLAKE3[:16])
	if c.Verify {
		fmt.Fprintln(e.out, "Verified: content matches the recorded digest.")
	}
	return nil
}

// CatalogGroup contains catalog operations.
type CatalogGroup struct {
	Import CatalogImportCmd `cmd:"" help:"Register every image under a directory"`
	List   CatalogListCmd   `cmd:"" help:"List catalog items"`
	Show   CatalogShowCmd   `cmd:"" help:"Show one item and its annotation"`
}

// CatalogImportCmd walks a directory into the catalog.
type CatalogImportCmd struct {
	Dir string `arg:"" help:"Directory to import" type:"existingdir"`
}

func (c *CatalogImportCmd) Run(g *Globals, e *env) error {
	cat, err := g.openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	stats, err := cat.Import(e.ctx, c.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Imported %d new items (%d already present, %d ignored)\n",
		stats.Added, stats.Existing, stats.Ignored)
	return nil
}

// CatalogListCmd prints every item.
type CatalogListCmd struct {
	JSON bool `name:"json" help:"Print items as JSON"`
}

func (c *CatalogListCmd) Run(g *Globals, e *env) error {
	cat, err := g.openCatalogReadOnly()
	if err != nil {
		return err
	}
	defer cat.Close()

	items, err := cat.ListItems(e.ctx)
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		if items == nil {
			items = []annotate.Item{}
		}
		return enc.Encode(items)
	}
	for _, it := range items {
		fmt.Fprintf(e.out, "%s\t%s\t%s\n", it.ID, it.Ext, it.Path)
	}
	return nil
}

// CatalogShowCmd prints one item.
type CatalogShowCmd struct {
	ID string `arg:"" help:"Item ID"`
}

func (c *CatalogShowCmd) Run(g *Globals, e *env) error {
	cat, err := g.openCatalogReadOnly()
	if err != nil {
		return err
	}
	defer cat.Close()

	item, err := cat.GetItem(e.ctx, c.ID)
	if err != nil {
		return err
	}
	annotation, err := cat.GetAnnotation(e.ctx, c.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "ID:   %s\nName: %s\nExt:  %s\nPath: %s\n", item.ID, item.Name, item.Ext, item.Path)
	if annotation != "" {
		fmt.Fprintf(e.out, "\n%s\n", annotation)
	}
	return nil
}

// AnnotateCmd contains the merge operations.
type AnnotateCmd struct {
	Item AnnotateItemCmd `cmd:"" help:"Merge metadata into one item"`
	All  AnnotateAllCmd  `cmd:"" help:"Merge metadata into every PNG item"`
}

// MergeFlags are shared by the annotate commands.
type MergeFlags struct {
	Style     string `help:"Rendering style merged into annotations" enum:"plain,legacy" default:"plain"`
	CacheSize int    `name:"cache-size" help:"Distinct files remembered per run" default:"1024"`
}

func (c *MergeFlags) merger(cat annotate.Catalog, e *env) (*annotate.Merger, error) {
	style, err := render.ParseStyle(c.Style)
	if err != nil {
		return nil, err
	}
	return annotate.NewMerger(cat, e.reader,
		annotate.WithStyle(style),
		annotate.WithCacheSize(c.CacheSize)), nil
}

// AnnotateItemCmd merges one item.
type AnnotateItemCmd struct {
	MergeFlags `embed:""`

	ID string `arg:"" help:"Item ID"`
}

func (c *AnnotateItemCmd) Run(g *Globals, e *env) error {
	cat, err := g.openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	m, err := c.merger(cat, e)
	if err != nil {
		return err
	}
	res, err := m.MergeByID(e.ctx, c.ID)
	if err != nil {
		return err
	}

	switch res.Outcome {
	case annotate.Updated:
		fmt.Fprintln(e.out, "Metadata appended to annotation.")
	case annotate.Skipped:
		fmt.Fprintln(e.out, "Annotation already contains the metadata.")
	case annotate.NoMetadata:
		fmt.Fprintln(e.out, "No text metadata found.")
	}
	return nil
}

// AnnotateAllCmd merges every PNG item.
type AnnotateAllCmd struct {
	MergeFlags `embed:""`

	JSON bool `name:"json" help:"Print the run report as JSON"`
}

func (c *AnnotateAllCmd) Run(g *Globals, e *env) error {
	cat, err := g.openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	m, err := c.merger(cat, e)
	if err != nil {
		return err
	}
	report, err := m.MergeAll(e.ctx)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(e.out, "Updated %d of %d PNG items (%d skipped, %d without metadata, %d failed, %d duplicate files)\n",
		report.Updated, report.Total, report.Skipped, report.NoMetadata, report.Failed, report.CacheHits)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(e *env) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(e.out, "pngmeta version %s (sqlite: %s, %s)\n", version, info.Package, info.DriverType)
	return nil
}

func newParser(cli *CLI, stdout, stderr io.Writer, options ...kong.Option) (*kong.Kong, error) {
	opts := []kong.Option{
		kong.Name("pngmeta"),
		kong.Description("Read, export and merge PNG text metadata"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Configuration(kong.JSON, "~/.pngmeta.json"),
		kong.Writers(stdout, stderr),
	}
	return kong.New(cli, append(opts, options...)...)
}

// run parses args and executes the selected command. Logs go to stderr so
// stdout only carries command output.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, options ...kong.Option) error {
	var cli CLI
	parser, err := newParser(&cli, stdout, stderr, options...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cli.LogFormat)
	if err != nil {
		return err
	}
	logging.SetOutput(stderr)
	logging.InitLogger(level, format)

	return kctx.Run(&cli.Globals, &env{
		ctx:    ctx,
		out:    stdout,
		reader: export.OSFileReader{},
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pngmeta: %v\n", err)
		stop()
		os.Exit(1)
	}
}
