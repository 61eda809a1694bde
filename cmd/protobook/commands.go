package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/protobook/core/book"
	"github.com/FocuswithJustin/protobook/core/cas"
	"github.com/FocuswithJustin/protobook/core/convert"
	"github.com/FocuswithJustin/protobook/core/errors"
	"github.com/FocuswithJustin/protobook/core/fb2"
	"github.com/FocuswithJustin/protobook/core/sqlite"
	"github.com/FocuswithJustin/protobook/core/xml"
	"github.com/FocuswithJustin/protobook/internal/archive"
	"github.com/FocuswithJustin/protobook/internal/catalog"
	"github.com/FocuswithJustin/protobook/internal/config"
	"github.com/FocuswithJustin/protobook/internal/logging"
	"github.com/FocuswithJustin/protobook/internal/validation"
)

// conversion is the result of converting one input file.
type conversion struct {
	src       *fb2.FictionBook
	book      *book.Book
	binaryIDs map[string]uuid.UUID
}

// convertFile parses path and converts it. An empty id generates a new one;
// workers > 0 overrides the config.
func convertFile(cfg config.Config, path, id string, workers int) (*conversion, error) {
	bookID := uuid.New()
	if id != "" {
		var err error
		if bookID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid --id %q: %w", id, err)
		}
	}

	src, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return convertSource(cfg, src, path, bookID, workers), nil
}

func convertSource(cfg config.Config, src *fb2.FictionBook, path string, bookID uuid.UUID, workers int) *conversion {
	opts := cfg.ConverterOptions()
	if workers > 0 {
		opts.Workers = workers
	}
	opts.Logger = logging.GetLogger().With("source", path)

	binaryIDs := convert.NewBinaryIDs(src)
	b := convert.New(opts).Convert(src, bookID, binaryIDs)
	return &conversion{src: src, book: b, binaryIDs: binaryIDs}
}

// storeBinaries writes every decoded binary of the source under its
// generated id and returns their catalog records in source order.
func (cv *conversion) storeBinaries(dir string) ([]catalog.Binary, error) {
	store, err := cas.NewStore(dir)
	if err != nil {
		return nil, err
	}
	bins := make([]catalog.Binary, 0, len(cv.src.Binaries))
	for _, bin := range cv.src.Binaries {
		ref, err := store.Put(cv.binaryIDs[bin.ID], bin.Data)
		if err != nil {
			return nil, err
		}
		logging.StorageEvent("blob put", ref.ID.String(), "binary", bin.ID, "content_type", bin.ContentType, "size", ref.Size)
		bins = append(bins, catalog.Binary{
			Name:        bin.ID,
			BlobID:      ref.ID.String(),
			ContentType: bin.ContentType,
			SHA256:      ref.SHA256,
			BLAKE3:      ref.BLAKE3,
			Size:        ref.Size,
		})
	}
	return bins, nil
}

func writeBook(path string, b *book.Book, c book.Compression) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := book.Encode(f, b, c); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// ConvertCmd converts an FB2 file to a Book document.
type ConvertCmd struct {
	Path    string `arg:"" help:"FB2 file (.fb2, .fb2.zip or .fb2.xz)" type:"existingfile"`
	Out     string `short:"o" help:"Output path (default: <name>.json next to the input)" type:"path"`
	ID      string `help:"Book id (default: a new random id)"`
	XZ      bool   `name:"xz" help:"Compress the output with xz"`
	Blobs   string `help:"Store decoded binaries in this directory" type:"path"`
	Workers int    `help:"Converter goroutines (overrides the config)"`
}

func (c *ConvertCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	compression := cfg.Output.Compression
	if c.XZ {
		compression = book.CompressionXZ
	}

	out := c.Out
	if out == "" {
		name, err := validation.OutputName(c.Path, compression == book.CompressionXZ)
		if err != nil {
			return fmt.Errorf("cannot derive output name: %w", err)
		}
		out = filepath.Join(filepath.Dir(c.Path), name)
	}
	if err := validation.ValidatePath(out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	cv, err := convertFile(cfg, c.Path, c.ID, c.Workers)
	if err != nil {
		return err
	}
	if err := writeBook(out, cv.book, compression); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	if c.Blobs != "" {
		bins, err := cv.storeBinaries(c.Blobs)
		if err != nil {
			return fmt.Errorf("failed to store binaries: %w", err)
		}
		fmt.Fprintf(stdout, "Stored %d binaries in %s\n", len(bins), c.Blobs)
	}

	fmt.Fprintf(stdout, "Converted %s -> %s\n", c.Path, out)
	fmt.Fprintf(stdout, "  id: %s\n", cv.book.ID)
	return nil
}

// InfoCmd prints identity and statistics of an FB2 file.
type InfoCmd struct {
	Path string `arg:"" help:"FB2 file" type:"existingfile"`
	ID   string `help:"Book id (default: a new random id)"`
	JSON bool   `name:"json" help:"Print JSON"`
}

type infoOutput struct {
	ID          string         `json:"id"`
	ShortTitle  string         `json:"short_title"`
	ISODate     string         `json:"iso_date,omitempty"`
	DisplayDate string         `json:"display_date,omitempty"`
	Language    string         `json:"language,omitempty"`
	Authors     []string       `json:"authors,omitempty"`
	Binaries    int            `json:"binaries"`
	Stats       book.BookStats `json:"stats"`
}

func (c *InfoCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cv, err := convertFile(cfg, c.Path, c.ID, 0)
	if err != nil {
		return err
	}

	b := cv.book
	info := infoOutput{
		ID:         b.ID,
		ShortTitle: b.ShortTitle,
		Language:   b.Language,
		Binaries:   len(cv.binaryIDs),
		Stats:      book.Stats(b),
	}
	if b.Date != nil {
		info.ISODate = b.Date.ISODate
		info.DisplayDate = b.Date.DisplayDate
	}
	for _, a := range b.Authors {
		info.Authors = append(info.Authors, a.FullName)
	}

	if c.JSON {
		return printJSON(info)
	}

	fmt.Fprintf(stdout, "id: %s\n", info.ID)
	fmt.Fprintf(stdout, "short_title: %s\n", info.ShortTitle)
	fmt.Fprintf(stdout, "iso_date: %s\n", info.ISODate)
	fmt.Fprintf(stdout, "display_date: %s\n", info.DisplayDate)
	fmt.Fprintf(stdout, "language: %s\n", info.Language)
	fmt.Fprintf(stdout, "authors: %s\n", strings.Join(info.Authors, "; "))
	fmt.Fprintf(stdout, "binaries: %d\n", info.Binaries)
	s := info.Stats
	fmt.Fprintf(stdout, "chapters: %d, paragraphs: %d, poems: %d, tables: %d, images: %d\n",
		s.Chapters, s.Paragraphs, s.Poems, s.Tables, s.Images)
	fmt.Fprintf(stdout, "links: %d, footnote refs: %d, notes: %d, comments: %d\n",
		s.Links, s.NoteRefs, s.Notes, s.Comments)
	return nil
}

// ValidateCmd checks that an FB2 file is well-formed XML, converts it and
// checks the resulting Book.
type ValidateCmd struct {
	Path string `arg:"" help:"FB2 file" type:"existingfile"`
}

func (c *ValidateCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := archive.ReadAll(c.Path)
	if err != nil {
		return err
	}
	if res := xml.Validate(data); !res.Valid {
		for _, e := range res.Errors {
			fmt.Fprintf(stdout, "  line %d: %s\n", e.Line, e.Message)
		}
		return fmt.Errorf("%s: malformed XML", c.Path)
	}

	parser := &fb2.Parser{Logger: logging.GetLogger()}
	src, err := parser.Parse(data)
	if err != nil {
		return err
	}
	cv := convertSource(cfg, src, c.Path, uuid.New(), 0)

	errs := book.ValidateBook(cv.book)
	for _, e := range errs {
		fmt.Fprintf(stdout, "  %v\n", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s: %d validation errors", c.Path, len(errs))
	}
	fmt.Fprintf(stdout, "%s: OK\n", c.Path)
	return nil
}

// CatalogFlags selects the catalog database.
type CatalogFlags struct {
	DB string `name:"db" help:"Catalog database (overrides the config)" type:"path"`
}

func (f CatalogFlags) path(cfg config.Config) string {
	if f.DB != "" {
		return f.DB
	}
	return cfg.Catalog.Path
}

func (f CatalogFlags) open(cfg config.Config) (*catalog.Catalog, error) {
	return catalog.Open(f.path(cfg))
}

// openReadOnly opens the catalog for commands that never write to it.
func (f CatalogFlags) openReadOnly(cfg config.Config) (*catalog.Catalog, error) {
	return catalog.OpenReadOnly(f.path(cfg))
}

// CatalogAddCmd converts an FB2 file, stores its binaries and records it.
type CatalogAddCmd struct {
	CatalogFlags `embed:""`
	Path string `arg:"" help:"FB2 file" type:"existingfile"`
	ID   string `help:"Book id (default: a new random id)"`
}

func (c *CatalogAddCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cv, err := convertFile(cfg, c.Path, c.ID, 0)
	if err != nil {
		return err
	}
	bins, err := cv.storeBinaries(cfg.Blobs.Dir)
	if err != nil {
		return fmt.Errorf("failed to store binaries: %w", err)
	}

	cat, err := c.open(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	source, err := filepath.Abs(c.Path)
	if err != nil {
		source = c.Path
	}
	ctx := logging.WithConversionID(context.Background(), cv.book.ID)
	entry, err := cat.Put(ctx, cv.book, source)
	if err != nil {
		return err
	}
	if err := cat.SetBinaries(ctx, entry.ID, bins); err != nil {
		return err
	}
	logging.InfoContext(ctx, "catalog_add", "title", entry.Title)

	fmt.Fprintf(stdout, "Added %s (%s)\n", entry.ID, entry.Title)
	return nil
}

// CatalogListCmd lists catalog entries.
type CatalogListCmd struct {
	CatalogFlags `embed:""`
	JSON bool `name:"json" help:"Print JSON"`
}

func (c *CatalogListCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var entries []catalog.Entry
	cat, err := c.openReadOnly(cfg)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		// No catalog yet.
	case err != nil:
		return err
	default:
		defer cat.Close()
		if entries, err = cat.List(context.Background()); err != nil {
			return err
		}
	}
	if c.JSON {
		if entries == nil {
			entries = []catalog.Entry{}
		}
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No books in catalog")
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHORS\tDATE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Title, strings.Join(e.Authors, "; "), e.DisplayDate)
	}
	return tw.Flush()
}

// CatalogShowCmd prints a catalog entry, the stored Book with --book, or
// checks the stored binaries with --verify.
type CatalogShowCmd struct {
	CatalogFlags `embed:""`
	ID     string `arg:"" help:"Book id"`
	Book   bool   `help:"Print the stored Book document instead of the entry" xor:"mode"`
	Verify bool   `help:"Check the book's binaries against the blob store" xor:"mode"`
}

func (c *CatalogShowCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := c.openReadOnly(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx := context.Background()
	entry, b, err := cat.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	switch {
	case c.Book:
		return book.Encode(stdout, b, book.CompressionNone)
	case c.Verify:
		bins, err := cat.Binaries(ctx, entry.ID)
		if err != nil {
			return err
		}
		return verifyBinaries(cfg.Blobs.Dir, bins)
	}
	return printJSON(entry)
}

// verifyBinaries checks that every binary is present in the blob store with
// its recorded SHA-256 digest.
func verifyBinaries(dir string, bins []catalog.Binary) error {
	store, err := cas.NewStore(dir)
	if err != nil {
		return err
	}
	failed := 0
	for _, bin := range bins {
		status := "ok"
		id, err := uuid.Parse(bin.BlobID)
		switch {
		case err != nil:
			status = fmt.Sprintf("invalid blob id: %v", err)
		case !store.Has(id):
			status = "missing"
		default:
			if err := store.Verify(id, bin.SHA256); err != nil {
				status = err.Error()
			}
		}
		if status != "ok" {
			failed++
		}
		fmt.Fprintf(stdout, "  %s %s: %s\n", bin.Name, bin.BlobID, status)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d binaries failed verification", failed, len(bins))
	}
	fmt.Fprintf(stdout, "%d binaries OK\n", len(bins))
	return nil
}

// CatalogRmCmd removes a catalog entry.
type CatalogRmCmd struct {
	CatalogFlags `embed:""`
	ID string `arg:"" help:"Book id"`
}

func (c *CatalogRmCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := c.open(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	if err := cat.Delete(context.Background(), c.ID); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Removed %s\n", c.ID)
	return nil
}

// BlobCmd writes a stored binary to a file or stdout.
type BlobCmd struct {
	Ref string `arg:"" help:"Blob id or BLAKE3 hash"`
	Out string `short:"o" help:"Output file (default: stdout)" type:"path"`
	Dir string `help:"Blob store directory (overrides the config)" type:"path"`
}

func (c *BlobCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := cfg.Blobs.Dir
	if c.Dir != "" {
		dir = c.Dir
	}
	store, err := cas.NewStore(dir)
	if err != nil {
		return err
	}

	var data []byte
	if id, perr := uuid.Parse(c.Ref); perr == nil {
		data, err = store.Get(id)
	} else {
		data, err = store.GetByBlake3(strings.ToLower(c.Ref))
	}
	if err != nil {
		return fmt.Errorf("blob %s: %w", c.Ref, err)
	}

	if c.Out == "" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(c.Out, data, 0644)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Fprintf(stdout, "protobook version %s\n", version)
	fmt.Fprintf(stdout, "sqlite driver: %s (%s)\n", info.Package, info.DriverType)
	return nil
}
