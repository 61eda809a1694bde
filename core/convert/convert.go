// Package convert turns a parsed FB2 source tree into a book.Book.
//
// Conversion runs in two passes. The notes and comments bodies are
// converted first under a Context that knows only the binaries, so
// footnotes never reference each other. Their surviving anchor ids then
// seed the final Context used for the main body and the metadata.
//
// Content that cannot be represented (empty text, unresolved images, empty
// containers) is dropped silently. Two caller contract violations panic
// with *errors.ContractError: a source binary missing from the binary id
// map, and a span with no variant set.
package convert

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/FocuswithJustin/protobook/core/book"
	"github.com/FocuswithJustin/protobook/core/errors"
	"github.com/FocuswithJustin/protobook/core/fb2"
	"github.com/FocuswithJustin/protobook/internal/logging"
)

// Default body names for footnote collections.
const (
	DefaultNotesBody    = "notes"
	DefaultCommentsBody = "comments"
)

// Options configures a Converter.
type Options struct {
	// NotesBody is the body name holding notes. Defaults to "notes".
	NotesBody string

	// CommentsBody is the body name holding comments. Defaults to "comments".
	CommentsBody string

	// Workers bounds the goroutines converting top-level chapters and the
	// two footnote bodies. 0 or 1 converts sequentially.
	Workers int

	// Logger receives debug records for dropped elements. Defaults to the
	// global logger.
	Logger *slog.Logger
}

// Converter converts FB2 trees. It holds no per-conversion state and is safe
// for concurrent use.
type Converter struct {
	opts Options
}

// New creates a Converter.
func New(opts Options) *Converter {
	if opts.NotesBody == "" {
		opts.NotesBody = DefaultNotesBody
	}
	if opts.CommentsBody == "" {
		opts.CommentsBody = DefaultCommentsBody
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Converter{opts: opts}
}

// FromFB2 converts src sequentially with default options. The caller supplies
// the document id and one identifier per distinct binary id in src; the
// result depends only on these inputs.
func FromFB2(src *fb2.FictionBook, bookID uuid.UUID, binaryIDs map[string]uuid.UUID) *book.Book {
	return New(Options{}).Convert(src, bookID, binaryIDs)
}

// NewBinaryIDs generates a fresh identifier for every distinct binary id in src.
func NewBinaryIDs(src *fb2.FictionBook) map[string]uuid.UUID {
	ids := make(map[string]uuid.UUID, len(src.Binaries))
	for _, b := range src.Binaries {
		if _, ok := ids[b.ID]; !ok {
			ids[b.ID] = uuid.New()
		}
	}
	return ids
}

// walker carries the Context through the recursive converters.
type walker struct {
	ctx    *Context
	logger *slog.Logger
}

func (w *walker) dropped(kind, reason string, args ...any) {
	logging.Dropped(w.logger, kind, reason, args...)
}

// Convert converts src. The output is the same for any Workers value.
func (c *Converter) Convert(src *fb2.FictionBook, bookID uuid.UUID, binaryIDs map[string]uuid.UUID) *book.Book {
	logger := c.opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	id := bookID.String()

	checkBinaryIDs(src, binaryIDs)

	mainBody, notesBody, commentsBody := c.partition(src.Bodies)

	// Pass one: footnote bodies see binaries only.
	initial := &walker{ctx: NewContext(binaryIDs, nil, nil), logger: logger}
	var notes, comments *book.Footnotes
	c.run(
		func() { notes = initial.convertFootnotes(notesBody) },
		func() { comments = initial.convertFootnotes(commentsBody) },
	)
	logging.ConversionEvent(logger, id, "footnotes",
		"notes", len(notes.Anchors()), "comments", len(comments.Anchors()))

	// Pass two: everything else may reference the surviving anchors.
	final := &walker{
		ctx:    NewContext(binaryIDs, notes.Anchors(), comments.Anchors()),
		logger: logger,
	}

	ti := &src.Description.TitleInfo
	b := &book.Book{
		ID:         id,
		Language:   bookLanguage(ti.Lang, mainBody),
		ShortTitle: ti.BookTitle,
		Date:       convertDate(ti.Date),
		Cover:      final.convertCover(ti.CoverPage),
		Annotation: final.convertAnnotation(ti.Annotation),
		Notes:      notes,
		Comments:   comments,
	}
	for _, a := range ti.Authors {
		if author := final.convertAuthor(a); author != nil {
			b.Authors = append(b.Authors, *author)
		}
	}
	if mainBody != nil {
		b.Title = final.convertTitle(mainBody.Title)
		b.Epigraphs = final.convertEpigraphs(mainBody.Epigraphs)
		b.Chapters = c.convertTopChapters(final, mainBody.Sections)
	}

	logging.ConversionEvent(logger, id, "done", "chapters", len(b.Chapters), "authors", len(b.Authors))
	return b
}

// checkBinaryIDs panics when a declared binary has no identifier.
func checkBinaryIDs(src *fb2.FictionBook, binaryIDs map[string]uuid.UUID) {
	for _, bin := range src.Binaries {
		if _, ok := binaryIDs[bin.ID]; !ok {
			panic(errors.NewContract("binary ids", "no id supplied for binary %q", bin.ID))
		}
	}
}

// partition picks the first unnamed body and the first body of each
// footnote name. Other bodies are ignored.
func (c *Converter) partition(bodies []fb2.Body) (mainBody, notes, comments *fb2.Body) {
	for i := range bodies {
		b := &bodies[i]
		switch b.Name {
		case "":
			if mainBody == nil {
				mainBody = b
			}
		case c.opts.NotesBody:
			if notes == nil {
				notes = b
			}
		case c.opts.CommentsBody:
			if comments == nil {
				comments = b
			}
		}
	}
	return mainBody, notes, comments
}

// bookLanguage keeps the title-info language only if it is a well-formed
// BCP-47 tag. A language on the main body wins.
func bookLanguage(lang string, mainBody *fb2.Body) string {
	if mainBody != nil && mainBody.Lang != "" {
		return mainBody.Lang
	}
	if lang == "" {
		return ""
	}
	if _, err := language.Parse(lang); err != nil {
		return ""
	}
	return lang
}

func (w *walker) convertCover(cp *fb2.CoverPage) *book.InlineImage {
	if cp == nil {
		return nil
	}
	for i := range cp.Images {
		if img := w.convertInlineImage(&cp.Images[i]); img != nil {
			return img
		}
	}
	return nil
}

// convertTopChapters converts sibling sections, fanning out over Workers
// goroutines. Results are reassembled in source order.
func (c *Converter) convertTopChapters(w *walker, sections []fb2.Section) []book.Chapter {
	if c.opts.Workers <= 1 || len(sections) < 2 {
		return w.convertChapters(sections)
	}

	results := make([]*book.Chapter, len(sections))
	tasks := make([]func(), len(sections))
	for i := range sections {
		tasks[i] = func() { results[i] = w.convertChapter(&sections[i]) }
	}
	c.run(tasks...)

	var out []book.Chapter
	for _, ch := range results {
		if ch != nil {
			out = append(out, *ch)
		}
	}
	return out
}

// panicError carries a recovered panic across an errgroup boundary.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic in conversion task: %v", e.value)
}

// run executes tasks, concurrently when Workers allows. A panic in any task
// is re-raised on the calling goroutine.
func (c *Converter) run(tasks ...func()) {
	if c.opts.Workers <= 1 {
		for _, task := range tasks {
			task()
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for _, task := range tasks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &panicError{value: r}
				}
			}()
			task()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if pe, ok := err.(*panicError); ok {
			panic(pe.value)
		}
		panic(err)
	}
}
