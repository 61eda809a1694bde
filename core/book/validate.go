package book

import (
	"fmt"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

func newValidationError(path, message string) error {
	return &ValidationError{Path: path, Message: message}
}

// validator accumulates errors while walking a Book.
type validator struct {
	notes    map[string]bool
	comments map[string]bool
	errs     []error
}

func (v *validator) add(path, format string, args ...interface{}) {
	v.errs = append(v.errs, newValidationError(path, fmt.Sprintf(format, args...)))
}

func (v *validator) oneof(path string, n int) bool {
	if n != 1 {
		v.add(path, "exactly one variant must be set, got %d", n)
		return false
	}
	return true
}

// ValidateBook validates a Book and returns all validation errors.
// A Book produced by the converter is always valid.
func ValidateBook(b *Book) []error {
	v := &validator{
		notes:    anchorSet(b.Notes),
		comments: anchorSet(b.Comments),
	}

	if b.ID == "" {
		v.add("book", "ID is required")
	}

	for i, a := range b.Authors {
		if a.FullName == "" {
			v.add(fmt.Sprintf("book.authors[%d]", i), "full name is empty")
		}
	}

	if b.Cover != nil {
		v.inlineImage("book.cover", b.Cover)
	}
	if b.Annotation != nil {
		v.annotation("book.annotation", b.Annotation)
	}
	if b.Title != nil {
		v.title("book.title", b.Title)
	}
	for i := range b.Epigraphs {
		v.epigraph(fmt.Sprintf("book.epigraphs[%d]", i), &b.Epigraphs[i])
	}
	for i := range b.Chapters {
		v.chapter(fmt.Sprintf("book.chapters[%d]", i), &b.Chapters[i])
	}

	v.footnotes("book.notes", b.Notes)
	v.footnotes("book.comments", b.Comments)

	return v.errs
}

func anchorSet(f *Footnotes) map[string]bool {
	set := make(map[string]bool)
	for _, id := range f.Anchors() {
		set[id] = true
	}
	return set
}

func (v *validator) footnotes(path string, f *Footnotes) {
	if f == nil {
		return
	}
	if f.Title != nil {
		v.title(path+".title", f.Title)
	}
	for id, fn := range f.Content {
		p := fmt.Sprintf("%s.content[%q]", path, id)
		if id == "" {
			v.add(p, "anchor is empty")
		}
		if fn.Title != nil {
			v.title(p+".title", fn.Title)
		}
		v.contents(p, fn.Content)
	}
}

func (v *validator) chapter(path string, c *Chapter) {
	if len(c.Content) == 0 && len(c.SubChapters) == 0 {
		v.add(path, "chapter has neither content nor sub-chapters")
	}
	if c.Title != nil {
		v.title(path+".title", c.Title)
	}
	if c.Annotation != nil {
		v.annotation(path+".annotation", c.Annotation)
	}
	if c.Cover != nil {
		v.image(path+".cover", c.Cover)
	}
	for i := range c.Epigraphs {
		v.epigraph(fmt.Sprintf("%s.epigraphs[%d]", path, i), &c.Epigraphs[i])
	}
	if len(c.Content) > 0 {
		v.contents(path, c.Content)
	}
	for i := range c.SubChapters {
		v.chapter(fmt.Sprintf("%s.sub_chapters[%d]", path, i), &c.SubChapters[i])
	}
}

func (v *validator) contents(path string, cs []Content) {
	if len(cs) == 0 {
		v.add(path, "content is empty")
	}
	for i, c := range cs {
		p := fmt.Sprintf("%s.content[%d]", path, i)
		if !v.oneof(p, c.variants()) {
			continue
		}
		switch c.Kind() {
		case KindParagraph:
			v.paragraph(p+".paragraph", c.Paragraph)
		case KindSubtitle:
			v.paragraph(p+".subtitle", c.Subtitle)
		case KindPoem:
			v.poem(p+".poem", c.Poem)
		case KindCite:
			v.cite(p+".cite", c.Cite)
		case KindTable:
			v.table(p+".table", c.Table)
		case KindImage:
			v.image(p+".image", c.Image)
		}
	}
}

func (v *validator) paragraph(path string, p *Paragraph) {
	if len(p.Content) == 0 {
		v.add(path, "paragraph is empty")
	}
	v.spans(path, p.Content)
}

func (v *validator) spans(path string, spans []Span) {
	for i, s := range spans {
		p := fmt.Sprintf("%s.content[%d]", path, i)
		if !v.oneof(p, s.variants()) {
			continue
		}
		switch s.Kind() {
		case SpanText:
			v.text(p+".text", s.Text)
		case SpanImage:
			v.inlineImage(p+".image", s.Image)
		case SpanLink:
			if s.Link.Href.Local == "" && s.Link.Href.Remote == "" {
				v.add(p+".link", "href is empty")
			}
			if s.Link.Href.Local != "" && s.Link.Href.Remote != "" {
				v.add(p+".link", "href is both local and remote")
			}
			if len(s.Link.Content) == 0 {
				v.add(p+".link", "link has no text")
			}
			for j := range s.Link.Content {
				v.text(fmt.Sprintf("%s.link.content[%d]", p, j), &s.Link.Content[j])
			}
		case SpanFootnote:
			v.footnoteLink(p+".footnote", s.Footnote)
		}
	}
}

func (v *validator) footnoteLink(path string, f *FootnoteLink) {
	switch f.Type {
	case FootnoteNote:
		if !v.notes[f.ID] {
			v.add(path, "unknown note %q", f.ID)
		}
	case FootnoteComment:
		if !v.comments[f.ID] {
			v.add(path, "unknown comment %q", f.ID)
		}
	default:
		v.add(path, "invalid FootnoteType: %q", f.Type)
	}
	if len(f.Content) == 0 {
		v.add(path, "footnote link has no text")
	}
	for j := range f.Content {
		v.text(fmt.Sprintf("%s.content[%d]", path, j), &f.Content[j])
	}
}

func (v *validator) text(path string, t *Text) {
	if t.Value == "" {
		v.add(path, "text is empty")
	}
	if t.FontStyle != nil && !t.FontStyle.IsValid() {
		v.add(path, "invalid FontStyle: %q", *t.FontStyle)
	}
	if t.BaselineShift != nil && !t.BaselineShift.IsValid() {
		v.add(path, "invalid BaselineShift: %q", *t.BaselineShift)
	}
	for _, d := range t.Decorations {
		if !d.IsValid() {
			v.add(path, "invalid TextDecoration: %q", d)
		}
	}
}

func (v *validator) image(path string, img *Image) {
	if img.ID == "" {
		v.add(path, "image id is empty")
	}
}

func (v *validator) inlineImage(path string, img *InlineImage) {
	if img.ID == "" {
		v.add(path, "image id is empty")
	}
}

func (v *validator) poem(path string, p *Poem) {
	if len(p.Content) == 0 {
		v.add(path, "poem is empty")
	}
	if p.Title != nil {
		v.title(path+".title", p.Title)
	}
	for i := range p.Epigraphs {
		v.epigraph(fmt.Sprintf("%s.epigraphs[%d]", path, i), &p.Epigraphs[i])
	}
	for i := range p.Authors {
		v.paragraph(fmt.Sprintf("%s.authors[%d]", path, i), &p.Authors[i])
	}
	for i, e := range p.Content {
		ep := fmt.Sprintf("%s.content[%d]", path, i)
		if !v.oneof(ep, e.variants()) {
			continue
		}
		if e.Stanza != nil {
			v.stanza(ep+".stanza", e.Stanza)
		} else {
			v.paragraph(ep+".subtitle", e.Subtitle)
		}
	}
}

func (v *validator) stanza(path string, s *Stanza) {
	if len(s.Content) == 0 {
		v.add(path, "stanza is empty")
	}
	if s.Title != nil {
		v.title(path+".title", s.Title)
	}
	if s.Subtitle != nil {
		v.paragraph(path+".subtitle", s.Subtitle)
	}
	for i := range s.Content {
		v.paragraph(fmt.Sprintf("%s.content[%d]", path, i), &s.Content[i])
	}
}

func (v *validator) cite(path string, c *Cite) {
	if len(c.Content) == 0 {
		v.add(path, "cite is empty")
	}
	for i, e := range c.Content {
		ep := fmt.Sprintf("%s.content[%d]", path, i)
		if !v.oneof(ep, e.variants()) {
			continue
		}
		switch e.Kind() {
		case KindParagraph:
			v.paragraph(ep+".paragraph", e.Paragraph)
		case KindSubtitle:
			v.paragraph(ep+".subtitle", e.Subtitle)
		case KindPoem:
			v.poem(ep+".poem", e.Poem)
		case KindTable:
			v.table(ep+".table", e.Table)
		}
	}
	for i := range c.Authors {
		v.paragraph(fmt.Sprintf("%s.authors[%d]", path, i), &c.Authors[i])
	}
}

func (v *validator) annotation(path string, a *Annotation) {
	if len(a.Content) == 0 {
		v.add(path, "annotation is empty")
	}
	for i, e := range a.Content {
		ep := fmt.Sprintf("%s.content[%d]", path, i)
		if !v.oneof(ep, e.variants()) {
			continue
		}
		switch e.Kind() {
		case KindParagraph:
			v.paragraph(ep+".paragraph", e.Paragraph)
		case KindSubtitle:
			v.paragraph(ep+".subtitle", e.Subtitle)
		case KindPoem:
			v.poem(ep+".poem", e.Poem)
		case KindCite:
			v.cite(ep+".cite", e.Cite)
		case KindTable:
			v.table(ep+".table", e.Table)
		}
	}
}

func (v *validator) epigraph(path string, e *Epigraph) {
	if len(e.Content) == 0 {
		v.add(path, "epigraph is empty")
	}
	for i, el := range e.Content {
		ep := fmt.Sprintf("%s.content[%d]", path, i)
		if !v.oneof(ep, el.variants()) {
			continue
		}
		switch el.Kind() {
		case KindParagraph:
			v.paragraph(ep+".paragraph", el.Paragraph)
		case KindPoem:
			v.poem(ep+".poem", el.Poem)
		case KindCite:
			v.cite(ep+".cite", el.Cite)
		}
	}
	for i := range e.Authors {
		v.paragraph(fmt.Sprintf("%s.authors[%d]", path, i), &e.Authors[i])
	}
}

func (v *validator) title(path string, t *Title) {
	if len(t.Content) == 0 {
		v.add(path, "title is empty")
	}
	for i, el := range t.Content {
		ep := fmt.Sprintf("%s.content[%d]", path, i)
		if !v.oneof(ep, el.variants()) {
			continue
		}
		if el.Paragraph != nil {
			v.paragraph(ep+".paragraph", el.Paragraph)
		}
	}
}

func (v *validator) table(path string, t *Table) {
	if len(t.Rows) == 0 {
		v.add(path, "table has no rows")
	}
	for i, row := range t.Rows {
		rp := fmt.Sprintf("%s.rows[%d]", path, i)
		if len(row.Cells) == 0 {
			v.add(rp, "row has no cells")
		}
		for j, cell := range row.Cells {
			v.spans(fmt.Sprintf("%s.cells[%d]", rp, j), cell.Content)
		}
	}
}
