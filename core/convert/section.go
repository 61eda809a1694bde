package convert

import (
	"github.com/FocuswithJustin/protobook/core/book"
	"github.com/FocuswithJustin/protobook/core/fb2"
)

// convertChapter converts a section and its sub-sections depth first. A
// chapter with neither content nor sub-chapters is dropped; one with only
// sub-chapters is kept as a grouping node.
func (w *walker) convertChapter(s *fb2.Section) *book.Chapter {
	if s.Content == nil {
		w.dropped("chapter", "empty section", "anchor", s.ID)
		return nil
	}
	sc := s.Content

	subChapters := w.convertChapters(sc.Sections)
	content := w.convertContents(sc.Content)
	if len(content) == 0 && len(subChapters) == 0 {
		w.dropped("chapter", "no content", "anchor", s.ID)
		return nil
	}

	return &book.Chapter{
		Anchor:      s.ID,
		Title:       w.convertTitle(sc.Title),
		Annotation:  w.convertAnnotation(sc.Annotation),
		Cover:       w.convertImage(sc.Image),
		Epigraphs:   w.convertEpigraphs(sc.Epigraphs),
		Content:     content,
		SubChapters: subChapters,
	}
}

func (w *walker) convertChapters(sections []fb2.Section) []book.Chapter {
	var out []book.Chapter
	for i := range sections {
		if c := w.convertChapter(&sections[i]); c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// convertFootnote converts a notes or comments section. The section id is
// the anchor and is required. Nested sections are not footnote content.
func (w *walker) convertFootnote(s *fb2.Section) (string, *book.Footnote) {
	if s.ID == "" {
		w.dropped("footnote", "missing id")
		return "", nil
	}
	if s.Content == nil {
		w.dropped("footnote", "empty section", "anchor", s.ID)
		return "", nil
	}
	content := w.convertContents(s.Content.Content)
	if len(content) == 0 {
		w.dropped("footnote", "no content", "anchor", s.ID)
		return "", nil
	}
	return s.ID, &book.Footnote{
		Title:   w.convertTitle(s.Content.Title),
		Content: content,
	}
}

// convertFootnotes converts a notes or comments body. It returns nil when
// no footnote survives. A repeated anchor keeps its first footnote.
func (w *walker) convertFootnotes(body *fb2.Body) *book.Footnotes {
	if body == nil {
		return nil
	}
	content := make(map[string]book.Footnote)
	for i := range body.Sections {
		id, fn := w.convertFootnote(&body.Sections[i])
		if fn == nil {
			continue
		}
		if _, dup := content[id]; dup {
			w.dropped("footnote", "duplicate id", "anchor", id)
			continue
		}
		content[id] = *fn
	}
	if len(content) == 0 {
		return nil
	}
	return &book.Footnotes{
		Title:   w.convertTitle(body.Title),
		Content: content,
	}
}
