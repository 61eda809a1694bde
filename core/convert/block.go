package convert

import (
	"github.com/FocuswithJustin/protobook/core/book"
	"github.com/FocuswithJustin/protobook/core/fb2"
)

func (w *walker) convertParagraph(p *fb2.Paragraph) *book.Paragraph {
	if p == nil {
		return nil
	}
	spans := w.convertSpans(p.Elements)
	if len(spans) == 0 {
		w.dropped("paragraph", "empty", "anchor", p.ID)
		return nil
	}
	return &book.Paragraph{Anchor: p.ID, Content: spans}
}

func (w *walker) convertParagraphs(ps []fb2.Paragraph) []book.Paragraph {
	var out []book.Paragraph
	for i := range ps {
		if p := w.convertParagraph(&ps[i]); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (w *walker) convertTitle(t *fb2.Title) *book.Title {
	if t == nil {
		return nil
	}
	var content []book.TitleElement
	for i := range t.Elements {
		el := &t.Elements[i]
		switch el.Kind {
		case fb2.ElementParagraph:
			if p := w.convertParagraph(el.Paragraph); p != nil {
				content = append(content, book.TitleElement{Paragraph: p})
			}
		case fb2.ElementEmptyLine:
			content = append(content, book.TitleElement{EmptyLine: &book.EmptyLine{}})
		}
	}
	if len(content) == 0 {
		w.dropped("title", "empty")
		return nil
	}
	return &book.Title{Content: content}
}

func (w *walker) convertEpigraph(e *fb2.Epigraph) *book.Epigraph {
	var content []book.EpigraphElement
	for i := range e.Elements {
		el := &e.Elements[i]
		switch el.Kind {
		case fb2.ElementParagraph:
			if p := w.convertParagraph(el.Paragraph); p != nil {
				content = append(content, book.EpigraphElement{Paragraph: p})
			}
		case fb2.ElementPoem:
			if p := w.convertPoem(el.Poem); p != nil {
				content = append(content, book.EpigraphElement{Poem: p})
			}
		case fb2.ElementCite:
			if c := w.convertCite(el.Cite); c != nil {
				content = append(content, book.EpigraphElement{Cite: c})
			}
		case fb2.ElementEmptyLine:
			content = append(content, book.EpigraphElement{EmptyLine: &book.EmptyLine{}})
		}
	}
	if len(content) == 0 {
		w.dropped("epigraph", "empty", "anchor", e.ID)
		return nil
	}
	return &book.Epigraph{
		Anchor:  e.ID,
		Authors: w.convertParagraphs(e.TextAuthors),
		Content: content,
	}
}

func (w *walker) convertEpigraphs(es []fb2.Epigraph) []book.Epigraph {
	var out []book.Epigraph
	for i := range es {
		if e := w.convertEpigraph(&es[i]); e != nil {
			out = append(out, *e)
		}
	}
	return out
}

func (w *walker) convertAnnotation(a *fb2.Annotation) *book.Annotation {
	if a == nil {
		return nil
	}
	var content []book.AnnotationElement
	for i := range a.Elements {
		el := &a.Elements[i]
		switch el.Kind {
		case fb2.ElementParagraph:
			if p := w.convertParagraph(el.Paragraph); p != nil {
				content = append(content, book.AnnotationElement{Paragraph: p})
			}
		case fb2.ElementPoem:
			if p := w.convertPoem(el.Poem); p != nil {
				content = append(content, book.AnnotationElement{Poem: p})
			}
		case fb2.ElementCite:
			if c := w.convertCite(el.Cite); c != nil {
				content = append(content, book.AnnotationElement{Cite: c})
			}
		case fb2.ElementSubtitle:
			if p := w.convertParagraph(el.Paragraph); p != nil {
				content = append(content, book.AnnotationElement{Subtitle: p})
			}
		case fb2.ElementTable:
			if t := w.convertTable(el.Table); t != nil {
				content = append(content, book.AnnotationElement{Table: t})
			}
		case fb2.ElementEmptyLine:
			content = append(content, book.AnnotationElement{EmptyLine: &book.EmptyLine{}})
		}
	}
	if len(content) == 0 {
		w.dropped("annotation", "empty", "anchor", a.ID)
		return nil
	}
	return &book.Annotation{Anchor: a.ID, Content: content}
}

func (w *walker) convertCite(c *fb2.Cite) *book.Cite {
	if c == nil {
		return nil
	}
	var content []book.CiteElement
	for i := range c.Elements {
		el := &c.Elements[i]
		switch el.Kind {
		case fb2.ElementParagraph:
			if p := w.convertParagraph(el.Paragraph); p != nil {
				content = append(content, book.CiteElement{Paragraph: p})
			}
		case fb2.ElementPoem:
			if p := w.convertPoem(el.Poem); p != nil {
				content = append(content, book.CiteElement{Poem: p})
			}
		case fb2.ElementSubtitle:
			if p := w.convertParagraph(el.Paragraph); p != nil {
				content = append(content, book.CiteElement{Subtitle: p})
			}
		case fb2.ElementTable:
			if t := w.convertTable(el.Table); t != nil {
				content = append(content, book.CiteElement{Table: t})
			}
		case fb2.ElementEmptyLine:
			content = append(content, book.CiteElement{EmptyLine: &book.EmptyLine{}})
		}
	}
	if len(content) == 0 {
		w.dropped("cite", "empty", "anchor", c.ID)
		return nil
	}
	return &book.Cite{
		Anchor:  c.ID,
		Content: content,
		Authors: w.convertParagraphs(c.TextAuthors),
	}
}

func (w *walker) convertPoem(p *fb2.Poem) *book.Poem {
	if p == nil {
		return nil
	}
	var content []book.PoemElement
	for i := range p.Stanzas {
		el := &p.Stanzas[i]
		switch {
		case el.Stanza != nil:
			if s := w.convertStanza(el.Stanza); s != nil {
				content = append(content, book.PoemElement{Stanza: s})
			}
		case el.Subtitle != nil:
			if sub := w.convertParagraph(el.Subtitle); sub != nil {
				content = append(content, book.PoemElement{Subtitle: sub})
			}
		}
	}
	if len(content) == 0 {
		w.dropped("poem", "empty", "anchor", p.ID)
		return nil
	}
	return &book.Poem{
		Anchor:    p.ID,
		Title:     w.convertTitle(p.Title),
		Epigraphs: w.convertEpigraphs(p.Epigraphs),
		Authors:   w.convertParagraphs(p.TextAuthors),
		Content:   content,
	}
}

func (w *walker) convertStanza(s *fb2.Stanza) *book.Stanza {
	lines := w.convertParagraphs(s.Lines)
	if len(lines) == 0 {
		w.dropped("stanza", "empty")
		return nil
	}
	var subtitle *book.Paragraph
	if s.Subtitle != nil {
		subtitle = w.convertParagraph(s.Subtitle)
	}
	return &book.Stanza{
		Title:    w.convertTitle(s.Title),
		Subtitle: subtitle,
		Content:  lines,
	}
}

// isHead reports whether the cell at (row, col) exists and is a header cell.
func isHead(rows []fb2.TableRow, row, col int) bool {
	if row >= len(rows) || col >= len(rows[row].Cells) {
		return false
	}
	return rows[row].Cells[col].Kind == fb2.CellHead
}

// convertTable infers the header shape from the first two cells of the
// first two rows. Cells are never dropped, rows without cells are.
func (w *walker) convertTable(t *fb2.Table) *book.Table {
	if t == nil {
		return nil
	}
	corner := isHead(t.Rows, 0, 0)
	out := &book.Table{
		Anchor:       t.ID,
		HeaderRow:    corner && isHead(t.Rows, 0, 1),
		HeaderColumn: corner && isHead(t.Rows, 1, 0),
	}

	for i := range t.Rows {
		src := &t.Rows[i]
		if len(src.Cells) == 0 {
			w.dropped("table row", "no cells", "row", i)
			continue
		}
		row := book.TableRow{Cells: make([]book.TableCell, 0, len(src.Cells))}
		for j := range src.Cells {
			cell := &src.Cells[j]
			row.Cells = append(row.Cells, book.TableCell{
				Anchor:  cell.ID,
				Content: w.convertSpans(cell.Elements),
			})
		}
		out.Rows = append(out.Rows, row)
	}

	if len(out.Rows) == 0 {
		w.dropped("table", "no rows", "anchor", t.ID)
		return nil
	}
	return out
}

// convertContent converts a section element. EmptyLine always survives.
func (w *walker) convertContent(el *fb2.Element) *book.Content {
	switch el.Kind {
	case fb2.ElementParagraph:
		if p := w.convertParagraph(el.Paragraph); p != nil {
			return &book.Content{Paragraph: p}
		}
	case fb2.ElementSubtitle:
		if p := w.convertParagraph(el.Paragraph); p != nil {
			return &book.Content{Subtitle: p}
		}
	case fb2.ElementPoem:
		if p := w.convertPoem(el.Poem); p != nil {
			return &book.Content{Poem: p}
		}
	case fb2.ElementCite:
		if c := w.convertCite(el.Cite); c != nil {
			return &book.Content{Cite: c}
		}
	case fb2.ElementTable:
		if t := w.convertTable(el.Table); t != nil {
			return &book.Content{Table: t}
		}
	case fb2.ElementImage:
		if img := w.convertImage(el.Image); img != nil {
			return &book.Content{Image: img}
		}
	case fb2.ElementEmptyLine:
		return &book.Content{EmptyLine: &book.EmptyLine{}}
	}
	return nil
}

func (w *walker) convertContents(els []fb2.Element) []book.Content {
	var out []book.Content
	for i := range els {
		if c := w.convertContent(&els[i]); c != nil {
			out = append(out, *c)
		}
	}
	return out
}
