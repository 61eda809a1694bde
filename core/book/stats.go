package book

// BookStats summarizes the contents of a Book.
type BookStats struct {
	Chapters   int `json:"chapters"`
	Paragraphs int `json:"paragraphs"`
	Poems      int `json:"poems"`
	Tables     int `json:"tables"`
	Images     int `json:"images"`
	Links      int `json:"links"`
	NoteRefs   int `json:"note_refs"`
	Notes      int `json:"notes"`
	Comments   int `json:"comments"`
}

// Stats walks the main body of b and counts its nodes. Notes and Comments
// count the footnote collections; NoteRefs counts footnote spans of both kinds.
func Stats(b *Book) BookStats {
	var s BookStats
	if b.Notes != nil {
		s.Notes = len(b.Notes.Content)
	}
	if b.Comments != nil {
		s.Comments = len(b.Comments.Content)
	}
	if b.Cover != nil {
		s.Images++
	}
	for i := range b.Chapters {
		s.chapter(&b.Chapters[i])
	}
	return s
}

func (s *BookStats) chapter(c *Chapter) {
	s.Chapters++
	if c.Cover != nil {
		s.Images++
	}
	for _, content := range c.Content {
		switch content.Kind() {
		case KindParagraph:
			s.paragraph(content.Paragraph)
		case KindSubtitle:
			s.paragraph(content.Subtitle)
		case KindPoem:
			s.poem(content.Poem)
		case KindCite:
			for _, e := range content.Cite.Content {
				switch {
				case e.Paragraph != nil:
					s.paragraph(e.Paragraph)
				case e.Subtitle != nil:
					s.paragraph(e.Subtitle)
				case e.Poem != nil:
					s.poem(e.Poem)
				case e.Table != nil:
					s.table(e.Table)
				}
			}
		case KindTable:
			s.table(content.Table)
		case KindImage:
			s.Images++
		}
	}
	for i := range c.SubChapters {
		s.chapter(&c.SubChapters[i])
	}
}

func (s *BookStats) poem(p *Poem) {
	s.Poems++
	for _, e := range p.Content {
		if e.Stanza == nil {
			continue
		}
		for i := range e.Stanza.Content {
			s.spans(e.Stanza.Content[i].Content)
		}
	}
}

func (s *BookStats) table(t *Table) {
	s.Tables++
	for _, row := range t.Rows {
		for _, cell := range row.Cells {
			s.spans(cell.Content)
		}
	}
}

func (s *BookStats) paragraph(p *Paragraph) {
	s.Paragraphs++
	s.spans(p.Content)
}

func (s *BookStats) spans(spans []Span) {
	for _, sp := range spans {
		switch sp.Kind() {
		case SpanImage:
			s.Images++
		case SpanLink:
			s.Links++
		case SpanFootnote:
			s.NoteRefs++
		}
	}
}
