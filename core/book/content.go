package book

// content.go - block-level tagged unions.
// Each union is a struct of pointers; exactly one field is set in a valid
// model. Kind returns "" when no variant is set, ValidateBook reports it.

// ContentKind identifies a block-level variant.
type ContentKind string

// Content kind constants, shared by every element union.
const (
	KindParagraph ContentKind = "paragraph"
	KindPoem      ContentKind = "poem"
	KindSubtitle  ContentKind = "subtitle"
	KindCite      ContentKind = "cite"
	KindTable     ContentKind = "table"
	KindImage     ContentKind = "image"
	KindEmptyLine ContentKind = "empty_line"
	KindStanza    ContentKind = "stanza"
)

// Content is a block element of a chapter or footnote body.
type Content struct {
	Paragraph *Paragraph `json:"paragraph,omitempty"`
	Poem      *Poem      `json:"poem,omitempty"`
	Subtitle  *Paragraph `json:"subtitle,omitempty"`
	Cite      *Cite      `json:"cite,omitempty"`
	Table     *Table     `json:"table,omitempty"`
	Image     *Image     `json:"image,omitempty"`
	EmptyLine *EmptyLine `json:"empty_line,omitempty"`
}

// Kind returns the variant set on the content.
func (c Content) Kind() ContentKind {
	switch {
	case c.Paragraph != nil:
		return KindParagraph
	case c.Poem != nil:
		return KindPoem
	case c.Subtitle != nil:
		return KindSubtitle
	case c.Cite != nil:
		return KindCite
	case c.Table != nil:
		return KindTable
	case c.Image != nil:
		return KindImage
	case c.EmptyLine != nil:
		return KindEmptyLine
	}
	return ""
}

func (c Content) variants() int {
	return count(c.Paragraph != nil, c.Poem != nil, c.Subtitle != nil, c.Cite != nil,
		c.Table != nil, c.Image != nil, c.EmptyLine != nil)
}

// AnnotationElement is a block element of an annotation.
type AnnotationElement struct {
	Paragraph *Paragraph `json:"paragraph,omitempty"`
	Poem      *Poem      `json:"poem,omitempty"`
	Cite      *Cite      `json:"cite,omitempty"`
	Subtitle  *Paragraph `json:"subtitle,omitempty"`
	Table     *Table     `json:"table,omitempty"`
	EmptyLine *EmptyLine `json:"empty_line,omitempty"`
}

// Kind returns the variant set on the element.
func (e AnnotationElement) Kind() ContentKind {
	switch {
	case e.Paragraph != nil:
		return KindParagraph
	case e.Poem != nil:
		return KindPoem
	case e.Cite != nil:
		return KindCite
	case e.Subtitle != nil:
		return KindSubtitle
	case e.Table != nil:
		return KindTable
	case e.EmptyLine != nil:
		return KindEmptyLine
	}
	return ""
}

func (e AnnotationElement) variants() int {
	return count(e.Paragraph != nil, e.Poem != nil, e.Cite != nil, e.Subtitle != nil,
		e.Table != nil, e.EmptyLine != nil)
}

// EpigraphElement is a block element of an epigraph.
type EpigraphElement struct {
	Paragraph *Paragraph `json:"paragraph,omitempty"`
	Poem      *Poem      `json:"poem,omitempty"`
	Cite      *Cite      `json:"cite,omitempty"`
	EmptyLine *EmptyLine `json:"empty_line,omitempty"`
}

// Kind returns the variant set on the element.
func (e EpigraphElement) Kind() ContentKind {
	switch {
	case e.Paragraph != nil:
		return KindParagraph
	case e.Poem != nil:
		return KindPoem
	case e.Cite != nil:
		return KindCite
	case e.EmptyLine != nil:
		return KindEmptyLine
	}
	return ""
}

func (e EpigraphElement) variants() int {
	return count(e.Paragraph != nil, e.Poem != nil, e.Cite != nil, e.EmptyLine != nil)
}

// CiteElement is a block element of a cite.
type CiteElement struct {
	Paragraph *Paragraph `json:"paragraph,omitempty"`
	Poem      *Poem      `json:"poem,omitempty"`
	Subtitle  *Paragraph `json:"subtitle,omitempty"`
	Table     *Table     `json:"table,omitempty"`
	EmptyLine *EmptyLine `json:"empty_line,omitempty"`
}

// Kind returns the variant set on the element.
func (e CiteElement) Kind() ContentKind {
	switch {
	case e.Paragraph != nil:
		return KindParagraph
	case e.Poem != nil:
		return KindPoem
	case e.Subtitle != nil:
		return KindSubtitle
	case e.Table != nil:
		return KindTable
	case e.EmptyLine != nil:
		return KindEmptyLine
	}
	return ""
}

func (e CiteElement) variants() int {
	return count(e.Paragraph != nil, e.Poem != nil, e.Subtitle != nil, e.Table != nil,
		e.EmptyLine != nil)
}

// TitleElement is a line of a title.
type TitleElement struct {
	Paragraph *Paragraph `json:"paragraph,omitempty"`
	EmptyLine *EmptyLine `json:"empty_line,omitempty"`
}

// Kind returns the variant set on the element.
func (e TitleElement) Kind() ContentKind {
	switch {
	case e.Paragraph != nil:
		return KindParagraph
	case e.EmptyLine != nil:
		return KindEmptyLine
	}
	return ""
}

func (e TitleElement) variants() int {
	return count(e.Paragraph != nil, e.EmptyLine != nil)
}

// PoemElement is a stanza or a subtitle inside a poem.
type PoemElement struct {
	Stanza   *Stanza    `json:"stanza,omitempty"`
	Subtitle *Paragraph `json:"subtitle,omitempty"`
}

// Kind returns the variant set on the element.
func (e PoemElement) Kind() ContentKind {
	switch {
	case e.Stanza != nil:
		return KindStanza
	case e.Subtitle != nil:
		return KindSubtitle
	}
	return ""
}

func (e PoemElement) variants() int {
	return count(e.Stanza != nil, e.Subtitle != nil)
}

func count(set ...bool) int {
	n := 0
	for _, b := range set {
		if b {
			n++
		}
	}
	return n
}
