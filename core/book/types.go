package book

// types.go - structural node types of the Book model.
// Tagged unions live in content.go, inline types in span.go.

// Book is the root of a converted document.
type Book struct {
	// ID is the caller-supplied document identifier.
	ID string `json:"id"`

	// Language is a BCP-47 tag, empty when the source had none or an invalid one.
	Language string `json:"language"`

	// ShortTitle is the plain-text book title.
	ShortTitle string `json:"short_title"`

	// Date is absent when the source declared no date.
	Date *Date `json:"date,omitempty"`

	// Authors lists authors with a displayable name, in source order.
	Authors []Author `json:"authors,omitempty"`

	// Cover is the first resolvable cover page image.
	Cover *InlineImage `json:"cover,omitempty"`

	// Annotation is the book-level abstract.
	Annotation *Annotation `json:"annotation,omitempty"`

	// Title is the formatted title of the main body.
	Title *Title `json:"title,omitempty"`

	// Epigraphs are the main body epigraphs.
	Epigraphs []Epigraph `json:"epigraphs,omitempty"`

	// Chapters is the chapter tree of the main body.
	Chapters []Chapter `json:"chapters,omitempty"`

	// Notes holds footnotes addressed by anchor id.
	Notes *Footnotes `json:"notes,omitempty"`

	// Comments holds comments addressed by anchor id.
	Comments *Footnotes `json:"comments,omitempty"`
}

// Author is a book author. FullName is never empty.
type Author struct {
	// ID is a placeholder; authors are not deduplicated or cross-referenced.
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`
}

// Date is a publication date in machine and display form. Either may be empty.
type Date struct {
	ISODate     string `json:"iso_date"`
	DisplayDate string `json:"display_date"`
}

// Chapter is a node of the chapter tree. A chapter always has content,
// sub-chapters, or both.
type Chapter struct {
	Anchor      string      `json:"anchor,omitempty"`
	Title       *Title      `json:"title,omitempty"`
	Annotation  *Annotation `json:"annotation,omitempty"`
	Cover       *Image      `json:"cover,omitempty"`
	Epigraphs   []Epigraph  `json:"epigraphs,omitempty"`
	Content     []Content   `json:"content,omitempty"`
	SubChapters []Chapter   `json:"sub_chapters,omitempty"`
}

// Footnotes is one collection of auxiliary content (notes or comments).
type Footnotes struct {
	Title   *Title              `json:"title,omitempty"`
	Content map[string]Footnote `json:"content"`
}

// Anchors returns the anchor ids of the collection. Nil receivers have none.
func (f *Footnotes) Anchors() []string {
	if f == nil {
		return nil
	}
	anchors := make([]string, 0, len(f.Content))
	for id := range f.Content {
		anchors = append(anchors, id)
	}
	return anchors
}

// Footnote is a single note or comment body.
type Footnote struct {
	Title   *Title    `json:"title,omitempty"`
	Content []Content `json:"content"`
}

// Paragraph is an anchor-tagged run of spans. Content is never empty.
type Paragraph struct {
	Anchor  string `json:"anchor,omitempty"`
	Content []Span `json:"content"`
}

// Poem is a sequence of stanzas and subtitles.
type Poem struct {
	Anchor    string        `json:"anchor,omitempty"`
	Title     *Title        `json:"title,omitempty"`
	Epigraphs []Epigraph    `json:"epigraphs,omitempty"`
	Authors   []Paragraph   `json:"authors,omitempty"`
	Content   []PoemElement `json:"content"`
}

// Stanza is a group of verse lines.
type Stanza struct {
	Title    *Title      `json:"title,omitempty"`
	Subtitle *Paragraph  `json:"subtitle,omitempty"`
	Content  []Paragraph `json:"content"`
}

// Cite is a quotation block.
type Cite struct {
	Anchor  string        `json:"anchor,omitempty"`
	Content []CiteElement `json:"content"`
	Authors []Paragraph   `json:"authors,omitempty"`
}

// Annotation is an abstract attached to a book or chapter.
type Annotation struct {
	Anchor  string              `json:"anchor,omitempty"`
	Content []AnnotationElement `json:"content"`
}

// Epigraph is a short quotation preceding a body, chapter or poem.
type Epigraph struct {
	Anchor  string            `json:"anchor,omitempty"`
	Authors []Paragraph       `json:"authors,omitempty"`
	Content []EpigraphElement `json:"content"`
}

// Title is a formatted heading.
type Title struct {
	Content []TitleElement `json:"content"`
}

// Table is a grid of span cells. HeaderRow and HeaderColumn are inferred from
// the cell kinds of the first two rows.
type Table struct {
	Anchor       string     `json:"anchor,omitempty"`
	HeaderColumn bool       `json:"header_column"`
	HeaderRow    bool       `json:"header_row"`
	Rows         []TableRow `json:"rows"`
}

// TableRow is a non-empty row of cells.
type TableRow struct {
	Cells []TableCell `json:"cells"`
}

// TableCell may be empty; empty cells keep rows and columns aligned.
type TableCell struct {
	Anchor  string `json:"anchor,omitempty"`
	Content []Span `json:"content,omitempty"`
}

// Image is a block image resolved to a binary resource id.
type Image struct {
	ID     string `json:"id"`
	Anchor string `json:"anchor,omitempty"`
	Alt    string `json:"alt,omitempty"`
	Title  string `json:"title,omitempty"`
}

// InlineImage is an image inside running text.
type InlineImage struct {
	ID  string `json:"id"`
	Alt string `json:"alt,omitempty"`
}

// EmptyLine is a vertical spacing marker.
type EmptyLine struct{}
