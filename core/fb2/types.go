// Package fb2 holds the FictionBook 2 source tree and its XML parser.
//
// The tree mirrors the FB2 schema closely. Block and inline markup are
// tagged structs: a Kind field selects which of the pointer (or string)
// fields is meaningful. Per-container element sets are enforced by the
// parser, so a Title never holds a table and a link never holds a link.
package fb2

import "time"

// FictionBook is the root of a parsed FB2 document.
type FictionBook struct {
	Description Description
	Bodies      []Body
	Binaries    []Binary
}

// Description is the metadata block.
type Description struct {
	TitleInfo    TitleInfo
	DocumentInfo *DocumentInfo
}

// TitleInfo describes the book itself.
type TitleInfo struct {
	Genres      []string
	Authors     []Author
	BookTitle   string
	Annotation  *Annotation
	Keywords    string
	Date        *Date
	CoverPage   *CoverPage
	Lang        string
	SrcLang     string
	Translators []Author
	Sequences   []Sequence
}

// DocumentInfo describes the FB2 file rather than the book.
type DocumentInfo struct {
	Authors     []Author
	ProgramUsed string
	Date        *Date
	ID          string
	Version     string
}

// Sequence is a book series membership.
type Sequence struct {
	Name   string
	Number int
}

// CoverPage lists cover images.
type CoverPage struct {
	Images []InlineImage
}

// Date is a date with an optional machine value and free display text.
type Date struct {
	Value   *time.Time
	Display string
}

// AuthorKind distinguishes authors with a structured name from nickname-only ones.
type AuthorKind int

const (
	AuthorVerbose AuthorKind = iota
	AuthorAnonymous
)

// Author is a person credited by the document. Anonymous authors only carry
// a nickname.
type Author struct {
	Kind       AuthorKind
	FirstName  string
	MiddleName string
	LastName   string
	Nickname   string
	HomePages  []string
	Emails     []string
	ID         string
}

// Body is one of the document bodies. The main body has no name; footnote
// bodies are named ("notes", "comments").
type Body struct {
	Name      string
	Lang      string
	Image     *Image
	Title     *Title
	Epigraphs []Epigraph
	Sections  []Section
}

// Section is a body section. Content is nil for a section with no child
// elements.
type Section struct {
	ID      string
	Lang    string
	Content *SectionContent
}

// SectionContent is the payload of a non-empty section.
type SectionContent struct {
	Title      *Title
	Epigraphs  []Epigraph
	Image      *Image
	Annotation *Annotation
	Content    []Element
	Sections   []Section
}

// ElementKind selects the block element variant.
type ElementKind int

const (
	ElementParagraph ElementKind = iota
	ElementPoem
	ElementSubtitle
	ElementCite
	ElementEmptyLine
	ElementTable
	ElementImage
)

var elementKindNames = map[ElementKind]string{
	ElementParagraph: "p",
	ElementPoem:      "poem",
	ElementSubtitle:  "subtitle",
	ElementCite:      "cite",
	ElementEmptyLine: "empty-line",
	ElementTable:     "table",
	ElementImage:     "image",
}

// String returns the FB2 tag name of the kind.
func (k ElementKind) String() string {
	return elementKindNames[k]
}

// Element is a block element. Paragraph is set for both paragraphs and
// subtitles.
type Element struct {
	Kind      ElementKind
	Paragraph *Paragraph
	Poem      *Poem
	Cite      *Cite
	Table     *Table
	Image     *Image
}

// Paragraph is a run of inline markup.
type Paragraph struct {
	ID       string
	Lang     string
	Style    string
	Elements []StyleElement
}

// Poem is verse with optional framing.
type Poem struct {
	ID          string
	Lang        string
	Title       *Title
	Epigraphs   []Epigraph
	Stanzas     []PoemStanza
	TextAuthors []Paragraph
	Date        *Date
}

// PoemStanza is a stanza or a subtitle between stanzas.
type PoemStanza struct {
	Stanza   *Stanza
	Subtitle *Paragraph
}

// Stanza is a group of verse lines.
type Stanza struct {
	Lang     string
	Title    *Title
	Subtitle *Paragraph
	Lines    []Paragraph
}

// Cite is a quotation. Elements hold p, poem, subtitle, table and empty-line.
type Cite struct {
	ID          string
	Lang        string
	Elements    []Element
	TextAuthors []Paragraph
}

// Epigraph holds p, poem, cite and empty-line elements.
type Epigraph struct {
	ID          string
	Elements    []Element
	TextAuthors []Paragraph
}

// Annotation holds p, poem, cite, subtitle, table and empty-line elements.
type Annotation struct {
	ID       string
	Lang     string
	Elements []Element
}

// Title holds p and empty-line elements.
type Title struct {
	Lang     string
	Elements []Element
}

// Table is a grid of cells.
type Table struct {
	ID    string
	Style string
	Rows  []TableRow
}

// TableRow is a row of cells.
type TableRow struct {
	Align string
	Cells []TableCell
}

// CellKind distinguishes header cells (th) from data cells (td).
type CellKind int

const (
	CellData CellKind = iota
	CellHead
)

// TableCell is a th or td element.
type TableCell struct {
	Kind     CellKind
	ID       string
	Style    string
	ColSpan  int
	RowSpan  int
	Align    string
	VAlign   string
	Elements []StyleElement
}

// Image is a block image referencing a binary by href ("#id").
type Image struct {
	ID    string
	Href  string
	Alt   string
	Title string
}

// InlineImage is an image inside running text.
type InlineImage struct {
	Href string
	Alt  string
}

// StyleKind selects the inline markup variant.
type StyleKind int

const (
	StyleText StyleKind = iota
	StyleStrong
	StyleEmphasis
	StyleNamed
	StyleStrikethrough
	StyleSub
	StyleSup
	StyleCode
	StyleLink
	StyleImage
)

var styleKindNames = map[StyleKind]string{
	StyleText:          "text",
	StyleStrong:        "strong",
	StyleEmphasis:      "emphasis",
	StyleNamed:         "style",
	StyleStrikethrough: "strikethrough",
	StyleSub:           "sub",
	StyleSup:           "sup",
	StyleCode:          "code",
	StyleLink:          "a",
	StyleImage:         "image",
}

// String returns the FB2 tag name of the kind.
func (k StyleKind) String() string {
	return styleKindNames[k]
}

// IsWrapper reports whether the kind wraps child markup.
func (k StyleKind) IsWrapper() bool {
	switch k {
	case StyleStrong, StyleEmphasis, StyleNamed, StyleStrikethrough, StyleSub, StyleSup, StyleCode:
		return true
	}
	return false
}

// StyleElement is a node of inline markup. Text is set for StyleText,
// Elements for wrappers, Link and Image for their kinds. Name carries the
// name attribute of a named style.
type StyleElement struct {
	Kind     StyleKind
	Text     string
	Name     string
	Elements []StyleElement
	Link     *Link
	Image    *InlineImage
}

// Link is an inline hyperlink. Type is the FB2 "type" attribute; "note"
// marks a footnote reference.
type Link struct {
	Href     string
	Type     string
	Elements []StyleLinkElement
}

// StyleLinkElement is inline markup allowed inside a link: the wrappers,
// text and images, never another link.
type StyleLinkElement struct {
	Kind     StyleKind
	Text     string
	Elements []StyleLinkElement
	Image    *InlineImage
}

// Binary is an embedded resource, already base64-decoded.
type Binary struct {
	ID          string
	ContentType string
	Data        []byte
}
