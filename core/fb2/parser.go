package fb2

import (
	"bytes"
	"encoding/base64"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/FocuswithJustin/protobook/core/errors"
	"github.com/FocuswithJustin/protobook/core/xml"
	"github.com/FocuswithJustin/protobook/internal/logging"
)

// Top-level selections. local-name() keeps them independent of the
// namespace prefix a producer chose for the FictionBook namespace.
const (
	xpathDescription = "/*[local-name()='FictionBook']/*[local-name()='description']"
	xpathBodies      = "/*[local-name()='FictionBook']/*[local-name()='body']"
	xpathBinaries    = "/*[local-name()='FictionBook']/*[local-name()='binary']"
)

// dateLayouts are tried in order for date value attributes.
var dateLayouts = []string{"2006-01-02Z07:00", "2006-01-02"}

// Parser builds FictionBook trees. The zero value logs to the global logger.
type Parser struct {
	Logger *slog.Logger
}

// Parse parses FB2 data with the default parser.
func Parse(data []byte) (*FictionBook, error) {
	return (&Parser{}).Parse(data)
}

// ParseReader parses FB2 from r with the default parser.
func ParseReader(r io.Reader) (*FictionBook, error) {
	return (&Parser{}).ParseReader(r)
}

// Parse parses FB2 data.
func (p *Parser) Parse(data []byte) (*FictionBook, error) {
	return p.ParseReader(bytes.NewReader(data))
}

// ParseReader parses FB2 from r. Malformed XML, a root element other than
// FictionBook and undecodable binaries are reported as *errors.ParseError.
// Unknown elements are skipped.
func (p *Parser) ParseReader(r io.Reader) (*FictionBook, error) {
	doc, err := xml.ParseReader(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "FB2", Message: "malformed XML", Err: err}
	}

	root := doc.Root()
	if root == nil || root.Name() != "FictionBook" {
		name := ""
		if root != nil {
			name = root.Name()
		}
		return nil, errors.NewParse("FB2", name, "root element must be FictionBook")
	}

	fb := &FictionBook{}

	desc, err := doc.XPathFirst(xpathDescription)
	if err != nil {
		return nil, err
	}
	if desc != nil {
		fb.Description = p.parseDescription(desc)
	}

	bodies, err := doc.XPath(xpathBodies)
	if err != nil {
		return nil, err
	}
	for _, n := range bodies {
		fb.Bodies = append(fb.Bodies, p.parseBody(n))
	}

	binaries, err := doc.XPath(xpathBinaries)
	if err != nil {
		return nil, err
	}
	for _, n := range binaries {
		bin, err := parseBinary(n)
		if err != nil {
			return nil, err
		}
		fb.Binaries = append(fb.Binaries, bin)
	}

	return fb, nil
}

func (p *Parser) skip(parent string, n *xml.Node) {
	logging.SkippedElement(p.Logger, parent, n.Name(), "line", n.Line())
}

func (p *Parser) parseDescription(n *xml.Node) Description {
	var d Description
	for _, child := range n.Children() {
		switch child.Name() {
		case "title-info":
			d.TitleInfo = p.parseTitleInfo(child)
		case "document-info":
			d.DocumentInfo = p.parseDocumentInfo(child)
		}
	}
	return d
}

func (p *Parser) parseTitleInfo(n *xml.Node) TitleInfo {
	var ti TitleInfo
	for _, child := range n.Children() {
		switch child.Name() {
		case "genre":
			ti.Genres = append(ti.Genres, textOf(child))
		case "author":
			ti.Authors = append(ti.Authors, parseAuthor(child))
		case "book-title":
			ti.BookTitle = textOf(child)
		case "annotation":
			a := p.parseAnnotation(child)
			ti.Annotation = &a
		case "keywords":
			ti.Keywords = textOf(child)
		case "date":
			ti.Date = parseDate(child)
		case "coverpage":
			cp := &CoverPage{}
			for _, img := range child.Children() {
				if img.Name() == "image" {
					cp.Images = append(cp.Images, parseInlineImage(img))
				}
			}
			ti.CoverPage = cp
		case "lang":
			ti.Lang = textOf(child)
		case "src-lang":
			ti.SrcLang = textOf(child)
		case "translator":
			ti.Translators = append(ti.Translators, parseAuthor(child))
		case "sequence":
			ti.Sequences = append(ti.Sequences, parseSequence(child))
		default:
			p.skip("title-info", child)
		}
	}
	return ti
}

func (p *Parser) parseDocumentInfo(n *xml.Node) *DocumentInfo {
	di := &DocumentInfo{}
	for _, child := range n.Children() {
		switch child.Name() {
		case "author":
			di.Authors = append(di.Authors, parseAuthor(child))
		case "program-used":
			di.ProgramUsed = textOf(child)
		case "date":
			di.Date = parseDate(child)
		case "id":
			di.ID = textOf(child)
		case "version":
			di.Version = textOf(child)
		}
	}
	return di
}

func parseAuthor(n *xml.Node) Author {
	a := Author{Kind: AuthorAnonymous}
	for _, child := range n.Children() {
		switch child.Name() {
		case "first-name":
			a.FirstName = textOf(child)
			a.Kind = AuthorVerbose
		case "middle-name":
			a.MiddleName = textOf(child)
		case "last-name":
			a.LastName = textOf(child)
			a.Kind = AuthorVerbose
		case "nickname":
			a.Nickname = textOf(child)
		case "home-page":
			a.HomePages = append(a.HomePages, textOf(child))
		case "email":
			a.Emails = append(a.Emails, textOf(child))
		case "id":
			a.ID = textOf(child)
		}
	}
	return a
}

func parseDate(n *xml.Node) *Date {
	d := &Date{Display: textOf(n)}
	if v := strings.TrimSpace(n.Attr("value")); v != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				d.Value = &t
				break
			}
		}
	}
	return d
}

func parseSequence(n *xml.Node) Sequence {
	s := Sequence{Name: n.Attr("name")}
	if num, err := strconv.Atoi(strings.TrimSpace(n.Attr("number"))); err == nil {
		s.Number = num
	}
	return s
}

func parseBinary(n *xml.Node) (Binary, error) {
	b := Binary{
		ID:          n.Attr("id"),
		ContentType: n.Attr("content-type"),
	}
	data, err := base64.StdEncoding.DecodeString(normalizeBase64(n.Text()))
	if err != nil {
		return b, &errors.ParseError{
			Format:  "FB2",
			Path:    "binary[" + b.ID + "]",
			Message: "invalid base64 data",
			Err:     err,
		}
	}
	b.Data = data
	return b, nil
}

// normalizeBase64 strips the whitespace FB2 producers wrap binaries with.
func normalizeBase64(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

func textOf(n *xml.Node) string {
	return strings.TrimSpace(n.Text())
}

func langOf(n *xml.Node) string {
	if lang := n.NSAttr("xml", "lang"); lang != "" {
		return lang
	}
	return n.Attr("lang")
}

func (p *Parser) parseBody(n *xml.Node) Body {
	b := Body{
		Name: n.Attr("name"),
		Lang: langOf(n),
	}
	for _, child := range n.Children() {
		switch child.Name() {
		case "image":
			img := parseImage(child)
			b.Image = &img
		case "title":
			t := p.parseTitle(child)
			b.Title = &t
		case "epigraph":
			b.Epigraphs = append(b.Epigraphs, p.parseEpigraph(child))
		case "section":
			b.Sections = append(b.Sections, p.parseSection(child))
		default:
			p.skip("body", child)
		}
	}
	return b
}

func (p *Parser) parseSection(n *xml.Node) Section {
	s := Section{
		ID:   n.Attr("id"),
		Lang: langOf(n),
	}

	children := n.Children()
	if len(children) == 0 {
		return s
	}

	c := &SectionContent{}
	inBody := false
	for _, child := range children {
		switch name := child.Name(); name {
		case "title":
			t := p.parseTitle(child)
			c.Title = &t
		case "epigraph":
			c.Epigraphs = append(c.Epigraphs, p.parseEpigraph(child))
		case "image":
			if !inBody && c.Image == nil {
				img := parseImage(child)
				c.Image = &img
				continue
			}
			c.Content = append(c.Content, Element{Kind: ElementImage, Image: imagePtr(parseImage(child))})
		case "annotation":
			a := p.parseAnnotation(child)
			c.Annotation = &a
			inBody = true
		case "section":
			c.Sections = append(c.Sections, p.parseSection(child))
			inBody = true
		default:
			if el, ok := p.parseElement(child, sectionElements); ok {
				c.Content = append(c.Content, el)
				inBody = true
				continue
			}
			p.skip("section", child)
		}
	}
	s.Content = c
	return s
}

func imagePtr(img Image) *Image {
	return &img
}

// Element sets per container.
var (
	sectionElements    = elementSet(ElementParagraph, ElementPoem, ElementSubtitle, ElementCite, ElementEmptyLine, ElementTable, ElementImage)
	titleElements      = elementSet(ElementParagraph, ElementEmptyLine)
	epigraphElements   = elementSet(ElementParagraph, ElementPoem, ElementCite, ElementEmptyLine)
	citeElements       = elementSet(ElementParagraph, ElementPoem, ElementSubtitle, ElementTable, ElementEmptyLine)
	annotationElements = elementSet(ElementParagraph, ElementPoem, ElementCite, ElementSubtitle, ElementTable, ElementEmptyLine)
)

var elementTags = map[string]ElementKind{
	"p":          ElementParagraph,
	"poem":       ElementPoem,
	"subtitle":   ElementSubtitle,
	"cite":       ElementCite,
	"empty-line": ElementEmptyLine,
	"table":      ElementTable,
	"image":      ElementImage,
}

func elementSet(kinds ...ElementKind) map[ElementKind]bool {
	set := make(map[ElementKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

// parseElement parses n as a block element if its tag is in allowed.
func (p *Parser) parseElement(n *xml.Node, allowed map[ElementKind]bool) (Element, bool) {
	kind, ok := elementTags[n.Name()]
	if !ok || !allowed[kind] {
		return Element{}, false
	}

	el := Element{Kind: kind}
	switch kind {
	case ElementParagraph, ElementSubtitle:
		para := p.parseParagraph(n)
		el.Paragraph = &para
	case ElementPoem:
		poem := p.parsePoem(n)
		el.Poem = &poem
	case ElementCite:
		cite := p.parseCite(n)
		el.Cite = &cite
	case ElementTable:
		table := p.parseTable(n)
		el.Table = &table
	case ElementImage:
		img := parseImage(n)
		el.Image = &img
	}
	return el, true
}

func (p *Parser) parseElements(n *xml.Node, allowed map[ElementKind]bool, extra func(*xml.Node) bool) []Element {
	var out []Element
	for _, child := range n.Children() {
		if el, ok := p.parseElement(child, allowed); ok {
			out = append(out, el)
			continue
		}
		if extra != nil && extra(child) {
			continue
		}
		p.skip(n.Name(), child)
	}
	return out
}

func (p *Parser) parseTitle(n *xml.Node) Title {
	return Title{
		Lang:     langOf(n),
		Elements: p.parseElements(n, titleElements, nil),
	}
}

func (p *Parser) parseEpigraph(n *xml.Node) Epigraph {
	e := Epigraph{ID: n.Attr("id")}
	e.Elements = p.parseElements(n, epigraphElements, func(child *xml.Node) bool {
		if child.Name() != "text-author" {
			return false
		}
		e.TextAuthors = append(e.TextAuthors, p.parseParagraph(child))
		return true
	})
	return e
}

func (p *Parser) parseCite(n *xml.Node) Cite {
	c := Cite{ID: n.Attr("id"), Lang: langOf(n)}
	c.Elements = p.parseElements(n, citeElements, func(child *xml.Node) bool {
		if child.Name() != "text-author" {
			return false
		}
		c.TextAuthors = append(c.TextAuthors, p.parseParagraph(child))
		return true
	})
	return c
}

func (p *Parser) parseAnnotation(n *xml.Node) Annotation {
	return Annotation{
		ID:       n.Attr("id"),
		Lang:     langOf(n),
		Elements: p.parseElements(n, annotationElements, nil),
	}
}

func (p *Parser) parsePoem(n *xml.Node) Poem {
	poem := Poem{ID: n.Attr("id"), Lang: langOf(n)}
	for _, child := range n.Children() {
		switch child.Name() {
		case "title":
			t := p.parseTitle(child)
			poem.Title = &t
		case "epigraph":
			poem.Epigraphs = append(poem.Epigraphs, p.parseEpigraph(child))
		case "stanza":
			st := p.parseStanza(child)
			poem.Stanzas = append(poem.Stanzas, PoemStanza{Stanza: &st})
		case "subtitle":
			sub := p.parseParagraph(child)
			poem.Stanzas = append(poem.Stanzas, PoemStanza{Subtitle: &sub})
		case "text-author":
			poem.TextAuthors = append(poem.TextAuthors, p.parseParagraph(child))
		case "date":
			poem.Date = parseDate(child)
		default:
			p.skip("poem", child)
		}
	}
	return poem
}

func (p *Parser) parseStanza(n *xml.Node) Stanza {
	st := Stanza{Lang: langOf(n)}
	for _, child := range n.Children() {
		switch child.Name() {
		case "title":
			t := p.parseTitle(child)
			st.Title = &t
		case "subtitle":
			sub := p.parseParagraph(child)
			st.Subtitle = &sub
		case "v":
			st.Lines = append(st.Lines, p.parseParagraph(child))
		default:
			p.skip("stanza", child)
		}
	}
	return st
}

func (p *Parser) parseTable(n *xml.Node) Table {
	t := Table{ID: n.Attr("id"), Style: n.Attr("style")}
	for _, tr := range n.Children() {
		if tr.Name() != "tr" {
			p.skip("table", tr)
			continue
		}
		row := TableRow{Align: tr.Attr("align")}
		for _, cell := range tr.Children() {
			var kind CellKind
			switch cell.Name() {
			case "th":
				kind = CellHead
			case "td":
				kind = CellData
			default:
				p.skip("tr", cell)
				continue
			}
			row.Cells = append(row.Cells, TableCell{
				Kind:     kind,
				ID:       cell.Attr("id"),
				Style:    cell.Attr("style"),
				ColSpan:  atoi(cell.Attr("colspan")),
				RowSpan:  atoi(cell.Attr("rowspan")),
				Align:    cell.Attr("align"),
				VAlign:   cell.Attr("valign"),
				Elements: p.parseBlockStyle(cell),
			})
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseImage(n *xml.Node) Image {
	return Image{
		ID:    n.Attr("id"),
		Href:  n.Attr("href"),
		Alt:   n.Attr("alt"),
		Title: n.Attr("title"),
	}
}

func parseInlineImage(n *xml.Node) InlineImage {
	return InlineImage{
		Href: n.Attr("href"),
		Alt:  n.Attr("alt"),
	}
}

func (p *Parser) parseParagraph(n *xml.Node) Paragraph {
	return Paragraph{
		ID:       n.Attr("id"),
		Lang:     langOf(n),
		Style:    n.Attr("style"),
		Elements: p.parseBlockStyle(n),
	}
}

var styleTags = map[string]StyleKind{
	"strong":        StyleStrong,
	"emphasis":      StyleEmphasis,
	"style":         StyleNamed,
	"strikethrough": StyleStrikethrough,
	"sub":           StyleSub,
	"sup":           StyleSup,
	"code":          StyleCode,
	"a":             StyleLink,
	"image":         StyleImage,
}

// parseBlockStyle parses the mixed content of a block (p, v, subtitle,
// text-author, th, td). Whitespace at the block's edges is layout, not
// content: it is trimmed and text left empty is dropped.
func (p *Parser) parseBlockStyle(n *xml.Node) []StyleElement {
	return trimEnd(trimStart(p.parseStyle(n)))
}

// trimStart trims leading whitespace of the first text, descending into
// leading style wrappers.
func trimStart(els []StyleElement) []StyleElement {
	for len(els) > 0 {
		first := &els[0]
		switch first.Kind {
		case StyleText:
			first.Text = strings.TrimLeftFunc(first.Text, unicode.IsSpace)
			if first.Text == "" {
				els = els[1:]
				continue
			}
		case StyleLink, StyleImage:
		default:
			first.Elements = trimStart(first.Elements)
		}
		return els
	}
	return els
}

// trimEnd is trimStart for trailing whitespace.
func trimEnd(els []StyleElement) []StyleElement {
	for len(els) > 0 {
		last := &els[len(els)-1]
		switch last.Kind {
		case StyleText:
			last.Text = strings.TrimRightFunc(last.Text, unicode.IsSpace)
			if last.Text == "" {
				els = els[:len(els)-1]
				continue
			}
		case StyleLink, StyleImage:
		default:
			last.Elements = trimEnd(last.Elements)
		}
		return els
	}
	return els
}

// parseStyle parses the mixed content of n. Text is kept verbatim.
func (p *Parser) parseStyle(n *xml.Node) []StyleElement {
	var out []StyleElement
	for _, child := range n.Nodes() {
		if child.IsText() {
			if text := child.Data(); text != "" {
				out = append(out, StyleElement{Kind: StyleText, Text: text})
			}
			continue
		}

		kind, ok := styleTags[child.Name()]
		if !ok {
			p.skip(n.Name(), child)
			continue
		}
		el := StyleElement{Kind: kind}
		switch kind {
		case StyleLink:
			el.Link = &Link{
				Href:     child.Attr("href"),
				Type:     child.Attr("type"),
				Elements: p.parseLinkStyle(child),
			}
		case StyleImage:
			img := parseInlineImage(child)
			el.Image = &img
		default:
			if kind == StyleNamed {
				el.Name = child.Attr("name")
			}
			el.Elements = p.parseStyle(child)
		}
		out = append(out, el)
	}
	return out
}

// parseLinkStyle is parseStyle for link content: nested links are skipped.
func (p *Parser) parseLinkStyle(n *xml.Node) []StyleLinkElement {
	var out []StyleLinkElement
	for _, child := range n.Nodes() {
		if child.IsText() {
			if text := child.Data(); text != "" {
				out = append(out, StyleLinkElement{Kind: StyleText, Text: text})
			}
			continue
		}

		kind, ok := styleTags[child.Name()]
		if !ok || kind == StyleLink {
			p.skip(n.Name(), child)
			continue
		}
		el := StyleLinkElement{Kind: kind}
		if kind == StyleImage {
			img := parseInlineImage(child)
			el.Image = &img
		} else {
			el.Elements = p.parseLinkStyle(child)
		}
		out = append(out, el)
	}
	return out
}
