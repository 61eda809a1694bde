package book

import (
	"github.com/FocuswithJustin/protobook/core/errors"
)

// BoldWeight is the font weight applied by strong emphasis.
const BoldWeight uint32 = 600

// FontStyle is the single-valued font style of a Text span.
type FontStyle string

// Font style constants.
const (
	FontStyleNormal FontStyle = "NORMAL"
	FontStyleItalic FontStyle = "ITALIC"
	FontStyleCode   FontStyle = "CODE"
)

var validFontStyles = map[FontStyle]bool{
	FontStyleNormal: true,
	FontStyleItalic: true,
	FontStyleCode:   true,
}

// IsValid returns true if the font style is valid.
func (f FontStyle) IsValid() bool {
	return validFontStyles[f]
}

// BaselineShift is the vertical position of a Text span.
type BaselineShift string

// Baseline shift constants.
const (
	BaselineNone        BaselineShift = "NONE"
	BaselineSubscript   BaselineShift = "SUBSCRIPT"
	BaselineSuperscript BaselineShift = "SUPERSCRIPT"
)

var validBaselineShifts = map[BaselineShift]bool{
	BaselineNone:        true,
	BaselineSubscript:   true,
	BaselineSuperscript: true,
}

// IsValid returns true if the baseline shift is valid.
func (b BaselineShift) IsValid() bool {
	return validBaselineShifts[b]
}

// TextDecoration is a line drawn over, under or through text.
type TextDecoration string

// Text decoration constants.
const (
	DecorationLineThrough TextDecoration = "LINE_THROUGH"
)

var validDecorations = map[TextDecoration]bool{
	DecorationLineThrough: true,
}

// IsValid returns true if the decoration is valid.
func (d TextDecoration) IsValid() bool {
	return validDecorations[d]
}

// FootnoteType distinguishes notes from comments.
type FootnoteType string

// Footnote type constants.
const (
	FootnoteNote    FootnoteType = "NOTE"
	FootnoteComment FootnoteType = "COMMENT"
)

var validFootnoteTypes = map[FootnoteType]bool{
	FootnoteNote:    true,
	FootnoteComment: true,
}

// IsValid returns true if the footnote type is valid.
func (f FootnoteType) IsValid() bool {
	return validFootnoteTypes[f]
}

// Text is a styled run of characters. Unset style fields inherit from the
// renderer's defaults.
type Text struct {
	Value         string           `json:"value"`
	FontWeight    *uint32          `json:"font_weight,omitempty"`
	FontStyle     *FontStyle       `json:"font_style,omitempty"`
	BaselineShift *BaselineShift   `json:"baseline_shift,omitempty"`
	Decorations   []TextDecoration `json:"decorations,omitempty"`
}

// SetFontWeight overwrites the font weight.
func (t *Text) SetFontWeight(w uint32) {
	t.FontWeight = &w
}

// SetFontStyle overwrites the font style.
func (t *Text) SetFontStyle(s FontStyle) {
	t.FontStyle = &s
}

// SetBaselineShift overwrites the baseline shift.
func (t *Text) SetBaselineShift(b BaselineShift) {
	t.BaselineShift = &b
}

// AddDecoration appends a decoration. Decorations accumulate.
func (t *Text) AddDecoration(d TextDecoration) {
	t.Decorations = append(t.Decorations, d)
}

// Href is a resolved link target. Exactly one of Local and Remote is set.
type Href struct {
	// Local is a same-document anchor id.
	Local string `json:"local,omitempty"`

	// Remote is an absolute URL.
	Remote string `json:"remote,omitempty"`
}

// String returns the anchor id or the URL.
func (h Href) String() string {
	if h.Local != "" {
		return h.Local
	}
	return h.Remote
}

// Link is a hyperlink. Its content never holds images, links or footnotes.
type Link struct {
	Href    Href   `json:"href"`
	Content []Text `json:"content"`
}

// FootnoteLink is a reference to a note or comment.
type FootnoteLink struct {
	ID      string       `json:"id"`
	Type    FootnoteType `json:"type"`
	Content []Text       `json:"content"`
}

// SpanKind identifies the variant held by a Span.
type SpanKind string

// Span kind constants.
const (
	SpanText     SpanKind = "text"
	SpanImage    SpanKind = "image"
	SpanLink     SpanKind = "link"
	SpanFootnote SpanKind = "footnote"
)

// Span is the inline tagged union.
type Span struct {
	Text     *Text         `json:"text,omitempty"`
	Image    *InlineImage  `json:"image,omitempty"`
	Link     *Link         `json:"link,omitempty"`
	Footnote *FootnoteLink `json:"footnote,omitempty"`
}

// Kind returns the variant set on the span. A span with no variant breaks the
// model contract and Kind panics with *errors.ContractError.
func (s Span) Kind() SpanKind {
	switch {
	case s.Text != nil:
		return SpanText
	case s.Image != nil:
		return SpanImage
	case s.Link != nil:
		return SpanLink
	case s.Footnote != nil:
		return SpanFootnote
	}
	panic(errors.NewContract("span", "no variant set"))
}

// EachText calls fn for every Text carried by the span: the span itself for
// Text, the link or footnote content otherwise. Images carry no text.
func (s Span) EachText(fn func(*Text)) {
	switch s.Kind() {
	case SpanText:
		fn(s.Text)
	case SpanLink:
		for i := range s.Link.Content {
			fn(&s.Link.Content[i])
		}
	case SpanFootnote:
		for i := range s.Footnote.Content {
			fn(&s.Footnote.Content[i])
		}
	}
}

func (s Span) variants() int {
	return count(s.Text != nil, s.Image != nil, s.Link != nil, s.Footnote != nil)
}
