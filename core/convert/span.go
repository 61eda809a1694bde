package convert

import (
	"strings"

	"github.com/FocuswithJustin/protobook/core/book"
	"github.com/FocuswithJustin/protobook/core/fb2"
)

// styleFunc mutates one text leaf for a wrapper kind. Named styles carry no
// mutation.
func styleFunc(kind fb2.StyleKind) func(*book.Text) {
	switch kind {
	case fb2.StyleStrong:
		return func(t *book.Text) { t.SetFontWeight(book.BoldWeight) }
	case fb2.StyleEmphasis:
		return func(t *book.Text) { t.SetFontStyle(book.FontStyleItalic) }
	case fb2.StyleCode:
		return func(t *book.Text) { t.SetFontStyle(book.FontStyleCode) }
	case fb2.StyleSub:
		return func(t *book.Text) { t.SetBaselineShift(book.BaselineSubscript) }
	case fb2.StyleSup:
		return func(t *book.Text) { t.SetBaselineShift(book.BaselineSuperscript) }
	case fb2.StyleStrikethrough:
		return func(t *book.Text) { t.AddDecoration(book.DecorationLineThrough) }
	}
	return nil
}

// applyStyle runs fn over every text leaf of spans. Outer wrappers apply
// after inner ones, so single-valued fields end up with the outer value.
func applyStyle(spans []book.Span, fn func(*book.Text)) []book.Span {
	if fn == nil {
		return spans
	}
	for _, s := range spans {
		s.EachText(fn)
	}
	return spans
}

// convertSpans flattens inline markup into spans.
func (w *walker) convertSpans(els []fb2.StyleElement) []book.Span {
	var out []book.Span
	for i := range els {
		out = append(out, w.convertSpan(&els[i])...)
	}
	return out
}

func (w *walker) convertSpan(el *fb2.StyleElement) []book.Span {
	switch el.Kind {
	case fb2.StyleText:
		if t := convertText(el.Text); t != nil {
			return []book.Span{{Text: t}}
		}
		return nil
	case fb2.StyleImage:
		if el.Image == nil {
			return nil
		}
		if img := w.convertInlineImage(el.Image); img != nil {
			return []book.Span{{Image: img}}
		}
		return nil
	case fb2.StyleLink:
		if el.Link == nil {
			return nil
		}
		return w.convertLink(el.Link)
	}
	return applyStyle(w.convertSpans(el.Elements), styleFunc(el.Kind))
}

// convertLinkSpans flattens link content. It can only yield text and
// image spans.
func (w *walker) convertLinkSpans(els []fb2.StyleLinkElement) []book.Span {
	var out []book.Span
	for i := range els {
		el := &els[i]
		switch el.Kind {
		case fb2.StyleText:
			if t := convertText(el.Text); t != nil {
				out = append(out, book.Span{Text: t})
			}
		case fb2.StyleImage:
			if el.Image == nil {
				continue
			}
			if img := w.convertInlineImage(el.Image); img != nil {
				out = append(out, book.Span{Image: img})
			}
		case fb2.StyleLink:
			w.dropped("link", "nested link")
		default:
			out = append(out, applyStyle(w.convertLinkSpans(el.Elements), styleFunc(el.Kind))...)
		}
	}
	return out
}

// convertLink classifies a link. Without a usable href its content is
// spliced into the parent. A link to a binary becomes an image, a link to a
// note or comment anchor becomes a footnote reference, a "note" typed link
// to anything else becomes plain text. Images inside the link follow the
// produced span.
func (w *walker) convertLink(link *fb2.Link) []book.Span {
	children := w.convertLinkSpans(link.Elements)

	href, ok := parseHref(link.Href)
	if !ok {
		if link.Href != "" {
			w.dropped("link", "unparsable href", "href", link.Href)
		}
		return children
	}

	var images []book.Span
	var texts []book.Text
	for _, s := range children {
		switch s.Kind() {
		case book.SpanImage:
			images = append(images, s)
		case book.SpanText:
			texts = append(texts, *s.Text)
		default:
			w.dropped("span", "not allowed inside a link", "kind", string(s.Kind()))
		}
	}

	target := href.String()
	var out []book.Span
	if id, ok := w.ctx.Binary(target); ok {
		var alt strings.Builder
		for _, t := range texts {
			alt.WriteString(t.Value)
		}
		out = append(out, book.Span{Image: &book.InlineImage{ID: id.String(), Alt: alt.String()}})
	} else if len(texts) > 0 {
		switch {
		case w.ctx.IsNote(target):
			out = append(out, book.Span{Footnote: &book.FootnoteLink{ID: target, Type: book.FootnoteNote, Content: texts}})
		case w.ctx.IsComment(target):
			out = append(out, book.Span{Footnote: &book.FootnoteLink{ID: target, Type: book.FootnoteComment, Content: texts}})
		case link.Type == "note":
			for i := range texts {
				out = append(out, book.Span{Text: &texts[i]})
			}
		default:
			out = append(out, book.Span{Link: &book.Link{Href: href, Content: texts}})
		}
	}
	return append(out, images...)
}
