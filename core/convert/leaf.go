package convert

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/protobook/core/book"
	"github.com/FocuswithJustin/protobook/core/fb2"
)

const isoDateLayout = "2006-01-02"

// convertAuthor composes the display name of a source author. Authors with
// no name and no nickname are dropped.
func (w *walker) convertAuthor(a fb2.Author) *book.Author {
	var given, middle, family string
	if a.Kind == fb2.AuthorVerbose {
		given, middle, family = a.FirstName, a.MiddleName, a.LastName
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{given, middle, family} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	full := strings.Join(parts, " ")
	if full == "" {
		full = a.Nickname
	}
	if full == "" {
		w.dropped("author", "no name")
		return nil
	}

	return &book.Author{
		ID:         uuid.Nil.String(),
		FullName:   full,
		GivenName:  given,
		FamilyName: family,
		MiddleName: middle,
	}
}

func convertDate(d *fb2.Date) *book.Date {
	if d == nil {
		return nil
	}
	out := &book.Date{DisplayDate: d.Display}
	if d.Value != nil {
		out.ISODate = d.Value.Format(isoDateLayout)
	}
	return out
}

// resolveImage looks up an "#id" image href in the binary map.
func (w *walker) resolveImage(href string) (uuid.UUID, bool) {
	id, ok := strings.CutPrefix(href, "#")
	if !ok || id == "" {
		w.dropped("image", "href is not a local anchor", "href", href)
		return uuid.Nil, false
	}
	u, ok := w.ctx.Binary(id)
	if !ok {
		w.dropped("image", "unknown binary", "href", href)
	}
	return u, ok
}

func (w *walker) convertImage(img *fb2.Image) *book.Image {
	if img == nil {
		return nil
	}
	u, ok := w.resolveImage(img.Href)
	if !ok {
		return nil
	}
	return &book.Image{
		ID:     u.String(),
		Anchor: img.ID,
		Alt:    img.Alt,
		Title:  img.Title,
	}
}

func (w *walker) convertInlineImage(img *fb2.InlineImage) *book.InlineImage {
	u, ok := w.resolveImage(img.Href)
	if !ok {
		return nil
	}
	return &book.InlineImage{
		ID:  u.String(),
		Alt: img.Alt,
	}
}

func convertText(s string) *book.Text {
	if s == "" {
		return nil
	}
	return &book.Text{Value: s}
}

// parseHref resolves a link target: "#id" is a local anchor, anything else
// must be an absolute URL.
func parseHref(s string) (book.Href, bool) {
	if s == "" {
		return book.Href{}, false
	}
	if id, ok := strings.CutPrefix(s, "#"); ok {
		if id == "" {
			return book.Href{}, false
		}
		return book.Href{Local: id}, true
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return book.Href{}, false
	}
	return book.Href{Remote: s}, true
}
