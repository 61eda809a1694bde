package convert

import (
	"github.com/google/uuid"
)

// Context is the read-only lookup state shared by every converter during one
// conversion: binary ids resolved to generated identifiers, and the anchor ids
// of the notes and comments that survived conversion.
//
// A Context is never mutated after NewContext returns and may be shared by
// concurrent goroutines.
type Context struct {
	binaries map[string]uuid.UUID
	notes    map[string]struct{}
	comments map[string]struct{}
}

// NewContext builds a Context. The binary map is used as is and must not be
// modified afterwards.
func NewContext(binaries map[string]uuid.UUID, notes, comments []string) *Context {
	if binaries == nil {
		binaries = map[string]uuid.UUID{}
	}
	return &Context{
		binaries: binaries,
		notes:    toSet(notes),
		comments: toSet(comments),
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Binary returns the identifier generated for a source binary id.
func (c *Context) Binary(id string) (uuid.UUID, bool) {
	u, ok := c.binaries[id]
	return u, ok
}

// IsNote reports whether id anchors a converted note.
func (c *Context) IsNote(id string) bool {
	_, ok := c.notes[id]
	return ok
}

// IsComment reports whether id anchors a converted comment.
func (c *Context) IsComment(id string) bool {
	_, ok := c.comments[id]
	return ok
}
