// Package book provides the normalized document model produced from FictionBook
// (FB2) sources.
//
// A Book is a tree: every composite node owns its children by value and
// nothing is shared. Cross-references that existed in the source (footnote
// links, embedded images, internal hyperlinks) are resolved into plain
// identifier strings, so a Book has no dependency on the source tree once it
// has been built.
//
// # Core Types
//
//   - Book: root of the model (metadata, chapters, notes and comments)
//   - Chapter: a node of the chapter tree with its own content and sub-chapters
//   - Content: block-level tagged union (paragraph, poem, cite, table, ...)
//   - Span: inline tagged union (text, image, link, footnote link)
//   - Footnotes: anchor-addressed auxiliary content (notes or comments)
//
// # Tagged Unions
//
// Unions are structs with one pointer field per variant, exactly one of which
// is set. Kind reports which one. An empty Span is a broken invariant and
// Span.Kind panics on it; ValidateBook reports every other union with zero or
// several variants set.
//
// # Encoding
//
// The model is JSON-tagged. Encode and Decode add optional xz compression and
// Hash derives a BLAKE3 content hash from the canonical JSON form.
//
// # Example
//
//	b := &book.Book{
//	    ID:         id.String(),
//	    Language:   "ru",
//	    ShortTitle: "Педагогическая поэма",
//	}
//	b.Chapters = append(b.Chapters, book.Chapter{
//	    Content: []book.Content{{Paragraph: &book.Paragraph{
//	        Content: []book.Span{{Text: &book.Text{Value: "Часть первая"}}},
//	    }}},
//	})
package book
