// Package catalog records converted books in a SQLite database.
//
// Each entry keeps the searchable metadata of a Book (title, language,
// dates, authors) next to its content hash and the xz-compressed JSON
// document, so a catalog can hand back the exact Book it was given.
package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/FocuswithJustin/protobook/core/book"
	"github.com/FocuswithJustin/protobook/core/cache"
	"github.com/FocuswithJustin/protobook/core/errors"
	"github.com/FocuswithJustin/protobook/core/sqlite"
	"github.com/FocuswithJustin/protobook/internal/logging"
)

// now is a variable to allow deterministic timestamps in tests.
var now = time.Now

const schema = `
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		language TEXT NOT NULL,
		iso_date TEXT NOT NULL,
		display_date TEXT NOT NULL,
		hash TEXT NOT NULL,
		source TEXT NOT NULL,
		added_at TEXT NOT NULL,
		document BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS authors (
		book_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		full_name TEXT NOT NULL,
		PRIMARY KEY (book_id, position),
		FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS binaries (
		book_id TEXT NOT NULL,
		name TEXT NOT NULL,
		blob_id TEXT NOT NULL,
		content_type TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		blake3 TEXT NOT NULL,
		size INTEGER NOT NULL,
		PRIMARY KEY (book_id, name),
		FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
`

// Entry is the catalog record of one book.
type Entry struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Language    string    `json:"language,omitempty"`
	ISODate     string    `json:"iso_date,omitempty"`
	DisplayDate string    `json:"display_date,omitempty"`
	Authors     []string  `json:"authors,omitempty"`
	Hash        string    `json:"hash"`
	Source      string    `json:"source"`
	AddedAt     time.Time `json:"added_at"`
}

// Binary records a decoded binary of a book as stored in the blob store.
// Name is the binary id used by the source document.
type Binary struct {
	Name        string `json:"name"`
	BlobID      string `json:"blob_id"`
	ContentType string `json:"content_type,omitempty"`
	SHA256      string `json:"sha256"`
	BLAKE3      string `json:"blake3"`
	Size        int64  `json:"size"`
}

// Catalog is a book catalog backed by SQLite.
type Catalog struct {
	db    *sql.DB
	path  string
	books *cache.BookCache
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sqlite.OpenFile(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to create catalog schema in %s", path)
	}
	return &Catalog{db: db, path: path, books: cache.NewDefaultBookCache()}, nil
}

// OpenReadOnly opens an existing catalog without creating or migrating it.
// A missing file is reported as a NotFoundError.
func OpenReadOnly(path string) (*Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "catalog", ID: path, Err: errors.ErrNotFound}
		}
		return nil, errors.NewIO("stat", path, err)
	}
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.NewIO("open", path, err)
	}
	return &Catalog{db: db, path: path, books: cache.NewDefaultBookCache()}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put inserts b or replaces the entry with the same id. source records
// where the book was converted from.
func (c *Catalog) Put(ctx context.Context, b *book.Book, source string) (*Entry, error) {
	hash, err := book.Hash(b)
	if err != nil {
		return nil, err
	}
	var doc bytes.Buffer
	if err := book.Encode(&doc, b, book.CompressionXZ); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:      b.ID,
		Title:   b.ShortTitle,
		Hash:    hash,
		Source:  source,
		AddedAt: now().UTC().Truncate(time.Second),
	}
	entry.Language = b.Language
	if b.Date != nil {
		entry.ISODate = b.Date.ISODate
		entry.DisplayDate = b.Date.DisplayDate
	}
	for _, a := range b.Authors {
		entry.Authors = append(entry.Authors, a.FullName)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO books (id, title, language, iso_date, display_date, hash, source, added_at, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			language = excluded.language,
			iso_date = excluded.iso_date,
			display_date = excluded.display_date,
			hash = excluded.hash,
			source = excluded.source,
			added_at = excluded.added_at,
			document = excluded.document`,
		entry.ID, entry.Title, entry.Language, entry.ISODate, entry.DisplayDate,
		entry.Hash, entry.Source, entry.AddedAt.Format(time.RFC3339), doc.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to store book %s", entry.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM authors WHERE book_id = ?`, entry.ID); err != nil {
		return nil, errors.Wrapf(err, "failed to clear authors of %s", entry.ID)
	}
	for i, name := range entry.Authors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO authors (book_id, position, full_name) VALUES (?, ?, ?)`,
			entry.ID, i, name); err != nil {
			return nil, errors.Wrapf(err, "failed to store author of %s", entry.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit")
	}
	logging.StorageEvent("catalog put", entry.ID, "hash", entry.Hash)
	return entry, nil
}

// Get returns the entry and the stored Book for id. Decoded books are cached
// by content hash; the returned Book must not be modified.
func (c *Catalog) Get(ctx context.Context, id string) (*Entry, *book.Book, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, title, language, iso_date, display_date, hash, source, added_at, document
		FROM books WHERE id = ?`, id)

	var entry Entry
	var addedAt string
	var doc []byte
	err := row.Scan(&entry.ID, &entry.Title, &entry.Language, &entry.ISODate,
		&entry.DisplayDate, &entry.Hash, &entry.Source, &addedAt, &doc)
	if err == sql.ErrNoRows {
		return nil, nil, errors.NewNotFound("book", id)
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read book %s", id)
	}
	if entry.AddedAt, err = time.Parse(time.RFC3339, addedAt); err != nil {
		return nil, nil, errors.Wrapf(err, "book %s has a malformed timestamp", id)
	}

	authors, err := c.authors(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	entry.Authors = authors

	if b, ok := c.books.Get(entry.Hash); ok {
		return &entry, b, nil
	}
	b, err := book.Decode(bytes.NewReader(doc), "")
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to decode book %s", id)
	}
	c.books.Put(entry.Hash, b)
	return &entry, b, nil
}

// CacheStats reports hits and misses of the decoded book cache.
func (c *Catalog) CacheStats() cache.Stats {
	return c.books.Stats()
}

func (c *Catalog) authors(ctx context.Context, id string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT full_name FROM authors WHERE book_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read authors of %s", id)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// List returns every entry ordered by title, then id. Entries carry their
// authors but not the document.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, title, language, iso_date, display_date, hash, source, added_at
		FROM books ORDER BY title, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list books")
	}

	var entries []Entry
	for rows.Next() {
		var e Entry
		var addedAt string
		if err := rows.Scan(&e.ID, &e.Title, &e.Language, &e.ISODate,
			&e.DisplayDate, &e.Hash, &e.Source, &addedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if e.AddedAt, err = time.Parse(time.RFC3339, addedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("book %s has a malformed timestamp: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// The pool holds one connection, so the cursor must be released before
	// the author queries run.
	rows.Close()

	for i := range entries {
		if entries[i].Authors, err = c.authors(ctx, entries[i].ID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// SetBinaries replaces the recorded binaries of the book id.
func (c *Catalog) SetBinaries(ctx context.Context, id string, bins []Binary) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return errors.Wrapf(err, "failed to read book %s", id)
	}
	if exists == 0 {
		return errors.NewNotFound("book", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM binaries WHERE book_id = ?`, id); err != nil {
		return errors.Wrapf(err, "failed to clear binaries of %s", id)
	}
	for _, b := range bins {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO binaries (book_id, name, blob_id, content_type, sha256, blake3, size)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, b.Name, b.BlobID, b.ContentType, b.SHA256, b.BLAKE3, b.Size); err != nil {
			return errors.Wrapf(err, "failed to store binary %s of %s", b.Name, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit")
	}
	logging.StorageEvent("catalog binaries", id, "count", len(bins))
	return nil
}

// Binaries returns the recorded binaries of the book id ordered by name.
func (c *Catalog) Binaries(ctx context.Context, id string) ([]Binary, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, blob_id, content_type, sha256, blake3, size
		FROM binaries WHERE book_id = ? ORDER BY name`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read binaries of %s", id)
	}
	defer rows.Close()

	var out []Binary
	for rows.Next() {
		var b Binary
		if err := rows.Scan(&b.Name, &b.BlobID, &b.ContentType, &b.SHA256, &b.BLAKE3, &b.Size); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes the entry for id with its authors and binaries.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete book %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFound("book", id)
	}
	logging.StorageEvent("catalog delete", id)
	return nil
}
