// Package cas stores the decoded binaries of converted books.
//
// A binary is stored under the identifier generated for it during
// conversion, which is the id the Book refers to in its image spans. The
// SHA-256 digest of every blob is recorded alongside so content can be
// verified, and a BLAKE3 pointer file maps content back to its identifier.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// tempFileWrite is a function variable for writing to temp files (for testing).
var tempFileWrite = func(f *os.File, data []byte) (int, error) {
	return f.Write(data)
}

// tempFileClose is a function variable for closing temp files (for testing).
var tempFileClose = func(f io.Closer) error {
	return f.Close()
}

// ErrBlobNotFound is returned when no blob is stored for an identifier or hash.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidHash is returned when a hash string is not a 64 character hex string.
var ErrInvalidHash = errors.New("invalid hash format")

// hashPattern matches a lowercase 256-bit hex digest.
var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Store keeps binaries on disk under <root>/binaries/<id[:2]>/<id>.
type Store struct {
	root string
}

// NewStore creates a store at the given root directory, creating the
// directory layout if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "binaries"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create binary directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Put writes data under id, replacing any previous blob with that id, and
// records its BLAKE3 pointer.
func (s *Store) Put(id uuid.UUID, data []byte) (*BlobRef, error) {
	ref := &BlobRef{
		ID:     id,
		SHA256: Hash(data),
		BLAKE3: Blake3Hash(data),
		Size:   int64(len(data)),
	}

	if err := writeAtomic(s.pathForID(id), ".blob-*", data); err != nil {
		return nil, fmt.Errorf("failed to store blob %s: %w", id, err)
	}
	if err := s.writePointer(ref); err != nil {
		return nil, fmt.Errorf("failed to create BLAKE3 pointer: %w", err)
	}
	return ref, nil
}

// Get returns the blob stored under id.
func (s *Store) Get(id uuid.UUID) ([]byte, error) {
	data, err := os.ReadFile(s.pathForID(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Has reports whether a blob is stored under id.
func (s *Store) Has(id uuid.UUID) bool {
	_, err := os.Stat(s.pathForID(id))
	return err == nil
}

// Verify re-reads the blob under id and checks it against an expected
// SHA-256 digest.
func (s *Store) Verify(id uuid.UUID, sha256Hash string) error {
	if !isValidHash(sha256Hash) {
		return ErrInvalidHash
	}
	data, err := s.Get(id)
	if err != nil {
		return err
	}
	if got := Hash(data); got != sha256Hash {
		return fmt.Errorf("blob %s: sha256 mismatch: got %s, want %s", id, got, sha256Hash)
	}
	return nil
}

// pathForID returns the file path for a blob: <root>/binaries/<first2>/<id>
func (s *Store) pathForID(id uuid.UUID) string {
	name := id.String()
	return filepath.Join(s.root, "binaries", name[:2], name)
}

// writeAtomic writes data to a temp file next to path and renames it into
// place.
func writeAtomic(path, pattern string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create prefix directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFileWrite(tempFile, data); err != nil {
		tempFileClose(tempFile)
		os.Remove(tempPath)
		return fmt.Errorf("failed to write: %w", err)
	}

	if err := tempFileClose(tempFile); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Rename to final path (atomic on POSIX)
	if err := osRename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

func isValidHash(hash string) bool {
	return hashPattern.MatchString(hash)
}

// Hash computes the SHA-256 hash of the given data without storing it.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
