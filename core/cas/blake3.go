package cas

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// BlobRef describes a stored blob.
type BlobRef struct {
	ID     uuid.UUID `json:"id"`
	SHA256 string    `json:"sha256"`
	BLAKE3 string    `json:"blake3"`
	Size   int64     `json:"size"`
}

// blake3Pointer is the structure stored in BLAKE3 pointer files.
type blake3Pointer struct {
	ID     uuid.UUID `json:"id"`
	SHA256 string    `json:"sha256"`
}

// pointerPath returns <root>/blake3/<first2>/<blake3>.json
func (s *Store) pointerPath(blake3Hash string) string {
	return filepath.Join(s.root, "blake3", blake3Hash[:2], blake3Hash+".json")
}

// writePointer maps the blob's BLAKE3 hash to its identifier. The latest
// Put of identical content wins.
func (s *Store) writePointer(ref *BlobRef) error {
	data, err := json.Marshal(blake3Pointer{ID: ref.ID, SHA256: ref.SHA256})
	if err != nil {
		return fmt.Errorf("failed to marshal pointer: %w", err)
	}
	return writeAtomic(s.pointerPath(ref.BLAKE3), ".pointer-*", data)
}

// LookupBlake3 returns the identifier of the blob with the given BLAKE3 hash.
// Returns ErrBlobNotFound if no pointer file exists for the hash.
func (s *Store) LookupBlake3(blake3Hash string) (uuid.UUID, error) {
	if !isValidHash(blake3Hash) {
		return uuid.Nil, ErrInvalidHash
	}

	data, err := os.ReadFile(s.pointerPath(blake3Hash))
	if err != nil {
		if os.IsNotExist(err) {
			return uuid.Nil, ErrBlobNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to read pointer: %w", err)
	}

	var pointer blake3Pointer
	if err := json.Unmarshal(data, &pointer); err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse pointer: %w", err)
	}
	return pointer.ID, nil
}

// GetByBlake3 retrieves a blob by its BLAKE3 hash.
func (s *Store) GetByBlake3(blake3Hash string) ([]byte, error) {
	id, err := s.LookupBlake3(blake3Hash)
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Blake3Hash computes the BLAKE3 hash of the given data without storing it.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
