package book

import (
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/blake3"
)

// jsonMarshal is a variable to allow testing of marshal errors.
var jsonMarshal = json.Marshal

// HashBytes computes the BLAKE3-256 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Hash computes the BLAKE3 hash of a Book by serializing to JSON.
// Footnote maps are marshalled with sorted keys, so equal books hash equally.
func Hash(b *Book) (string, error) {
	data, err := jsonMarshal(b)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}
