package book

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/protobook/core/errors"
)

// Compression selects the container of an encoded Book.
type Compression string

const (
	// CompressionNone writes plain JSON.
	CompressionNone Compression = "none"
	// CompressionXZ wraps the JSON in an xz stream.
	CompressionXZ Compression = "xz"
)

// xzMagic is the xz stream header (fd 37 7a 58 5a 00).
var xzMagic = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}

// Injectable functions for testing
var (
	xzNewWriter = func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) }
	xzNewReader = func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) }
)

// Encode writes b as indented JSON, optionally xz-compressed.
func Encode(w io.Writer, b *Book, c Compression) error {
	switch c {
	case CompressionNone, "":
		return encodeJSON(w, b)
	case CompressionXZ:
		zw, err := xzNewWriter(w)
		if err != nil {
			return fmt.Errorf("failed to create xz writer: %w", err)
		}
		if err := encodeJSON(zw, b); err != nil {
			zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to close xz writer: %w", err)
		}
		return nil
	default:
		return errors.NewUnsupported("compression", string(c))
	}
}

func encodeJSON(w io.Writer, b *Book) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to encode book: %w", err)
	}
	return nil
}

// Decode reads a Book written by Encode. An empty Compression detects xz by
// its magic bytes.
func Decode(r io.Reader, c Compression) (*Book, error) {
	if c == "" {
		br := bufio.NewReader(r)
		magic, _ := br.Peek(len(xzMagic))
		if bytes.Equal(magic, xzMagic) {
			c = CompressionXZ
		} else {
			c = CompressionNone
		}
		r = br
	}

	switch c {
	case CompressionNone:
	case CompressionXZ:
		zr, err := xzNewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = zr
	default:
		return nil, errors.NewUnsupported("compression", string(c))
	}

	var b Book
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, &errors.ParseError{Format: "JSON", Message: "invalid book", Err: err}
	}
	return &b, nil
}
