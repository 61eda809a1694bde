// Package validation checks user-supplied paths and FB2 input files before
// they reach the parser.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits on untrusted input.
const (
	// MaxFileSize is the maximum accepted input size (256 MB).
	MaxFileSize = 256 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileTooLarge     = errors.New("file too large")
)

// ValidatePath checks a path for length limits and invalid characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// ValidateFilename checks that a filename has no path separators, control
// characters or leading hyphen.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}

	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}

	// Can be confused with command flags
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}

	return nil
}

// OutputName derives the default output filename for an input file:
// "book.fb2.zip" becomes "book.json", or "book.json.xz" when compressed.
func OutputName(input string, compressed bool) (string, error) {
	name := filepath.Base(input)
	lower := strings.ToLower(name)
	for _, ext := range []string{".fb2.zip", ".fb2.xz", ".fb2", ".zip", ".xz", ".xml"} {
		if strings.HasSuffix(lower, ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	name = strings.TrimLeft(strings.TrimSpace(name), "-")
	if name == "" || name == "." {
		name = "book"
	}

	name += ".json"
	if compressed {
		name += ".xz"
	}
	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	return name, nil
}

// FileType is the container of an FB2 input.
type FileType string

const (
	// FileTypeFB2 is a plain FB2 XML document.
	FileTypeFB2 FileType = "fb2"
	// FileTypeZip is a zip archive holding an FB2 document (.fb2.zip).
	FileTypeZip FileType = "zip"
	// FileTypeXZ is an xz-compressed FB2 document (.fb2.xz).
	FileTypeXZ FileType = "xz"
	// FileTypeUnknown is anything else.
	FileTypeUnknown FileType = "unknown"
)

// magicBytes defines magic byte signatures for input detection.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeZip, []byte{0x50, 0x4b, 0x03, 0x04}},
}

// utf8BOM may precede the XML declaration.
var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// DetectInput reads the head of an input and reports its container.
// Content wins over the extension; the extension only decides between FB2
// and unknown for text content that does not start with an XML declaration
// or tag.
func DetectInput(reader io.Reader, filename string) (FileType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.fileType, nil
		}
	}

	head := bytes.TrimLeft(bytes.TrimPrefix(buf, utf8BOM), " \t\r\n")
	if bytes.HasPrefix(head, []byte("<")) {
		return FileTypeFB2, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if (ext == ".fb2" || ext == ".xml") && isLikelyText(buf) {
		return FileTypeFB2, nil
	}
	return FileTypeUnknown, nil
}

// isLikelyText reports whether buf looks like text. UTF-8 multibyte
// sequences count as neither printable nor control.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
	}

	// More than 95% printable
	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
