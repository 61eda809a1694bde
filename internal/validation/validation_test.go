package validation

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError error
	}{
		{"relative", "books/makarenko.fb2", nil},
		{"absolute", "/srv/books/Педагогическая поэма.fb2", nil},
		{"empty", "", ErrEmptyPath},
		{"too long", strings.Repeat("a", MaxPathLength+1), ErrPathTooLong},
		{"null byte", "book\x00.fb2", ErrInvalidCharacter},
		{"newline", "book\n.fb2", ErrInvalidCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if !errors.Is(err, tt.wantError) {
				t.Errorf("ValidatePath(%q) error = %v, want %v", tt.path, err, tt.wantError)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		wantError error
	}{
		{"valid", "book.json", nil},
		{"cyrillic", "поэма.json.xz", nil},
		{"empty", "", ErrInvalidFilename},
		{"dot", ".", ErrInvalidFilename},
		{"dotdot", "..", ErrInvalidFilename},
		{"separator", "a/b.json", ErrInvalidFilename},
		{"backslash", "a\\b.json", ErrInvalidFilename},
		{"control", "a\tb.json", ErrInvalidFilename},
		{"hyphen", "-rf.json", ErrInvalidFilename},
		{"too long", strings.Repeat("a", MaxFilenameLength+1), ErrFilenameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if !errors.Is(err, tt.wantError) {
				t.Errorf("ValidateFilename(%q) error = %v, want %v", tt.filename, err, tt.wantError)
			}
		})
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		input      string
		compressed bool
		want       string
	}{
		{"makarenko.fb2", false, "makarenko.json"},
		{"/srv/books/makarenko.fb2.zip", false, "makarenko.json"},
		{"makarenko.FB2.XZ", true, "makarenko.json.xz"},
		{"notes.xml", false, "notes.json"},
		{"archive", false, "archive.json"},
		{".fb2", false, "book.json"},
		{"--flag.fb2", false, "flag.json"},
	}

	for _, tt := range tests {
		got, err := OutputName(tt.input, tt.compressed)
		if err != nil {
			t.Errorf("OutputName(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("OutputName(%q, %v) = %q, want %q", tt.input, tt.compressed, got, tt.want)
		}
	}
}

func TestDetectInput(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		filename string
		want     FileType
	}{
		{"xml declaration", []byte(`<?xml version="1.0" encoding="utf-8"?><FictionBook/>`), "book.fb2", FileTypeFB2},
		{"bom and whitespace", append([]byte{0xef, 0xbb, 0xbf, '\n', ' '}, []byte("<FictionBook/>")...), "book.txt", FileTypeFB2},
		{"zip", []byte{0x50, 0x4b, 0x03, 0x04, 0x14, 0x00}, "book.fb2.zip", FileTypeZip},
		{"zip with wrong extension", []byte{0x50, 0x4b, 0x03, 0x04}, "book.fb2", FileTypeZip},
		{"xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00}, "book.fb2.xz", FileTypeXZ},
		{"text with fb2 extension", []byte("not really xml"), "book.fb2", FileTypeFB2},
		{"text with other extension", []byte("plain text"), "book.txt", FileTypeUnknown},
		{"binary", []byte{0x00, 0x01, 0x02}, "book.fb2", FileTypeUnknown},
		{"empty", nil, "book.fb2", FileTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectInput(bytes.NewReader(tt.content), tt.filename)
			if err != nil {
				t.Fatalf("DetectInput() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectInput() = %q, want %q", got, tt.want)
			}
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestDetectInputReadError(t *testing.T) {
	if _, err := DetectInput(failingReader{}, "book.fb2"); err == nil {
		t.Error("DetectInput() error = nil, want read error")
	}
}

func TestIsLikelyText(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"ascii", []byte("hello\n"), true},
		{"cyrillic only", []byte("Педагогическая"), false},
		{"mixed", []byte("a Педагогическая поэма"), true},
		{"control", []byte{0x01, 0x02, 'a'}, false},
		{"null", []byte{'a', 0x00}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		if got := isLikelyText(tt.buf); got != tt.want {
			t.Errorf("isLikelyText(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
