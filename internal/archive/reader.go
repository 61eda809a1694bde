// Package archive opens FB2 documents stored plain, as .fb2.zip or as
// .fb2.xz, and hands back the decompressed XML stream.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/protobook/core/errors"
	"github.com/FocuswithJustin/protobook/internal/validation"
)

// maxInputSize caps plain and decompressed input. A variable so tests can
// exercise the limit without building huge inputs.
var maxInputSize int64 = validation.MaxFileSize

// Reader is the decompressed FB2 stream of one input file.
type Reader struct {
	io.Reader

	// Type is the detected container.
	Type validation.FileType
	// Entry is the zip entry read, empty for other containers.
	Entry string

	file         *os.File
	decompressor io.Closer
	limiter      *sizeLimiter
}

// Open validates p, detects its container and returns a reader over the
// FB2 document inside. Reads fail with validation.ErrFileTooLarge once
// decompressed content exceeds validation.MaxFileSize, like plain input.
func Open(p string) (*Reader, error) {
	if err := validation.ValidatePath(p); err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, errors.NewIO("open", p, err)
	}

	r, err := newReader(f, p)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newReader(f *os.File, p string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewIO("stat", p, err)
	}
	if info.Size() > maxInputSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", p, validation.ErrFileTooLarge, info.Size())
	}

	kind, err := validation.DetectInput(f, p)
	if err != nil {
		return nil, errors.NewIO("read", p, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.NewIO("seek", p, err)
	}

	r := &Reader{Type: kind, file: f}
	switch kind {
	case validation.FileTypeFB2:
		r.Reader = f
	case validation.FileTypeXZ:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, &errors.ParseError{Format: "xz", Path: p, Message: "invalid xz stream", Err: err}
		}
		r.Reader = r.limit(xzr, p)
	case validation.FileTypeZip:
		entry, err := findEntry(f, info.Size(), p)
		if err != nil {
			return nil, err
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, &errors.ParseError{Format: "zip", Path: p + ":" + entry.Name, Message: "cannot open entry", Err: err}
		}
		r.Reader = r.limit(rc, p)
		r.Entry = entry.Name
		r.decompressor = rc
	default:
		return nil, errors.NewUnsupported("input "+p, "not an FB2 document")
	}
	return r, nil
}

// findEntry picks the first .fb2 entry of a zip archive, or its only entry.
func findEntry(r io.ReaderAt, size int64, p string) (*zip.File, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &errors.ParseError{Format: "zip", Path: p, Message: "invalid archive", Err: err}
	}

	for _, zf := range zr.File {
		if strings.EqualFold(path.Ext(zf.Name), ".fb2") {
			return zf, nil
		}
	}
	if len(zr.File) == 1 {
		return zr.File[0], nil
	}
	return nil, errors.NewNotFound("fb2 entry in", p)
}

// Err returns validation.ErrFileTooLarge, wrapped, once the decompressed
// stream has run past the size limit, and nil otherwise.
func (r *Reader) Err() error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.err
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ReadAll returns the whole decompressed document of p.
func ReadAll(p string) ([]byte, error) {
	r, err := Open(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (r *Reader) limit(src io.Reader, p string) io.Reader {
	r.limiter = &sizeLimiter{r: src, remaining: maxInputSize + 1, path: p}
	return r.limiter
}

// sizeLimiter passes through at most maxInputSize bytes and fails on the
// first byte past it.
type sizeLimiter struct {
	r         io.Reader
	remaining int64
	path      string
	err       error
}

func (l *sizeLimiter) Read(buf []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	if int64(len(buf)) > l.remaining {
		buf = buf[:l.remaining]
	}
	n, err := l.r.Read(buf)
	l.remaining -= int64(n)
	if l.remaining <= 0 {
		l.err = fmt.Errorf("%s: %w (decompressed content exceeds %d bytes)", l.path, validation.ErrFileTooLarge, maxInputSize)
		return n - 1, l.err
	}
	return n, err
}
