package main

import (
	"github.com/FocuswithJustin/protobook/core/fb2"
	"github.com/FocuswithJustin/protobook/internal/archive"
	"github.com/FocuswithJustin/protobook/internal/logging"
)

// readSource parses an FB2 document from a plain, .fb2.zip or .fb2.xz file.
func readSource(p string) (*fb2.FictionBook, error) {
	r, err := archive.Open(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if r.Entry != "" {
		logging.Debug("reading zip entry", "path", p, "entry", r.Entry)
	}
	parser := &fb2.Parser{Logger: logging.GetLogger()}
	fb, err := parser.ParseReader(r)
	// An oversized stream surfaces as malformed XML; report the size instead.
	if serr := r.Err(); serr != nil {
		return nil, serr
	}
	return fb, err
}
