// Package config loads the protobook YAML configuration.
package config

import (
	stderrors "errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/protobook/core/book"
	"github.com/FocuswithJustin/protobook/core/convert"
	"github.com/FocuswithJustin/protobook/core/errors"
	"github.com/FocuswithJustin/protobook/internal/logging"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "protobook.yaml"

// Config is the protobook configuration file.
type Config struct {
	Convert ConvertConfig `yaml:"convert"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
	Catalog CatalogConfig `yaml:"catalog"`
	Blobs   BlobsConfig   `yaml:"blobs"`
}

// ConvertConfig holds the converter options.
type ConvertConfig struct {
	NotesBody    string `yaml:"notes_body"`
	CommentsBody string `yaml:"comments_body"`
	Workers      int    `yaml:"workers"`
}

// OutputConfig controls how Book documents are written.
type OutputConfig struct {
	Compression book.Compression `yaml:"compression"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CatalogConfig locates the catalog database.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// BlobsConfig locates the blob store for decoded binaries.
type BlobsConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Convert: ConvertConfig{
			NotesBody:    convert.DefaultNotesBody,
			CommentsBody: convert.DefaultCommentsBody,
			Workers:      1,
		},
		Output: OutputConfig{Compression: book.CompressionNone},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Catalog: CatalogConfig{Path: "protobook.db"},
		Blobs:   BlobsConfig{Dir: "blobs"},
	}
}

// Validate reports every invalid field, joined into one error.
func (c Config) Validate() error {
	var errs []error
	add := func(field, message string) {
		errs = append(errs, errors.NewValidation(field, message))
	}

	if strings.TrimSpace(c.Convert.NotesBody) == "" {
		add("convert.notes_body", "must not be empty")
	}
	if strings.TrimSpace(c.Convert.CommentsBody) == "" {
		add("convert.comments_body", "must not be empty")
	}
	if c.Convert.NotesBody != "" && c.Convert.NotesBody == c.Convert.CommentsBody {
		add("convert.comments_body", "must differ from convert.notes_body")
	}
	if c.Convert.Workers < 1 {
		add("convert.workers", "must be at least 1")
	}

	switch c.Output.Compression {
	case book.CompressionNone, book.CompressionXZ:
	default:
		add("output.compression", "must be 'none' or 'xz'")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "must be one of debug, info, warn, error")
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		add("log.format", "must be 'json' or 'text'")
	}

	if strings.TrimSpace(c.Catalog.Path) == "" {
		add("catalog.path", "must not be empty")
	}
	if strings.TrimSpace(c.Blobs.Dir) == "" {
		add("blobs.dir", "must not be empty")
	}

	return stderrors.Join(errs...)
}

// ConverterOptions maps the convert section onto converter options.
func (c Config) ConverterOptions() convert.Options {
	return convert.Options{
		NotesBody:    c.Convert.NotesBody,
		CommentsBody: c.Convert.CommentsBody,
		Workers:      c.Convert.Workers,
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.NewIO("read", path, err)
	}

	// Fields present in the file override the defaults, the rest are kept.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &errors.ParseError{Format: "YAML", Path: path, Message: err.Error(), Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
