// Command protobook converts FictionBook 2 documents into the Book model
// and keeps a catalog of converted books.
package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/protobook/internal/config"
	"github.com/FocuswithJustin/protobook/internal/logging"
)

const version = "0.1.0"

// stdout receives command output. Logs go to stderr.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for protobook.
var CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"Path to the YAML config file" default:"${config_path}" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error); overrides the config"`
	LogFormat string `name:"log-format" help:"Log format (json, text); overrides the config"`

	Convert  ConvertCmd   `cmd:"" help:"Convert an FB2 file to a Book document"`
	Info     InfoCmd      `cmd:"" help:"Print identity and statistics of an FB2 file"`
	Validate ValidateCmd  `cmd:"" help:"Convert an FB2 file and check the result"`
	Catalog  CatalogGroup `cmd:"" help:"Catalog of converted books"`
	Blob     BlobCmd      `cmd:"" help:"Write a stored binary by id or BLAKE3 hash"`
	Version  VersionCmd   `cmd:"" help:"Print version information"`
}

// CatalogGroup contains catalog operations.
type CatalogGroup struct {
	Add  CatalogAddCmd  `cmd:"" help:"Convert an FB2 file and add it to the catalog"`
	List CatalogListCmd `cmd:"" help:"List catalog entries"`
	Show CatalogShowCmd `cmd:"" help:"Show a catalog entry"`
	Rm   CatalogRmCmd   `cmd:"" help:"Remove a catalog entry"`
}

// loadConfig reads the config file named by --config and applies the
// global log flags, then initializes logging on stderr.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return cfg, err
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		cfg.Log.Format = CLI.LogFormat
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return cfg, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return cfg, err
	}
	logging.InitLoggerTo(os.Stderr, level, format)
	return cfg, nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("protobook"),
		kong.Description("FictionBook 2 to Book converter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{"config_path": config.DefaultPath},
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
