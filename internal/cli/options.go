// Package cli parses catalog-export command-line flags.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/electwix/catalog-export/internal/config"
	"github.com/electwix/catalog-export/internal/logging"
)

// Options holds parsed flags.
type Options struct {
	ConfigPath string
	// ConfigExplicit is set when -config or -c was given; a missing default
	// config file is then an error instead of being skipped.
	ConfigExplicit bool
	Catalog        string
	Out            string
	Target         string
	Tiger          bool
	DryRun         bool
	StrictConfig   bool
	SaveSnapshot   string
	Verbose        bool
	LogFormat      logging.Format
	Args           []string
}

// Parse parses args, not including the program name.
func Parse(args []string) (Options, error) {
	opts := Options{
		ConfigPath: config.DefaultPath,
	}
	var logFormat string

	fs := flag.NewFlagSet("catalog-export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Path to configuration file")
	fs.StringVar(&opts.ConfigPath, "c", opts.ConfigPath, "Path to configuration file")
	fs.StringVar(&opts.Catalog, "catalog", "", "Catalog JSON/YAML file or snapshot database (SQLite file or postgres:// URL)")
	fs.StringVar(&opts.Out, "out", "", "Override output file; relative paths are resolved against the config directory")
	fs.StringVar(&opts.Target, "target", "", "Output language: typescript or go")
	fs.BoolVar(&opts.Tiger, "tiger", false, "Use Tiger backend date naming")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Print the generated file instead of writing it")
	fs.BoolVar(&opts.StrictConfig, "strict-config", false, "Treat configuration warnings as errors")
	fs.StringVar(&opts.SaveSnapshot, "save-snapshot", "", "Store the loaded catalog in a snapshot database")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.Verbose, "v", false, "Enable verbose logging")
	fs.StringVar(&logFormat, "log-format", string(logging.FormatText), "Log format: text or json")

	if err := fs.Parse(args); err != nil {
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage(fs))
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" || f.Name == "c" {
			opts.ConfigExplicit = true
		}
	})

	format, err := logging.ParseFormat(logFormat)
	if err != nil {
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage(fs))
	}
	opts.LogFormat = format
	opts.Args = fs.Args()
	return opts, nil
}

// Usage renders the flag help of fs.
func Usage(fs *flag.FlagSet) string {
	if fs == nil {
		return ""
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "Usage of %s:\n", fs.Name())
	out := fs.Output()
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(out)
	return buf.String()
}
