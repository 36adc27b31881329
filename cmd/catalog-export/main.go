// Package main implements the catalog-export CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"

	"github.com/electwix/catalog-export/internal/cli"
	"github.com/electwix/catalog-export/internal/logging"
	"github.com/electwix/catalog-export/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, err.Error())
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	logger := logging.New(logging.Options{
		Verbose: opts.Verbose,
		Writer:  stderr,
		Format:  opts.LogFormat,
	})

	configPath := opts.ConfigPath
	if !opts.ConfigExplicit {
		if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no config file, using flags only", "path", configPath)
			configPath = ""
		}
	}

	pipe := pipeline.Pipeline{Env: pipeline.Environment{
		Logger: logging.NewSlogAdapter(logger),
		Writer: pipeline.NewOSWriter(),
	}}
	summary, runErr := pipe.Run(ctx, pipeline.RunOptions{
		ConfigPath:   configPath,
		CatalogPath:  opts.Catalog,
		Out:          opts.Out,
		Target:       opts.Target,
		Tiger:        opts.Tiger,
		DryRun:       opts.DryRun,
		StrictConfig: opts.StrictConfig,
		SnapshotPath: opts.SaveSnapshot,
	})
	if runErr != nil {
		_, _ = fmt.Fprintln(stderr, runErr.Error())
		var writeErr *pipeline.WriteError
		if errors.As(runErr, &writeErr) {
			return 2
		}
		return 1
	}

	if opts.DryRun {
		_, _ = fmt.Fprintln(stdout, summary.Path)
		_, _ = stdout.Write(summary.Content)
	}
	return 0
}
