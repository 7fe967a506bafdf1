// Command areaimpact estimates the reef area disturbed by fishing events.
//
// Usage:
//
//	areaimpact [flags] lines  <events> <lengthBound> <bufferDist> <targets> <outdir>
//	areaimpact [flags] points <events> <bufferDist> <targets> <outdir>
//
// <events> may be a glob pattern; every matching dataset is run against the
// same targets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/beetlebugorg/reefimpact/internal/config"
	"github.com/beetlebugorg/reefimpact/pkg/impact"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(fs *flag.FlagSet, w io.Writer) func() {
	return func() {
		fmt.Fprintf(w, "Usage:\n")
		fmt.Fprintf(w, "  areaimpact [flags] lines  <events> <lengthBound> <bufferDist> <targets> <outdir>\n")
		fmt.Fprintf(w, "  areaimpact [flags] points <events> <bufferDist> <targets> <outdir>\n\n")
		fmt.Fprintf(w, "Flags:\n")
		fs.PrintDefaults()
	}
}

// run executes the command and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("areaimpact", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a JSON configuration file")
	workers := fs.Int("workers", 0, "concurrent runs when <events> is a glob (0 = config or NumCPU)")
	verbose := fs.Bool("v", false, "enable debug logging")
	fs.Usage = usage(fs, stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if fs.NArg() < 1 {
		fs.Usage()
		return 1
	}

	kind, err := impact.ParseKind(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return 1
	}

	params, err := impact.ParseArgs(kind, fs.Args()[1:])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	cache := impact.NewDatasetCache(cfg.GetCacheBytes())
	opts := []impact.Option{
		impact.WithConfig(cfg),
		impact.WithLogger(logger),
		impact.WithCache(cache),
	}

	if !isGlob(params.Events) {
		res, err := impact.Run(ctx, params, opts...)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		printResult(stdout, res)
		return 0
	}

	matches, err := filepath.Glob(params.Events)
	if err != nil {
		fmt.Fprintf(stderr, "Error: bad pattern %q: %v\n", params.Events, err)
		return 1
	}
	if len(matches) == 0 {
		fmt.Fprintf(stderr, "Error: no datasets match %q\n", params.Events)
		return 1
	}

	batch := make([]impact.Params, len(matches))
	for i, path := range matches {
		batch[i] = params
		batch[i].Events = path
	}

	n := *workers
	if n == 0 {
		n = cfg.GetWorkers()
	}
	results, errs := impact.RunBatch(ctx, batch, impact.BatchOptions{
		Parallel:   true,
		Workers:    n,
		SkipErrors: true,
		Progress: func(done, total int) {
			logger.Debug("batch progress", "done", done, "total", total)
		},
		ErrorLog: stderr,
	}, opts...)

	for _, res := range results {
		printResult(stdout, res)
	}
	if len(errs) > 0 {
		fmt.Fprintf(stderr, "Error: %d of %d runs failed\n", len(errs), len(batch))
		return 1
	}
	return 0
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

func printResult(w io.Writer, res *impact.Result) {
	fmt.Fprintf(w, "%s: %d rows, total area %.2f -> %s\n", res.BaseName, res.Rows, res.TotalArea, res.CSVPath)
}
