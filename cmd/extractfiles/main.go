package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wesm/extractfiles/extract"
	"github.com/wesm/extractfiles/internal/config"
	"github.com/wesm/extractfiles/internal/report"
	"github.com/wesm/extractfiles/internal/tree"
	"github.com/wesm/extractfiles/internal/watch"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

// stdinArg names standard input as the document source.
const stdinArg = "-"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("extractfiles %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runExtract(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`extractfiles %s - find file references in a JSON or YAML document

Decodes the document, replaces every file reference with null and
prints the cleaned document together with the object paths where
each file occurred.

Usage:
  extractfiles [flags] [file|-]   Extract files (stdin when no file)
  extractfiles version            Show version information
  extractfiles help               Show this help

Flags:
  -format string      Input format: auto, json or yaml (default "auto")
  -prefix string      Prefix for extracted object paths
  -marker string      Key that tags a file reference (default "$file")
  -no-blob            Do not treat native blobs as files
  -no-file            Do not treat native named files as files
  -indent             Indent the JSON report (default true)
  -watch              Re-run when the input file changes
  -debounce duration  Delay before re-running in watch mode (default 300ms)

Environment variables:
  EXTRACTFILES_DIR        Config directory (default ~/.extractfiles)
  EXTRACTFILES_ENV_FILE   Dotenv file to read (default .env)
  EXTRACTFILES_FORMAT, EXTRACTFILES_PREFIX, EXTRACTFILES_MARKER,
  EXTRACTFILES_NO_BLOB, EXTRACTFILES_NO_FILE, EXTRACTFILES_INDENT,
  EXTRACTFILES_DEBOUNCE   Same as the flags above

A file reference is an object whose only key is the marker, either
{"$file": "file:///path"} or {"$file": {"uri": ..., "name": ..., "type": ...}}.
`, version)
}

func runExtract(args []string) {
	cfg, input := mustLoadConfig(args)
	ext := mustNewExtractor(cfg)

	if !cfg.Watch {
		if err := run(os.Stdout, os.Stdin, input, cfg, ext); err != nil {
			log.Fatalf("extracting %s: %v", describeInput(input), err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()
	if err := watchInput(ctx, os.Stdout, input, cfg, ext); err != nil {
		log.Fatalf("watching %s: %v", describeInput(input), err)
	}
}

func mustLoadConfig(args []string) (config.Config, string) {
	fs := flag.NewFlagSet("extractfiles", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"Usage: extractfiles [flags] [file|-]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}
	if fs.NArg() > 1 {
		log.Fatalf("expected at most one input, got %d", fs.NArg())
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	input := fs.Arg(0)
	if input == "" {
		input = stdinArg
	}
	return cfg, input
}

func mustNewExtractor(cfg config.Config) *extract.Extractor {
	ext, err := extract.New(
		extract.WithEnv(cfg.FileEnv()),
		extract.WithPrefix(cfg.Prefix),
	)
	if err != nil {
		log.Fatalf("creating extractor: %v", err)
	}
	return ext
}

// run decodes one document, extracts its files and writes the
// report to w.
func run(
	w io.Writer, stdin io.Reader, input string,
	cfg config.Config, ext *extract.Extractor,
) error {
	data, err := readInput(stdin, input)
	if err != nil {
		return err
	}
	doc, err := tree.Decode(data, cfg.DocFormat(), cfg.DecodeOptions())
	if err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	r, err := report.Build(ext.Extract(doc), ext.Prefix())
	if err != nil {
		return fmt.Errorf("building report: %w", err)
	}
	return report.Encode(w, r, cfg.Indent)
}

func readInput(stdin io.Reader, input string) ([]byte, error) {
	if input == stdinArg {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}

// watchInput prints a report now and again after every change to
// input, until ctx is done. A failed re-run is logged and the watch
// continues.
func watchInput(
	ctx context.Context, w io.Writer, input string,
	cfg config.Config, ext *extract.Extractor,
) error {
	if input == stdinArg {
		return fmt.Errorf("-watch needs a file argument")
	}

	watcher, err := watch.New(input, cfg.Debounce, func(path string) {
		if err := run(w, nil, path, cfg, ext); err != nil {
			log.Printf("extracting %s: %v", path, err)
		}
	})
	if err != nil {
		return err
	}

	// Changes made during the first run queue up in the watcher and
	// are handled once it starts, so reports never interleave.
	if err := run(w, nil, input, cfg, ext); err != nil {
		log.Printf("extracting %s: %v", input, err)
	}
	watcher.Start()
	defer watcher.Stop()

	<-ctx.Done()
	return nil
}

func describeInput(input string) string {
	if input == stdinArg {
		return "stdin"
	}
	return input
}
