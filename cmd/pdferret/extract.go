package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/dusk-indust/pdferret/internal/config"
	"github.com/dusk-indust/pdferret/internal/ferret"
)

// runExtract processes the listed files and emits one JSON document each,
// either to stdout or into the -out directory.
func runExtract(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pdferret extract", flag.ContinueOnError)
	lang := fs.String("lang", "en", "processing language (en or de)")
	outDir := fs.String("out", "", "directory for per-file JSON output (default: stdout)")
	engine := fs.String("engine", "", "pdf engine: tika, grobid, or unstructured")
	configDir := fs.String("config", "", "directory holding pdferret.yml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return fmt.Errorf("usage: pdferret extract [-lang en] [-out dir] [-engine tika] FILE...")
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}
	f, err := ferret.New(cfg)
	if err != nil {
		return err
	}

	files := make([]ferret.InFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, ferret.InFile{Path: p})
	}

	docs, perrs, err := f.ExtractBatch(ctx, files, *lang, ferret.WithEngine(*engine))
	if err != nil {
		return err
	}

	failed := make(map[string]string, len(perrs))
	for _, pe := range perrs {
		failed[pe.File] = pe.Message
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return err
		}
	}
	for _, d := range docs {
		if _, skip := failed[d.Filename()]; skip {
			continue
		}
		data, err := sonic.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", d.Filename(), err)
		}
		if *outDir == "" {
			os.Stdout.Write(append(data, '\n'))
			continue
		}
		path := filepath.Join(*outDir, d.Filename()+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	// Result table on stderr so stdout stays parseable JSON.
	for _, d := range docs {
		if msg, bad := failed[d.Filename()]; bad {
			fmt.Fprintf(os.Stderr, "  %-30s [failed] %s\n", d.Filename(), msg)
		} else {
			fmt.Fprintf(os.Stderr, "  %-30s [ok]\n", d.Filename())
		}
	}

	if len(perrs) > 0 {
		return fmt.Errorf("%d of %d files failed", len(perrs), len(paths))
	}
	return nil
}
