package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/dusk-indust/pdferret/internal/config"
	"github.com/dusk-indust/pdferret/internal/export"
	"github.com/dusk-indust/pdferret/internal/ferret"
)

// runPipelines prints the recipe table: one line per extension with the
// ordered stage names, or a JSON or Mermaid rendering of the same table.
func runPipelines(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pdferret pipelines", flag.ContinueOnError)
	configDir := fs.String("config", "", "directory holding pdferret.yml")
	format := fs.String("format", "text", "output format: text, json or mermaid")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}
	f, err := ferret.New(cfg)
	if err != nil {
		return err
	}
	table, err := f.Pipelines(ctx)
	if err != nil {
		return err
	}

	switch *format {
	case "text":
		exts := make([]string, 0, len(table))
		for ext := range table {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		for _, ext := range exts {
			fmt.Printf("%-5s %s\n", ext, strings.Join(table[ext], " -> "))
		}
	case "json":
		out, err := sonic.MarshalIndent(export.ExportPipelines(cfg.PDFEngine, table), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		if _, err := os.Stdout.Write(append(out, '\n')); err != nil {
			return err
		}
	case "mermaid":
		fmt.Print(export.GenerateMermaid(table))
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	return nil
}
