package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set by goreleaser at build time.
var version = "dev"

const usageText = `usage: pdferret [-version] <command> [options]

Commands:
  extract    run files through their pipelines and emit JSON documents
  serve      start the HTTP processing server
  mcp        start the MCP tool server (HTTP or stdio)
  pipelines  print the pipeline recipe table
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("pdferret", flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usageText) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println(version)
		return nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return fmt.Errorf("a command is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch rest[0] {
	case "extract":
		return runExtract(ctx, rest[1:])
	case "serve":
		return runServe(ctx, rest[1:])
	case "mcp":
		return runMCP(ctx, rest[1:])
	case "pipelines":
		return runPipelines(ctx, rest[1:])
	default:
		return fmt.Errorf("unknown command %q", rest[0])
	}
}
