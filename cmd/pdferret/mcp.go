package main

import (
	"context"
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/config"
	"github.com/dusk-indust/pdferret/internal/ferret"
	"github.com/dusk-indust/pdferret/internal/mcptools"
)

// runMCP starts the MCP tool server, over streamable HTTP by default or on
// stdio with -stdio.
func runMCP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pdferret mcp", flag.ContinueOnError)
	addr := fs.String("addr", ":8001", "listen address for streamable HTTP")
	stdio := fs.Bool("stdio", false, "serve on stdio instead of HTTP")
	configDir := fs.String("config", "", "directory holding pdferret.yml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}
	log := logrus.StandardLogger()
	f, err := ferret.New(cfg, ferret.WithLogger(log))
	if err != nil {
		return err
	}
	svc := mcptools.NewService(f, log)

	if *stdio {
		return mcptools.RunStdio(ctx, svc)
	}
	return mcptools.RunHTTP(ctx, svc, *addr)
}
