package main

import (
	"context"
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/config"
	"github.com/dusk-indust/pdferret/internal/ferret"
	"github.com/dusk-indust/pdferret/internal/server"
)

// runServe starts the HTTP processing server and blocks until interrupted.
func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pdferret serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8000", "listen address")
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
	return server.New(f, cfg, server.WithLogger(log)).Run(ctx, *addr)
}
