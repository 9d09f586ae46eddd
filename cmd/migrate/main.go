package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shifa-care/shifa_wallet/internal/config"
	"github.com/shifa-care/shifa_wallet/internal/infra"
	"github.com/shifa-care/shifa_wallet/internal/logging"
	"github.com/shifa-care/shifa_wallet/internal/migrations"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: migrate [up|down|status|version|redo|reset] [args]\n")
	}
	flag.Parse()

	command := "up"
	var args []string
	if flag.NArg() > 0 {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.AppName+"-migrate", cfg.LogLevel)
	if cfg.Backend != config.BackendPostgres {
		logger.Error("migrations only apply to the postgres backend", "backend", cfg.Backend)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.Run(ctx, pool, command, args...); err != nil {
		logger.Error("migrate", "command", command, "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete", "command", command)
}
