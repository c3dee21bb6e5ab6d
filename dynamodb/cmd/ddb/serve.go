package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/acksell/tablekit/dynamodb/ddbui"
	"go.uber.org/zap"
)

func runServe(args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(wd)
	if err != nil {
		return err
	}
	if err := parseServeFlags(&cfg, args); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := ddbstore.New(ddbstore.StoreOptions{Logger: logger}, cfg.Table.Definition())
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Seed != "" {
		records, err := ddbui.LoadSeed(cfg.Seed)
		if err != nil {
			return err
		}
		if err := ddbui.Seed(ctx, store, records); err != nil {
			return err
		}
		logger.Info("seeded store", zap.String("file", cfg.Seed), zap.Int("records", len(records)))
	}

	return ddbui.NewServer(store, ddbui.ServerConfig{Port: cfg.Port, Logger: logger}).Run(ctx)
}

// parseServeFlags applies command line flags on top of cfg.
func parseServeFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port to listen on")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "YAML file of records to load at startup")
	fs.StringVar(&cfg.Table.Name, "table", cfg.Table.Name, "table name")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), `ddb serve - Start the debug API over an in-memory store

Usage:
  ddb serve [flags]

Flags:`)
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}
