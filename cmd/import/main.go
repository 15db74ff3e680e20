/*
main.go - Offline loader for tables and configuration

PURPOSE:
  Seeds a prize database without the admin UI: uploads CSV/TSV files as
  tables and, optionally, commits a configuration document (including the
  legacy bare-array format).

EXAMPLES:
  # Upload two sheets
  ./import -db=prize.db weekly.csv cumulative.tsv

  # Upload and commit a configuration
  ./import -db=prize.db -config=config.json weekly.csv
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/meritzGA/meritz-prize/factory"
	"github.com/meritzGA/meritz-prize/logging"
	"github.com/meritzGA/meritz-prize/prize"
	"github.com/meritzGA/meritz-prize/store/sqlite"
	"github.com/meritzGA/meritz-prize/tabular"
)

func main() {
	dbPath := flag.String("db", "prize.db", "SQLite database path")
	configPath := flag.String("config", "", "configuration JSON to commit")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	log, err := logging.New(*logLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = run(context.Background(), log, *dbPath, *configPath, flag.Args())
	if err != nil {
		log.Error("import failed", zap.Error(err))
	}
	log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger, dbPath, configPath string, files []string) error {
	store, err := sqlite.New(dbPath, sqlite.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	for _, path := range files {
		t, err := tabular.ReadFile(path)
		if err != nil {
			return err
		}
		if err := store.SaveTable(ctx, t); err != nil {
			return err
		}
		log.Info("table imported", zap.String("table", t.Name), zap.Int("rows", len(t.Rows)))
	}

	if configPath == "" {
		return nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := factory.NewSchemeFactory().ParseConfig(data)
	if err != nil {
		return err
	}

	registry := prize.NewRegistry(store, log)
	if _, err := registry.UpdateAndCommit(ctx, func(c *prize.Config) error {
		*c = cfg
		return nil
	}); err != nil {
		return err
	}

	engine := prize.NewEngine(store, prize.WithLogger(log))
	issues, err := engine.Review(ctx, registry.Current())
	if err != nil {
		return err
	}
	for _, is := range issues {
		log.Warn("scheme needs attention",
			zap.String("scheme", is.SchemeName),
			zap.String("field", is.Field),
			zap.String("severity", string(is.Severity)),
			zap.String("message", is.Message))
	}
	return nil
}
