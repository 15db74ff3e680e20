/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the prize server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the zap logger
  3. Open the SQLite store (migrates on open)
  4. Load the latest committed configuration into the registry
  5. Build the engine, handler and router
  6. Start the background configuration review
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  See config/config.go. Every flag also reads an environment variable.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the configuration review
  4. Close database connection
  5. Exit

  Uncommitted admin edits are lost on shutdown; the status endpoint reports
  them as dirty while the server runs.

EXAMPLES:
  # Run with file database
  ./server -db="./data/prize.db"

  # Run with in-memory database and console logs
  ./server -db=":memory:" -log-encoding=console

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/meritzGA/meritz-prize/api"
	"github.com/meritzGA/meritz-prize/config"
	"github.com/meritzGA/meritz-prize/logging"
	"github.com/meritzGA/meritz-prize/prize"
	"github.com/meritzGA/meritz-prize/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath, sqlite.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	registry := prize.NewRegistry(store, log)
	if err := registry.Load(context.Background()); err != nil {
		return err
	}

	engine := prize.NewEngine(store,
		prize.WithLogger(log),
		prize.WithBands(prize.DefaultBands(cfg.BandUnit)),
		prize.WithMatchMode(cfg.ManagerMatch),
		prize.WithWorkers(cfg.Workers),
	)

	handler := api.NewHandler(registry, engine, store, log, cfg.AdminPassword)
	handler.History = store
	if cfg.DemoScenarios {
		handler.Resetter = store
	}
	if cfg.AdminPassword == "" {
		log.Warn("ADMIN_PASSWORD is not set; admin routes are disabled")
	}

	router := api.NewRouter(handler, api.RouterOptions{CORSOrigins: cfg.CORSOrigins})

	reviewer := api.NewReviewScheduler(registry, engine, log)
	reviewer.Interval = cfg.ReviewInterval
	reviewer.Start()
	defer reviewer.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath),
			zap.String("manager_match", string(cfg.ManagerMatch)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")
	if st := registry.Status(); st.Dirty {
		log.Warn("discarding uncommitted configuration",
			zap.Int64("version", st.Version),
			zap.Int64("committed_version", st.CommittedVersion))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
