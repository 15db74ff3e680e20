/*
Package config loads server settings from flags, the environment and an
optional .env file.

PRECEDENCE:
  flag > environment > .env > built-in default

  .env is loaded with godotenv, which never overrides variables that are
  already set, so a real environment always wins over the file.

VARIABLES:
  PORT            HTTP port (8080)
  DB_PATH         SQLite path (prize.db); ":memory:" for a throwaway store
  ADMIN_PASSWORD  Admin route password; empty disables admin routes
  MANAGER_MATCH   exact | contains (exact)
  BAND_UNIT       Near-miss band unit (100000)
  WORKERS         Downline evaluation workers (8)
  LOG_LEVEL       debug | info | warn | error (info)
  LOG_ENCODING    json | console (json)
  CORS_ORIGINS    Comma-separated allowed origins (*)
  REVIEW_INTERVAL Background configuration review interval (10m); 0 disables
  DEMO_SCENARIOS  Allow admins to wipe the store and load demo data (false)
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/meritzGA/meritz-prize/prize"
)

// Config holds every server setting.
type Config struct {
	Port          int
	DBPath        string
	AdminPassword string
	ManagerMatch  prize.MatchMode
	BandUnit      int64
	Workers       int
	LogLevel      string
	LogEncoding   string
	CORSOrigins   []string

	ReviewInterval time.Duration
	DemoScenarios  bool
}

// Load reads .env (if present in the working directory), then parses args
// with defaults taken from the environment.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return parse(args)
}

func parse(args []string) (Config, error) {
	fsFlags := flag.NewFlagSet("server", flag.ContinueOnError)

	port := fsFlags.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := fsFlags.String("db", env("DB_PATH", "prize.db"), "SQLite database path")
	match := fsFlags.String("manager-match", env("MANAGER_MATCH", string(prize.MatchExact)), "manager code matching: exact or contains")
	bandUnit := fsFlags.Int64("band-unit", int64(envInt("BAND_UNIT", prize.DefaultBandUnit)), "near-miss band unit")
	workers := fsFlags.Int("workers", envInt("WORKERS", prize.DefaultWorkers), "downline evaluation workers")
	logLevel := fsFlags.String("log-level", env("LOG_LEVEL", "info"), "log level")
	logEncoding := fsFlags.String("log-encoding", env("LOG_ENCODING", "json"), "log encoding: json or console")
	origins := fsFlags.String("cors-origins", env("CORS_ORIGINS", "*"), "comma-separated CORS origins")
	demo := fsFlags.Bool("demo-scenarios", envBool("DEMO_SCENARIOS"), "allow loading demo scenarios (wipes the store)")
	review := fsFlags.Duration("review-interval", envDuration("REVIEW_INTERVAL", 10*time.Minute), "configuration review interval, 0 disables")

	if err := fsFlags.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:          *port,
		DBPath:        *dbPath,
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		ManagerMatch:  prize.ParseMatchMode(*match),
		BandUnit:      *bandUnit,
		Workers:       *workers,
		LogLevel:      *logLevel,
		LogEncoding:   *logEncoding,
		CORSOrigins:   splitList(*origins),

		ReviewInterval: *review,
		DemoScenarios:  *demo,
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.BandUnit <= 0 {
		return Config{}, fmt.Errorf("invalid band unit %d", cfg.BandUnit)
	}
	return cfg, nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(env(key, ""))
	if err != nil {
		return def
	}
	return v
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(env(key, "false"))
	return err == nil && v
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(env(key, ""))
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
