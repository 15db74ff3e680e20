/*
Package sqlite provides a SQLite-backed implementation of the prize stores.

PURPOSE:
  Persists the two things the engine reads: the committed scheme
  configuration and the uploaded performance tables.

INTERFACES IMPLEMENTED:
  prize.ConfigStore: Versioned configuration commits
  prize.TableStore:  Uploaded tables (TableSource + upload/delete/list)

KEY TABLES:
  config_commits: One row per commit, the whole configuration as JSON.
                  Commits are append-only; LoadConfig reads the latest.
  data_tables:    One row per uploaded table (columns, row count, time)
  data_rows:      Table rows as JSON objects, in upload order

TABLE CACHE:
  Queries read tables far more often than they are uploaded. Loaded tables
  are cached as *prize.Table in an xsync map, so the per-column row index a
  table builds survives between queries. SaveTable and DeleteTable evict the
  entry.

CONCURRENCY:
  Uses sync.RWMutex around statements, and a single connection so that
  ":memory:" databases are shared by every caller.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/prize.db", sqlite.WithLogger(log))
  if err != nil {
      log.Fatal(...)
  }
  defer store.Close()

  registry := prize.NewRegistry(store, log)
  engine := prize.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - prize/registry.go: ConfigStore consumer
  - prize/table.go: TableStore interface
  - prize/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/meritzGA/meritz-prize/factory"
	"github.com/meritzGA/meritz-prize/prize"
)

// Store implements prize.ConfigStore and prize.TableStore using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	log     *zap.Logger
	factory *factory.SchemeFactory
	cache   *xsync.Map[string, *prize.Table]
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{
		db:      db,
		log:     zap.NewNop(),
		factory: factory.NewSchemeFactory(),
		cache:   xsync.NewMap[string, *prize.Table](),
	}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Configuration commits (append-only)
	CREATE TABLE IF NOT EXISTS config_commits (
		version INTEGER PRIMARY KEY AUTOINCREMENT,
		config_json TEXT NOT NULL,
		scheme_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Uploaded tables
	CREATE TABLE IF NOT EXISTS data_tables (
		name TEXT PRIMARY KEY,
		columns_json TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		uploaded_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS data_rows (
		table_name TEXT NOT NULL REFERENCES data_tables(name) ON DELETE CASCADE,
		row_index INTEGER NOT NULL,
		row_json TEXT NOT NULL,
		PRIMARY KEY (table_name, row_index)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONFIG STORE
// =============================================================================

// ConfigCommit is one stored configuration version.
type ConfigCommit struct {
	Version     int64
	ConfigJSON  string
	SchemeCount int
	CreatedAt   time.Time
}

// SaveConfig appends cfg as a new commit.
func (s *Store) SaveConfig(ctx context.Context, cfg prize.Config) error {
	data, err := s.factory.EncodeConfig(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO config_commits (config_json, scheme_count, created_at) VALUES (?, ?, ?)",
		string(data), len(cfg.Schemes), now,
	)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	s.log.Debug("config commit stored", zap.Int("schemes", len(cfg.Schemes)))
	return nil
}

// LoadConfig returns the latest committed configuration, or an empty one.
func (s *Store) LoadConfig(ctx context.Context) (prize.Config, error) {
	commit, err := s.LatestCommit(ctx)
	if err != nil {
		return prize.Config{}, err
	}
	if commit == nil {
		return prize.Config{}, nil
	}
	cfg, err := s.factory.ParseConfig([]byte(commit.ConfigJSON))
	if err != nil {
		return prize.Config{}, fmt.Errorf("config version %d: %w", commit.Version, err)
	}
	return cfg, nil
}

// LatestCommit returns the newest commit, or nil if nothing was committed.
func (s *Store) LatestCommit(ctx context.Context) (*ConfigCommit, error) {
	commits, err := s.ConfigHistory(ctx, 1)
	if err != nil || len(commits) == 0 {
		return nil, err
	}
	return &commits[0], nil
}

// ConfigHistory returns up to limit commits, newest first.
func (s *Store) ConfigHistory(ctx context.Context, limit int) ([]ConfigCommit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT version, config_json, scheme_count, created_at FROM config_commits ORDER BY version DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commits []ConfigCommit
	for rows.Next() {
		var c ConfigCommit
		var createdAt string
		if err := rows.Scan(&c.Version, &c.ConfigJSON, &c.SchemeCount, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

// =============================================================================
// TABLE STORE
// =============================================================================

// Table returns the named table, or nil if it was never uploaded.
func (s *Store) Table(ctx context.Context, name string) (*prize.Table, error) {
	if t, ok := s.cache.Load(name); ok {
		return t, nil
	}

	// Hold the read lock until the table is cached so a concurrent
	// SaveTable cannot evict before a stale copy is stored.
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.loadTable(ctx, name)
	if err != nil || t == nil {
		return nil, err
	}
	actual, _ := s.cache.LoadOrStore(name, t)
	return actual, nil
}

// loadTable reads a table from the database. Callers hold s.mu.
func (s *Store) loadTable(ctx context.Context, name string) (*prize.Table, error) {
	var columnsJSON, uploadedAt string
	var rowCount int
	err := s.db.QueryRowContext(ctx,
		"SELECT columns_json, row_count, uploaded_at FROM data_tables WHERE name = ?",
		name,
	).Scan(&columnsJSON, &rowCount, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load table %q: %w", name, err)
	}

	var columns []string
	if err := json.Unmarshal([]byte(columnsJSON), &columns); err != nil {
		return nil, fmt.Errorf("table %q: corrupt columns: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT row_json FROM data_rows WHERE table_name = ? ORDER BY row_index",
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows of %q: %w", name, err)
	}
	defer rows.Close()

	data := make([]prize.Row, 0, rowCount)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var row prize.Row
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("table %q: corrupt row: %w", name, err)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	t := prize.NewTable(name, columns, data)
	t.UploadedAt, _ = time.Parse(time.RFC3339, uploadedAt)
	s.log.Debug("table loaded", zap.String("table", name), zap.Int("rows", len(data)))
	return t, nil
}

// SaveTable stores t, replacing any table with the same name.
func (s *Store) SaveTable(ctx context.Context, t *prize.Table) error {
	columnsJSON, err := json.Marshal(t.Columns)
	if err != nil {
		return err
	}
	uploadedAt := t.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cache.Delete(t.Name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM data_rows WHERE table_name = ?", t.Name); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO data_tables (name, columns_json, row_count, uploaded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			columns_json = excluded.columns_json,
			row_count = excluded.row_count,
			uploaded_at = excluded.uploaded_at
	`, t.Name, string(columnsJSON), len(t.Rows), uploadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save table %q: %w", t.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO data_rows (table_name, row_index, row_json) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("table %q row %d: %w", t.Name, i, err)
		}
		if _, err := stmt.ExecContext(ctx, t.Name, i, string(raw)); err != nil {
			return fmt.Errorf("table %q row %d: %w", t.Name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info("table stored", zap.String("table", t.Name), zap.Int("rows", len(t.Rows)))
	return nil
}

// DeleteTable removes a table and its rows.
func (s *Store) DeleteTable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cache.Delete(name)

	res, err := s.db.ExecContext(ctx, "DELETE FROM data_tables WHERE name = ?", name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", prize.ErrTableNotFound, name)
	}
	return nil
}

// ListTables returns table summaries sorted by name.
func (s *Store) ListTables(ctx context.Context) ([]prize.TableInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, columns_json, row_count, uploaded_at FROM data_tables ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []prize.TableInfo
	for rows.Next() {
		var info prize.TableInfo
		var columnsJSON, uploadedAt string
		if err := rows.Scan(&info.Name, &columnsJSON, &info.Rows, &uploadedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(columnsJSON), &info.Columns); err != nil {
			return nil, fmt.Errorf("table %q: corrupt columns: %w", info.Name, err)
		}
		info.UploadedAt, _ = time.Parse(time.RFC3339, uploadedAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"data_rows", "data_tables", "config_commits"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	s.cache.Clear()
	return nil
}
