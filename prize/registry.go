/*
registry.go - Versioned configuration snapshots

PURPOSE:
  Queries read the scheme configuration while administrators edit it. The
  registry keeps the current configuration as an immutable Snapshot behind an
  atomic pointer: an edit copies the configuration, changes the copy and
  swaps in a new version. A query holds the snapshot it started with and
  never sees a half-edited scheme.

EDIT vs COMMIT:
  Edits are visible to queries as soon as Update returns, but they live only
  in memory. Commit writes the current snapshot to the ConfigStore
  ("apply to server"). Status reports whether uncommitted edits exist.
  UpdateAndCommit does both in one step (bulk deletes).

CONCURRENCY:
  - Current(): lock-free load of the pointer
  - Update(), Commit(), Load(): serialized by one mutex

SEE ALSO:
  - store/sqlite/sqlite.go: ConfigStore implementation
  - engine.go: Takes a *Snapshot explicitly
*/
package prize

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// CONFIG & SNAPSHOT
// =============================================================================

// Config is everything an administrator configures.
type Config struct {
	Schemes []Scheme
	Roster  RosterConfig
}

// Clone copies the configuration deeply enough that edits to the copy never
// reach the original.
func (c Config) Clone() Config {
	out := Config{
		Schemes: make([]Scheme, len(c.Schemes)),
		Roster:  c.Roster.clone(),
	}
	for i, s := range c.Schemes {
		s.Tiers = append(TierTable(nil), s.Tiers...)
		out.Schemes[i] = s
	}
	return out
}

// Snapshot is one immutable configuration version. Do not modify it.
type Snapshot struct {
	Version   int64
	CreatedAt time.Time
	Config
}

// Scheme returns the scheme with the given id.
func (s *Snapshot) Scheme(id string) (Scheme, bool) {
	for _, sc := range s.Schemes {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scheme{}, false
}

// NewSnapshot wraps a configuration for callers that manage versions themselves (tests).
func NewSnapshot(cfg Config) *Snapshot {
	return &Snapshot{Version: 1, CreatedAt: time.Now(), Config: cfg.Clone()}
}

// =============================================================================
// CONFIG STORE
// =============================================================================

// ConfigStore persists the configuration. An empty store loads as an empty Config.
type ConfigStore interface {
	LoadConfig(ctx context.Context) (Config, error)
	SaveConfig(ctx context.Context, cfg Config) error
}

// =============================================================================
// REGISTRY
// =============================================================================

// Status describes the registry's in-memory and committed versions.
type Status struct {
	Version          int64
	CommittedVersion int64
	Dirty            bool
	Schemes          int
}

// Registry holds the current configuration snapshot.
type Registry struct {
	store ConfigStore
	log   *zap.Logger

	mu        sync.Mutex
	current   atomic.Pointer[Snapshot]
	committed atomic.Int64
}

// NewRegistry creates a registry with an empty version-0 snapshot.
func NewRegistry(store ConfigStore, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{store: store, log: log}
	r.current.Store(&Snapshot{CreatedAt: time.Now()})
	return r
}

// Current returns the snapshot queries should use.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Load replaces the in-memory configuration with the stored one.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := r.store.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	snap := r.next(cfg)
	r.committed.Store(snap.Version)
	r.log.Info("configuration loaded",
		zap.Int64("version", snap.Version),
		zap.Int("schemes", len(snap.Schemes)))
	return nil
}

// Update applies fn to a copy of the current configuration and publishes
// the result as a new snapshot. If fn fails nothing changes.
func (r *Registry) Update(fn func(cfg *Config) error) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.Current().Config.Clone()
	if err := fn(&cfg); err != nil {
		return nil, err
	}
	snap := r.next(cfg)
	r.log.Debug("configuration updated", zap.Int64("version", snap.Version))
	return snap, nil
}

// Commit writes the current snapshot to the store.
func (r *Registry) Commit(ctx context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.Current()
	if err := r.store.SaveConfig(ctx, snap.Config); err != nil {
		return nil, fmt.Errorf("commit configuration version %d: %w", snap.Version, err)
	}
	r.committed.Store(snap.Version)
	r.log.Info("configuration committed", zap.Int64("version", snap.Version))
	return snap, nil
}

// UpdateAndCommit applies fn and persists the result in one serialized step.
func (r *Registry) UpdateAndCommit(ctx context.Context, fn func(cfg *Config) error) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.Current().Config.Clone()
	if err := fn(&cfg); err != nil {
		return nil, err
	}
	if err := r.store.SaveConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("commit configuration: %w", err)
	}
	snap := r.next(cfg)
	r.committed.Store(snap.Version)
	r.log.Info("configuration committed", zap.Int64("version", snap.Version))
	return snap, nil
}

// Status reports versions and whether uncommitted edits exist.
func (r *Registry) Status() Status {
	snap := r.Current()
	committed := r.committed.Load()
	return Status{
		Version:          snap.Version,
		CommittedVersion: committed,
		Dirty:            snap.Version != committed,
		Schemes:          len(snap.Schemes),
	}
}

// next publishes cfg as the following version. Callers hold r.mu.
func (r *Registry) next(cfg Config) *Snapshot {
	snap := &Snapshot{
		Version:   r.Current().Version + 1,
		CreatedAt: time.Now(),
		Config:    cfg,
	}
	r.current.Store(snap)
	return snap
}
