// Package store provides in-memory implementations of the prize stores.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/meritzGA/meritz-prize/prize"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements prize.TableStore and prize.ConfigStore.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*prize.Table
	config prize.Config
	saves  int
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*prize.Table)}
}

// Table returns the named table, or nil if it was never saved.
func (m *Memory) Table(_ context.Context, name string) (*prize.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tables[name], nil
}

// SaveTable stores t, replacing any table with the same name.
func (m *Memory) SaveTable(_ context.Context, t *prize.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.Name] = prize.NewTable(t.Name, t.Columns, t.Rows)
	m.tables[t.Name].UploadedAt = t.UploadedAt
	return nil
}

func (m *Memory) DeleteTable(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[name]; !ok {
		return prize.ErrTableNotFound
	}
	delete(m.tables, name)
	return nil
}

// ListTables returns table summaries sorted by name.
func (m *Memory) ListTables(_ context.Context) ([]prize.TableInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]prize.TableInfo, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// LoadConfig returns a copy of the last saved configuration.
func (m *Memory) LoadConfig(_ context.Context) (prize.Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Clone(), nil
}

func (m *Memory) SaveConfig(_ context.Context, cfg prize.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg.Clone()
	m.saves++
	return nil
}

// Saves counts SaveConfig calls.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
