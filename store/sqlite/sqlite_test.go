package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meritzGA/meritz-prize/prize"
	"github.com/meritzGA/meritz-prize/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTable(name string, rows ...prize.Row) *prize.Table {
	t := prize.NewTable(name, []string{"사번", "실적"}, rows)
	t.UploadedAt = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	return t
}

func sampleConfig() prize.Config {
	return prize.Config{
		Schemes: []prize.Scheme{{
			ID:          "w1",
			Name:        "주차",
			SourceTable: "weekly.csv",
			Columns:     prize.Columns{AgentCode: "사번"},
			Rule:        prize.FlatTier{ValueColumn: "실적"},
			Tiers:       prize.DefaultTiers(),
		}},
	}
}

// =============================================================================
// CONFIG STORE
// =============================================================================

func TestStore_LoadConfig_EmptyStore(t *testing.T) {
	store := newTestStore(t)

	cfg, err := store.LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Empty(t, cfg.Schemes)
	commit, err := store.LatestCommit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, commit)
}

func TestStore_SaveConfig_AppendsCommits(t *testing.T) {
	// GIVEN: Two successive commits
	// WHEN: The configuration is loaded
	// THEN: The latest commit wins and history keeps both, newest first

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConfig(ctx, prize.Config{}))
	require.NoError(t, store.SaveConfig(ctx, sampleConfig()))

	cfg, err := store.LoadConfig(ctx)
	require.NoError(t, err)
	require.Len(t, cfg.Schemes, 1)
	assert.Equal(t, "w1", cfg.Schemes[0].ID)
	assert.Equal(t, prize.FlatTier{ValueColumn: "실적"}, cfg.Schemes[0].Rule)
	assert.Len(t, cfg.Schemes[0].Tiers, 4)

	history, err := store.ConfigHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Greater(t, history[0].Version, history[1].Version)
	assert.Equal(t, 1, history[0].SchemeCount)
	assert.Equal(t, 0, history[1].SchemeCount)
	assert.False(t, history[0].CreatedAt.IsZero())
}

func TestStore_RegistryRoundTrip(t *testing.T) {
	// GIVEN: A registry committing through the SQLite store
	// WHEN: A new registry loads from the same store
	// THEN: It sees the committed configuration

	store := newTestStore(t)
	ctx := context.Background()

	reg := prize.NewRegistry(store, nil)
	_, err := reg.UpdateAndCommit(ctx, func(c *prize.Config) error {
		*c = sampleConfig()
		return nil
	})
	require.NoError(t, err)

	fresh := prize.NewRegistry(store, nil)
	require.NoError(t, fresh.Load(ctx))
	_, ok := fresh.Current().Scheme("w1")
	assert.True(t, ok)
	assert.False(t, fresh.Status().Dirty)
}

// =============================================================================
// TABLE STORE
// =============================================================================

func TestStore_Table_Missing(t *testing.T) {
	store := newTestStore(t)

	tbl, err := store.Table(context.Background(), "nope.csv")

	require.NoError(t, err)
	assert.Nil(t, tbl)
}

func TestStore_SaveTable_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTable(ctx, sampleTable("weekly.csv",
		prize.Row{"사번": "1001", "실적": "250000"},
		prize.Row{"사번": "1002", "실적": nil},
	)))

	tbl, err := store.Table(ctx, "weekly.csv")
	require.NoError(t, err)
	require.NotNil(t, tbl)

	assert.Equal(t, []string{"사번", "실적"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	row, ok := tbl.First("사번", "1002")
	require.True(t, ok)
	assert.Nil(t, row["실적"])
	assert.True(t, tbl.UploadedAt.Equal(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)))
}

func TestStore_SaveTable_ReplacesAndEvictsCache(t *testing.T) {
	// GIVEN: A cached table
	// WHEN: A table with the same name is uploaded
	// THEN: Readers see only the new rows

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTable(ctx, sampleTable("weekly.csv", prize.Row{"사번": "1001"}, prize.Row{"사번": "1002"})))
	first, err := store.Table(ctx, "weekly.csv")
	require.NoError(t, err)
	again, err := store.Table(ctx, "weekly.csv")
	require.NoError(t, err)
	assert.Same(t, first, again, "second read is served from cache")

	require.NoError(t, store.SaveTable(ctx, sampleTable("weekly.csv", prize.Row{"사번": "2001"})))

	replaced, err := store.Table(ctx, "weekly.csv")
	require.NoError(t, err)
	require.Len(t, replaced.Rows, 1)
	_, ok := replaced.First("사번", "1001")
	assert.False(t, ok)
}

func TestStore_DeleteTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTable(ctx, sampleTable("a.csv", prize.Row{"사번": "1"})))
	_, err := store.Table(ctx, "a.csv")
	require.NoError(t, err)

	require.NoError(t, store.DeleteTable(ctx, "a.csv"))

	tbl, err := store.Table(ctx, "a.csv")
	require.NoError(t, err)
	assert.Nil(t, tbl)

	err = store.DeleteTable(ctx, "a.csv")
	assert.ErrorIs(t, err, prize.ErrTableNotFound)
}

func TestStore_ListTables(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTable(ctx, sampleTable("b.csv", prize.Row{"사번": "1"})))
	require.NoError(t, store.SaveTable(ctx, sampleTable("a.csv", prize.Row{"사번": "1"}, prize.Row{"사번": "2"})))

	infos, err := store.ListTables(ctx)
	require.NoError(t, err)

	require.Len(t, infos, 2)
	assert.Equal(t, "a.csv", infos[0].Name)
	assert.Equal(t, 2, infos[0].Rows)
	assert.Equal(t, []string{"사번", "실적"}, infos[0].Columns)
	assert.Equal(t, "b.csv", infos[1].Name)
}

func TestStore_EngineReadsStoredTables(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTable(ctx, sampleTable("weekly.csv", prize.Row{"사번": "1001", "실적": "250000"})))

	engine := prize.NewEngine(store)
	bundle, err := engine.EvaluateAgent(ctx, prize.NewSnapshot(sampleConfig()), "1001")
	require.NoError(t, err)

	require.True(t, bundle.Matched())
	assert.True(t, bundle.Total.Equal(decimal.NewFromInt(400000)))
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTable(ctx, sampleTable("a.csv", prize.Row{"사번": "1"})))
	require.NoError(t, store.SaveConfig(ctx, sampleConfig()))
	_, err := store.Table(ctx, "a.csv")
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	tbl, err := store.Table(ctx, "a.csv")
	require.NoError(t, err)
	assert.Nil(t, tbl)
	cfg, err := store.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Empty(t, cfg.Schemes)
}
