package prize_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meritzGA/meritz-prize/prize"
	"github.com/meritzGA/meritz-prize/prize/store"
)

func TestRegistry_UpdateIsUncommittedUntilCommit(t *testing.T) {
	// GIVEN: A registry loaded from an empty store
	// WHEN: A scheme is added and then committed
	// THEN: Status is dirty in between and the store sees one save

	ctx := context.Background()
	mem := store.NewMemory()
	reg := prize.NewRegistry(mem, nil)
	require.NoError(t, reg.Load(ctx))
	assert.False(t, reg.Status().Dirty)

	snap, err := reg.Update(func(c *prize.Config) error {
		c.Schemes = append(c.Schemes, flatScheme("a"))
		return nil
	})
	require.NoError(t, err)

	st := reg.Status()
	assert.True(t, st.Dirty)
	assert.Equal(t, snap.Version, st.Version)
	assert.Equal(t, 1, st.Schemes)
	assert.Zero(t, mem.Saves())

	_, err = reg.Commit(ctx)
	require.NoError(t, err)

	assert.False(t, reg.Status().Dirty)
	assert.Equal(t, 1, mem.Saves())
	stored, err := mem.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Len(t, stored.Schemes, 1)
}

func TestRegistry_SnapshotsAreImmutable(t *testing.T) {
	// GIVEN: A snapshot taken before an edit
	// WHEN: The configuration is edited
	// THEN: The old snapshot still shows the old configuration

	reg := prize.NewRegistry(store.NewMemory(), nil)
	_, err := reg.Update(func(c *prize.Config) error {
		c.Schemes = []prize.Scheme{flatScheme("a")}
		return nil
	})
	require.NoError(t, err)
	before := reg.Current()

	_, err = reg.Update(func(c *prize.Config) error {
		c.Schemes[0].Name = "renamed"
		c.Schemes[0].Tiers = prize.MustTierTable(prize.NewTier(1, 1))
		c.Schemes = append(c.Schemes, flatScheme("b"))
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, before.Schemes, 1)
	assert.Equal(t, "주차 a", before.Schemes[0].Name)
	assert.Len(t, before.Schemes[0].Tiers, 4)
	assert.Greater(t, reg.Current().Version, before.Version)
}

func TestRegistry_FailedUpdateChangesNothing(t *testing.T) {
	reg := prize.NewRegistry(store.NewMemory(), nil)
	before := reg.Current()
	boom := errors.New("boom")

	_, err := reg.Update(func(c *prize.Config) error {
		c.Schemes = append(c.Schemes, flatScheme("a"))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Same(t, before, reg.Current())
}

func TestRegistry_UpdateAndCommit(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	reg := prize.NewRegistry(mem, nil)

	_, err := reg.UpdateAndCommit(ctx, func(c *prize.Config) error {
		c.Schemes = []prize.Scheme{flatScheme("a"), passthroughScheme("b")}
		return nil
	})
	require.NoError(t, err)

	assert.False(t, reg.Status().Dirty)
	assert.Equal(t, 1, mem.Saves())
}

func TestRegistry_LoadReadsStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveConfig(ctx, prize.Config{Schemes: []prize.Scheme{flatScheme("a")}}))
	reg := prize.NewRegistry(mem, nil)

	require.NoError(t, reg.Load(ctx))

	snap := reg.Current()
	s, ok := snap.Scheme("a")
	assert.True(t, ok)
	assert.Equal(t, "주차 a", s.Name)
	_, ok = snap.Scheme("missing")
	assert.False(t, ok)
}

func TestRegistry_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	// GIVEN: Writers replacing the scheme list while readers evaluate
	// WHEN: Both run concurrently
	// THEN: Every snapshot a reader sees has a consistent scheme count

	reg := prize.NewRegistry(store.NewMemory(), nil)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_, err := reg.Update(func(c *prize.Config) error {
					c.Schemes = []prize.Scheme{flatScheme("a"), flatScheme("b")}
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				n := len(reg.Current().Schemes)
				assert.True(t, n == 0 || n == 2, "saw %d schemes", n)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(400), reg.Current().Version)
}
