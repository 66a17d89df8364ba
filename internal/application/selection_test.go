package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
)

// recordSet is a RecordLookup whose contents tests can change.
type recordSet struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newRecordSet(ids ...string) *recordSet {
	r := &recordSet{ids: make(map[string]bool)}
	for _, id := range ids {
		r.ids[id] = true
	}
	return r
}

func (r *recordSet) Exists(_ context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids[id]
}

func (r *recordSet) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ids, id)
}

func seedSelectable(t *testing.T, f *fixture, ids ...string) {
	t.Helper()
	records := make([]*models.KeyRecord, len(ids))
	for i, id := range ids {
		records[i] = keyRecord(id, constants.AlgorithmEd25519, constants.KeyStatusActive, time.Hour)
	}
	f.seed(t, records)
}

func TestSelection_Operations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedSelectable(t, f, "k1", "k2", "k3", "k4")
	sel := NewSelection(f.keys)

	assert.True(t, sel.Select(ctx, "k1"))
	assert.True(t, sel.Select(ctx, "k2"))
	assert.True(t, sel.Select(ctx, "k1"))
	assert.Equal(t, []string{"k1", "k2"}, sel.Current())

	assert.Equal(t, 3, sel.SelectAll(ctx, []string{"k3", "k2", "k4"}))
	assert.Equal(t, []string{"k1", "k2", "k3", "k4"}, sel.Current())

	sel.Deselect("k2")
	sel.Deselect("unknown")
	assert.Equal(t, []string{"k1", "k3", "k4"}, sel.Current())

	current := sel.Current()
	current[0] = "mutated"
	assert.Equal(t, "k1", sel.Current()[0])

	sel.Clear()
	assert.Empty(t, sel.Current())
}

func TestSelection_RejectsUnknownIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedSelectable(t, f, "k1")
	sel := NewSelection(f.keys)

	assert.False(t, sel.Select(ctx, "ghost"))
	assert.False(t, sel.Select(ctx, ""))
	assert.Equal(t, 1, sel.SelectAll(ctx, []string{"k1", "ghost", "", "k9"}))
	assert.Equal(t, []string{"k1"}, sel.Current())
}

func TestSelection_ResolveDropsAbsentIDs(t *testing.T) {
	ctx := context.Background()
	records := newRecordSet("k1", "k2", "k3")
	sel := NewSelection(records)
	require.Equal(t, 3, sel.SelectAll(ctx, []string{"k1", "k2", "k3"}))

	records.remove("k2")
	resolved, err := sel.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k3"}, resolved)
	assert.Equal(t, []string{"k1", "k3"}, sel.Current())

	// k2 is gone for good: re-selecting it is refused.
	assert.False(t, sel.Select(ctx, "k2"))
}

func TestSelection_ResolveCancelled(t *testing.T) {
	sel := NewSelection(newRecordSet("k1"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sel.Resolve(ctx)
	assert.Error(t, err)
}

func TestSelection_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	records := newRecordSet()
	for i := 0; i < 20; i += 2 {
		records.ids[fmt.Sprintf("k%d", i)] = true
	}
	sel := NewSelection(records)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sel.Select(ctx, fmt.Sprintf("k%d", i))
			_ = sel.Current()
			_, _ = sel.Resolve(ctx)
		}()
	}
	wg.Wait()
	assert.Len(t, sel.Current(), 10)
	for _, id := range sel.Current() {
		assert.True(t, records.Exists(ctx, id), id)
	}
}

func TestSelectionRegistry_Sessions(t *testing.T) {
	ctx := context.Background()
	reg := NewSelectionRegistry(newRecordSet("k1", "k2"), time.Minute)

	reg.Session("a").Select(ctx, "k1")
	reg.Session("b").Select(ctx, "k2")
	assert.Equal(t, []string{"k1"}, reg.Session("a").Current())
	assert.Equal(t, []string{"k2"}, reg.Session("b").Current())

	held := reg.Session("a")
	reg.Drop("a")
	assert.Empty(t, held.Current())
	_, ok := reg.Lookup("a")
	assert.False(t, ok)
	assert.Empty(t, reg.Session("a").Current())
}

func TestSelectionRegistry_LookupDoesNotCreate(t *testing.T) {
	reg := NewSelectionRegistry(newRecordSet(), time.Minute)

	sel, ok := reg.Lookup("nobody")
	assert.False(t, ok)
	assert.Nil(t, sel)
	_, ok = reg.Lookup("nobody")
	assert.False(t, ok)
}

func TestSelectionRegistry_EvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	reg := NewSelectionRegistry(newRecordSet("k1"), 20*time.Millisecond)
	reg.Session("idle").Select(ctx, "k1")

	sel, ok := reg.Lookup("idle")
	require.True(t, ok)
	assert.Equal(t, []string{"k1"}, sel.Current())

	time.Sleep(60 * time.Millisecond)
	_, ok = reg.Lookup("idle")
	assert.False(t, ok)
}
