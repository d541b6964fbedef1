package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-auditor/internal/types"
)

func record(id string) *types.AnalysisRecord {
	return &types.AnalysisRecord{
		ID:         id,
		SitemapURL: "https://example.com/sitemap.xml",
	}
}

func TestRecorder_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	recorder := NewRecorder(ctx, NewMemoryStore())

	recorder.Record(ctx, record("first"))
	recorder.Record(ctx, record("second"))

	records := recorder.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].ID)
	assert.Equal(t, "first", records[1].ID)
}

func TestRecorder_BoundedAtCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	recorder := NewRecorder(ctx, store)

	for i := 0; i < Capacity+1; i++ {
		recorder.Record(ctx, record(fmt.Sprintf("run-%02d", i)))
	}

	records := recorder.Records()
	require.Len(t, records, Capacity)
	assert.Equal(t, "run-10", records[0].ID)
	assert.Equal(t, "run-01", records[Capacity-1].ID)

	// The oldest record is pruned from the backing store too
	persisted, err := store.Load(ctx, 0)
	require.NoError(t, err)
	require.Len(t, persisted, Capacity)
	assert.Equal(t, "run-10", persisted[0].ID)
}

func TestRecorder_LoadsPersistedRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, record("previous")))

	recorder := NewRecorder(ctx, store)
	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "previous", records[0].ID)
}

func TestRecorder_Update(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	recorder := NewRecorder(ctx, store)

	recorder.Record(ctx, record("run-1"))
	recorder.Update(ctx, "run-1", func(r *types.AnalysisRecord) {
		r.TargetLocation = "Berlin"
	})

	assert.Equal(t, "Berlin", recorder.Records()[0].TargetLocation)

	persisted, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", persisted[0].TargetLocation)

	// Unknown id is a no-op
	recorder.Update(ctx, "missing", func(r *types.AnalysisRecord) {
		r.TargetLocation = "nowhere"
	})
}

func TestRecorder_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	recorder := NewRecorder(ctx, store)

	recorder.Record(ctx, record("run-1"))
	recorder.Clear(ctx)

	assert.Empty(t, recorder.Records())
	persisted, err := store.Load(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

// failingStore always errors to exercise the swallow-and-log policy.
type failingStore struct{}

func (failingStore) Save(context.Context, *types.AnalysisRecord) error {
	return fmt.Errorf("disk on fire")
}
func (failingStore) Load(context.Context, int) ([]*types.AnalysisRecord, error) {
	return nil, fmt.Errorf("disk on fire")
}
func (failingStore) Prune(context.Context, int) error { return fmt.Errorf("disk on fire") }
func (failingStore) Clear(context.Context) error      { return fmt.Errorf("disk on fire") }

func TestRecorder_PersistenceFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()

	var logged []string
	recorder := NewRecorder(ctx, failingStore{})
	recorder.logf = func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}

	recorder.Record(ctx, record("run-1"))
	recorder.Clear(ctx)

	// The in-memory list still behaved correctly despite store failures
	assert.Empty(t, recorder.Records())
	assert.NotEmpty(t, logged)
}
