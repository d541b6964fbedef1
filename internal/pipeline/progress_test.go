package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressAdapter_CountsWithKnownTotal(t *testing.T) {
	store := NewStore()
	gen := store.Generation()
	store.MarkRunning(gen, StageCrawl)

	adapter := NewProgressAdapter(store, gen, StageCrawl)
	adapter.Counts(25, 100, "https://example.com/page")

	stage, _ := store.StageSnapshot(StageCrawl)
	assert.Equal(t, 25.0, stage.Progress)
	assert.Equal(t, 25, stage.ItemsProcessed)
	assert.Equal(t, 100, stage.TotalItems)
	assert.Equal(t, "https://example.com/page", stage.CurrentTask)
}

func TestProgressAdapter_UnknownTotalRetainsPercentage(t *testing.T) {
	store := NewStore()
	gen := store.Generation()
	store.MarkRunning(gen, StageCrawl)

	adapter := NewProgressAdapter(store, gen, StageCrawl)
	adapter.Counts(50, 100, "")
	adapter.Counts(60, 0, "still walking index")

	stage, _ := store.StageSnapshot(StageCrawl)
	assert.Equal(t, 50.0, stage.Progress)
	assert.Equal(t, 60, stage.ItemsProcessed)
	assert.Equal(t, 0, stage.TotalItems)
	assert.Equal(t, "still walking index", stage.CurrentTask)
}

func TestProgressAdapter_RepeatedDeliveryIsIdempotent(t *testing.T) {
	store := NewStore()
	gen := store.Generation()
	store.MarkRunning(gen, StageContent)

	adapter := NewProgressAdapter(store, gen, StageContent)
	adapter.Counts(3, 10, "page 3")
	adapter.Counts(3, 10, "page 3")

	stage, _ := store.StageSnapshot(StageContent)
	assert.Equal(t, 30.0, stage.Progress)
	assert.Equal(t, 3, stage.ItemsProcessed)
}

func TestProgressAdapter_MessageLogsAndUpdatesTask(t *testing.T) {
	store := NewStore()
	gen := store.Generation()
	store.MarkRunning(gen, StageTechnical)

	adapter := NewProgressAdapter(store, gen, StageTechnical)
	adapter.Message("Auditing site structure")

	stage, _ := store.StageSnapshot(StageTechnical)
	assert.Equal(t, "Auditing site structure", stage.CurrentTask)

	log := store.Snapshot().Log
	require.Len(t, log, 1)
	assert.Equal(t, LogAI, log[0].Type)
	assert.Equal(t, StageTechnical, log[0].Stage)
	assert.Equal(t, "Auditing site structure", log[0].Message)
}

func TestProgressAdapter_StaleGenerationIgnored(t *testing.T) {
	store := NewStore()
	gen := store.Generation()
	adapter := NewProgressAdapter(store, gen, StageCrawl)

	store.Reset()
	adapter.Counts(5, 10, "late callback")
	adapter.Message("late message")

	stage, _ := store.StageSnapshot(StageCrawl)
	assert.Zero(t, stage.ItemsProcessed)
	assert.Empty(t, store.Snapshot().Log)
}
