// Package history keeps the bounded list of completed analysis runs.
// The list is a convenience surface: persistence failures are logged and
// swallowed, never returned to the pipeline.
package history

import (
	"context"
	"log"
	"sync"

	"github.com/jonathan/site-auditor/internal/types"
)

// Capacity is the maximum number of records retained.
const Capacity = 10

// Store persists the history list.
type Store interface {
	Save(ctx context.Context, record *types.AnalysisRecord) error
	Load(ctx context.Context, limit int) ([]*types.AnalysisRecord, error)
	Prune(ctx context.Context, keep int) error
	Clear(ctx context.Context) error
}

// Recorder maintains the in-memory history list and mirrors it to a Store.
type Recorder struct {
	mu      sync.Mutex
	store   Store
	records []*types.AnalysisRecord
	logf    func(format string, args ...any)
}

// NewRecorder creates a Recorder, loading any previously persisted records.
func NewRecorder(ctx context.Context, store Store) *Recorder {
	r := &Recorder{
		store: store,
		logf:  log.Printf,
	}
	if store != nil {
		records, err := store.Load(ctx, Capacity)
		if err != nil {
			r.logf("Warning: failed to load analysis history: %v", err)
		} else {
			r.records = records
		}
	}
	return r
}

// Record prepends a completed run and persists the truncated list.
func (r *Recorder) Record(ctx context.Context, record *types.AnalysisRecord) {
	r.mu.Lock()
	r.records = append([]*types.AnalysisRecord{record}, r.records...)
	if len(r.records) > Capacity {
		r.records = r.records[:Capacity]
	}
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	if err := r.store.Save(ctx, record); err != nil {
		r.logf("Warning: failed to persist analysis record %s: %v", record.ID, err)
		return
	}
	if err := r.store.Prune(ctx, Capacity); err != nil {
		r.logf("Warning: failed to prune analysis history: %v", err)
	}
}

// Update applies mutate to the record with the given id and re-persists it.
// Unknown ids are ignored.
func (r *Recorder) Update(ctx context.Context, id string, mutate func(*types.AnalysisRecord)) {
	r.mu.Lock()
	var updated *types.AnalysisRecord
	for _, record := range r.records {
		if record.ID == id {
			mutate(record)
			updated = record
			break
		}
	}
	r.mu.Unlock()

	if updated == nil || r.store == nil {
		return
	}
	if err := r.store.Save(ctx, updated); err != nil {
		r.logf("Warning: failed to persist updated record %s: %v", id, err)
	}
}

// Records returns a copy of the list, most recent first.
func (r *Recorder) Records() []*types.AnalysisRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*types.AnalysisRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Clear empties the list and the backing store.
func (r *Recorder) Clear(ctx context.Context) {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	if err := r.store.Clear(ctx); err != nil {
		r.logf("Warning: failed to clear analysis history: %v", err)
	}
}
