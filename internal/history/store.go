package history

import (
	"context"
	"sync"

	"github.com/jonathan/site-auditor/internal/db"
	"github.com/jonathan/site-auditor/internal/types"
)

// MemoryStore is an in-process Store used in tests and db-less runs.
type MemoryStore struct {
	mu      sync.Mutex
	records []*types.AnalysisRecord // newest first
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, record *types.AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.records {
		if existing.ID == record.ID {
			s.records[i] = record
			return nil
		}
	}
	s.records = append([]*types.AnalysisRecord{record}, s.records...)
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, limit int) ([]*types.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]*types.AnalysisRecord, n)
	copy(out, s.records[:n])
	return out, nil
}

// Prune implements Store.
func (s *MemoryStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep >= 0 && len(s.records) > keep {
		s.records = s.records[:keep]
	}
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	return nil
}

// PostgresStore persists history through the analysis_history table.
type PostgresStore struct {
	database *db.DB
}

// NewPostgresStore creates a database-backed Store.
func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{database: database}
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, record *types.AnalysisRecord) error {
	return s.database.SaveRecord(ctx, record)
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, limit int) ([]*types.AnalysisRecord, error) {
	return s.database.LoadRecords(ctx, limit)
}

// Prune implements Store.
func (s *PostgresStore) Prune(ctx context.Context, keep int) error {
	return s.database.DeleteRecordsBeyond(ctx, keep)
}

// Clear implements Store.
func (s *PostgresStore) Clear(ctx context.Context) error {
	return s.database.ClearRecords(ctx)
}
