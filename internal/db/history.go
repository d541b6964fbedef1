package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/site-auditor/internal/types"
)

// SaveRecord upserts one history record by id.
func (db *DB) SaveRecord(ctx context.Context, record *types.AnalysisRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO analysis_history (id, record)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET record = $2`,
		record.ID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save history record %s: %w", record.ID, err)
	}
	return nil
}

// LoadRecords returns up to limit records, most recent first.
func (db *DB) LoadRecords(ctx context.Context, limit int) ([]*types.AnalysisRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT record FROM analysis_history ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var records []*types.AnalysisRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		var record types.AnalysisRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("failed to decode history record: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// DeleteRecordsBeyond removes every record not among the newest keep entries.
func (db *DB) DeleteRecordsBeyond(ctx context.Context, keep int) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM analysis_history WHERE id NOT IN (
			SELECT id FROM analysis_history ORDER BY created_at DESC LIMIT $1
		)`,
		keep,
	)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}

// ClearRecords empties the history table.
func (db *DB) ClearRecords(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM analysis_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
