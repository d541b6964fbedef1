package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DefaultCacheTTL is how long a cached audit result stays fresh.
const DefaultCacheTTL = 7 * 24 * time.Hour

// GetCachedPayload returns the cached payload for a key, or nil when the key
// is absent or expired.
func (db *DB) GetCachedPayload(ctx context.Context, cacheKey string) ([]byte, error) {
	var payload []byte
	err := db.pool.QueryRow(ctx,
		`SELECT payload FROM audit_cache WHERE cache_key = $1 AND expires_at > NOW()`,
		cacheKey,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit cache: %w", err)
	}
	return payload, nil
}

// PutCachedPayload upserts a cache entry with the given TTL.
func (db *DB) PutCachedPayload(ctx context.Context, cacheKey, sitemapURL string, payload any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO audit_cache (cache_key, sitemap_url, payload, expires_at)
		 VALUES ($1, $2, $3, NOW() + $4)
		 ON CONFLICT (cache_key) DO UPDATE SET payload = $3, created_at = NOW(), expires_at = NOW() + $4`,
		cacheKey, sitemapURL, encoded, ttl,
	)
	if err != nil {
		return fmt.Errorf("failed to write audit cache: %w", err)
	}
	return nil
}
