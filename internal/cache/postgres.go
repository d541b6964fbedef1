package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/site-auditor/internal/db"
)

// Postgres is a Store backed by the audit_cache table, shared across runs
// and process restarts.
type Postgres struct {
	database *db.DB
	ttl      time.Duration
}

// NewPostgres creates a database-backed cache store.
func NewPostgres(database *db.DB, ttl time.Duration) *Postgres {
	if ttl <= 0 {
		ttl = db.DefaultCacheTTL
	}
	return &Postgres{database: database, ttl: ttl}
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, sitemapURL string, urls []string) (*Result, error) {
	payload, err := p.database.GetCachedPayload(ctx, Key(sitemapURL, urls))
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached audit: %w", err)
	}
	return &result, nil
}

// Put implements Store.
func (p *Postgres) Put(ctx context.Context, sitemapURL string, urls []string, result *Result) error {
	return p.database.PutCachedPayload(ctx, Key(sitemapURL, urls), sitemapURL, result, p.ttl)
}
