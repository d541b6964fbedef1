// Package cache stores audit results keyed by analysis target so repeat runs
// against an unchanged URL set can skip the expensive analysis stages.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/site-auditor/internal/types"
)

// Result is the cached output of the analysis stages.
type Result struct {
	Audit   *types.SitewideAudit `json:"audit"`
	Pages   *types.PageAnalysis  `json:"pages"`
	Sources []types.Source       `json:"sources,omitempty"`
}

// Store is the cache contract the orchestrator consumes.
// Get returns (nil, nil) on a miss; Put failures are treated as best-effort
// by callers and must not be escalated.
type Store interface {
	Get(ctx context.Context, sitemapURL string, urls []string) (*Result, error)
	Put(ctx context.Context, sitemapURL string, urls []string, result *Result) error
}

// Key derives a stable cache key from the target and its discovered URL set.
// The URL set is sorted first so discovery order does not affect the key.
func Key(sitemapURL string, urls []string) string {
	sorted := make([]string, len(urls))
	copy(sorted, urls)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(sitemapURL))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// Memory is an in-process Store with TTL expiry.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	result  *Result
	expires time.Time
}

// NewMemory creates an in-memory cache. A non-positive ttl disables expiry.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, sitemapURL string, urls []string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(sitemapURL, urls)
	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		delete(m.entries, key)
		return nil, nil
	}
	return entry.result, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, sitemapURL string, urls []string, result *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{result: result}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.entries[Key(sitemapURL, urls)] = entry
	return nil
}
