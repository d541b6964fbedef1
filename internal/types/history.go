package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnalysisRecord is an immutable snapshot of a completed analysis run,
// kept in the bounded history list
type AnalysisRecord struct {
	ID             string            `json:"id"`
	Date           string            `json:"date"` // display date, e.g. "Jan 2, 2006"
	SitemapURL     string            `json:"sitemap_url"`
	CompetitorURLs []string          `json:"competitor_urls,omitempty"`
	Audit          *SitewideAudit    `json:"audit,omitempty"`
	Pages          *PageAnalysis     `json:"pages,omitempty"`
	Sources        []Source          `json:"sources,omitempty"`
	Plan           *ActionPlan       `json:"plan,omitempty"`
	Summary        *ExecutiveSummary `json:"summary,omitempty"`
	AnalysisType   AnalysisType      `json:"analysis_type"`
	TargetLocation string            `json:"target_location,omitempty"`
}

// NewRecordID builds a unique, time-derived record identifier.
// The timestamp prefix keeps IDs sortable; the uuid suffix keeps them unique
// even for runs finishing within the same second.
func NewRecordID(t time.Time) string {
	return fmt.Sprintf("%s-%s", t.UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

// DisplayDate formats a timestamp the way history entries are shown
func DisplayDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
