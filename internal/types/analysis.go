// Package types provides type definitions for structured data used throughout the site-auditor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// AnalysisType selects which analyzers weight their focus for a run
type AnalysisType string

// Supported analysis types
const (
	// AnalysisTypeFull covers technical health, content quality and competitor gaps
	AnalysisTypeFull AnalysisType = "full"
	// AnalysisTypeTechnical focuses on crawlability, indexing and site structure
	AnalysisTypeTechnical AnalysisType = "technical"
	// AnalysisTypeContent focuses on on-page content and keyword coverage
	AnalysisTypeContent AnalysisType = "content"
)

// Finding is a single audit observation with a recommended fix
type Finding struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Severity       string `json:"severity"` // critical, high, medium, low
	Recommendation string `json:"recommendation"`
}

// SitewideAudit represents the site-level audit result covering
// technical health and competitor gap signals
type SitewideAudit struct {
	Summary           string    `json:"summary"`
	HealthScore       int       `json:"health_score"` // 0-100
	TechnicalFindings []Finding `json:"technical_findings"`
	CompetitorGaps    []Finding `json:"competitor_gaps,omitempty"`
}

// PageReport holds the page-level SEO findings for a single URL
type PageReport struct {
	URL             string    `json:"url"`
	Title           string    `json:"title,omitempty"`
	MetaDescription string    `json:"meta_description,omitempty"`
	Score           int       `json:"score"` // 0-100
	Issues          []Finding `json:"issues"`
}

// PageAnalysis aggregates per-page SEO findings across the analyzed URL set
type PageAnalysis struct {
	Pages        []PageReport `json:"pages"`
	CommonIssues []string     `json:"common_issues,omitempty"`
}

// Source is a grounding citation surfaced by an analyzer
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// ActionItem is one prioritized step in the remediation plan
type ActionItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // p0, p1, p2
	Effort      string `json:"effort"`   // low, medium, high
	Impact      string `json:"impact"`   // low, medium, high
}

// ActionPlan is the synthesized remediation plan for a run
type ActionPlan struct {
	Items     []ActionItem `json:"items"`
	QuickWins []string     `json:"quick_wins,omitempty"`
}

// ExecutiveSummary is the leadership-facing rollup of a completed analysis
type ExecutiveSummary struct {
	Headline     string   `json:"headline"`
	OverallScore int      `json:"overall_score"` // 0-100
	KeyWins      []string `json:"key_wins"`
	KeyRisks     []string `json:"key_risks"`
	Narrative    string   `json:"narrative"`
}
