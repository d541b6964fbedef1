// Package analysis provides the AI-backed analyzers: sitewide audit,
// page-level SEO analysis, action-plan synthesis and executive summary.
// Analyzer progress is reported with an explicit stage tag so callers never
// have to classify messages by content.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/site-auditor/internal/fetch"
	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/schemas"
	"github.com/jonathan/site-auditor/internal/types"
)

// ProgressTag identifies which pipeline concern a progress message belongs to.
type ProgressTag string

// Progress tags emitted by the analyzers.
const (
	TagTechnical  ProgressTag = "technical"
	TagCompetitor ProgressTag = "competitor"
	TagContent    ProgressTag = "content"
	TagActionPlan ProgressTag = "actionplan"
)

// ProgressFunc receives tagged status messages during an analyzer call.
type ProgressFunc func(tag ProgressTag, message string)

// Analyzer runs LLM-backed analysis tasks against a discovered URL set.
type Analyzer struct {
	client     llm.Client
	fetchOpts  *fetch.Options
	maxSampled int
	useBrowser bool
	verbose    bool
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithFetchOptions overrides the HTTP options used when sampling pages.
func WithFetchOptions(opts *fetch.Options) Option {
	return func(a *Analyzer) { a.fetchOpts = opts }
}

// WithMaxSampledPages bounds how many pages are fetched for signal extraction.
func WithMaxSampledPages(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxSampled = n
		}
	}
}

// WithBrowserFallback renders pages in a headless browser when the plain
// fetch yields too little text (JS-rendered sites). Requires Chrome.
func WithBrowserFallback(enabled bool) Option {
	return func(a *Analyzer) { a.useBrowser = enabled }
}

// WithVerbose enables debug logging inside the analyzers.
func WithVerbose(v bool) Option {
	return func(a *Analyzer) { a.verbose = v }
}

// NewAnalyzer creates an Analyzer on top of an LLM client.
func NewAnalyzer(client llm.Client, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:     client,
		fetchOpts:  fetch.DefaultOptions(),
		maxSampled: 10,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuditRequest carries the inputs for the sitewide audit.
type AuditRequest struct {
	SitemapURL     string
	URLs           []string
	CompetitorURLs []string
	AnalysisType   types.AnalysisType
	TargetLocation string
}

// AuditSite performs the sitewide audit covering technical health and,
// when competitor URLs are present, competitor gap analysis.
func (a *Analyzer) AuditSite(ctx context.Context, req AuditRequest, onProgress ProgressFunc) (*types.SitewideAudit, error) {
	emit(onProgress, TagTechnical, fmt.Sprintf("Auditing site structure across %d URLs", len(req.URLs)))

	if len(req.CompetitorURLs) > 0 {
		emit(onProgress, TagCompetitor, fmt.Sprintf("Comparing against %d competitors", len(req.CompetitorURLs)))
	}

	prompt := buildAuditPrompt(req)
	raw, err := a.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, fmt.Errorf("sitewide audit failed: %w", err)
	}

	emit(onProgress, TagTechnical, "Validating audit findings")
	audit, err := decodeAudit(raw)
	if err != nil {
		return nil, err
	}

	if len(req.CompetitorURLs) > 0 {
		emit(onProgress, TagCompetitor, fmt.Sprintf("Identified %d competitor gaps", len(audit.CompetitorGaps)))
	}
	emit(onProgress, TagTechnical, fmt.Sprintf("Audit complete: health score %d", audit.HealthScore))

	return audit, nil
}

// decodeAudit validates the model output against the audit schema before
// unmarshalling it.
func decodeAudit(raw string) (*types.SitewideAudit, error) {
	if err := schemas.Validate(schemas.SitewideAudit, raw); err != nil {
		return nil, fmt.Errorf("sitewide audit returned invalid JSON: %w", err)
	}
	var audit types.SitewideAudit
	if err := json.Unmarshal([]byte(raw), &audit); err != nil {
		return nil, fmt.Errorf("failed to decode sitewide audit: %w", err)
	}
	return &audit, nil
}

func emit(onProgress ProgressFunc, tag ProgressTag, message string) {
	if onProgress != nil {
		onProgress(tag, message)
	}
}
