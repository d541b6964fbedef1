package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/schemas"
	"github.com/jonathan/site-auditor/internal/types"
)

// Summarize produces the executive summary from the audit and page analysis.
func (a *Analyzer) Summarize(ctx context.Context, audit *types.SitewideAudit, pages *types.PageAnalysis) (*types.ExecutiveSummary, error) {
	if audit == nil || pages == nil {
		return nil, fmt.Errorf("summary requires both audit and page analysis results")
	}

	prompt := buildSummaryPrompt(audit, pages)
	raw, err := a.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("executive summary failed: %w", err)
	}

	if err := schemas.Validate(schemas.ExecutiveSummary, raw); err != nil {
		return nil, fmt.Errorf("executive summary returned invalid JSON: %w", err)
	}
	var summary types.ExecutiveSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, fmt.Errorf("failed to decode executive summary: %w", err)
	}
	return &summary, nil
}
