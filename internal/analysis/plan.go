package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/schemas"
	"github.com/jonathan/site-auditor/internal/types"
)

// BuildActionPlan synthesizes a prioritized remediation plan from the audit
// and page analysis results.
func (a *Analyzer) BuildActionPlan(ctx context.Context, audit *types.SitewideAudit, pages *types.PageAnalysis, onProgress ProgressFunc) (*types.ActionPlan, error) {
	if audit == nil || pages == nil {
		return nil, fmt.Errorf("action plan requires both audit and page analysis results")
	}

	emit(onProgress, TagActionPlan, fmt.Sprintf("Synthesizing plan from %d findings", countFindings(audit, pages)))

	prompt := buildPlanPrompt(audit, pages)
	raw, err := a.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, fmt.Errorf("action plan synthesis failed: %w", err)
	}

	if err := schemas.Validate(schemas.ActionPlan, raw); err != nil {
		return nil, fmt.Errorf("action plan returned invalid JSON: %w", err)
	}
	var plan types.ActionPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode action plan: %w", err)
	}

	emit(onProgress, TagActionPlan, fmt.Sprintf("Action plan ready: %d items", len(plan.Items)))

	return &plan, nil
}

func countFindings(audit *types.SitewideAudit, pages *types.PageAnalysis) int {
	n := len(audit.TechnicalFindings) + len(audit.CompetitorGaps)
	for _, p := range pages.Pages {
		n += len(p.Issues)
	}
	return n
}
