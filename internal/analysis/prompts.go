package analysis

import (
	"encoding/json"
	"strings"

	"github.com/jonathan/site-auditor/internal/prompts"
	"github.com/jonathan/site-auditor/internal/types"
)

const promptFile = "analysis.json"

// auditURLLimit caps how many URLs are inlined into the audit prompt.
const auditURLLimit = 100

func buildAuditPrompt(req AuditRequest) string {
	urls := req.URLs
	if len(urls) > auditURLLimit {
		urls = urls[:auditURLLimit]
	}

	competitorSection := ""
	if len(req.CompetitorURLs) > 0 {
		competitorSection = prompts.Format(prompts.MustGet(promptFile, "competitor_section"), map[string]string{
			"CompetitorList": strings.Join(req.CompetitorURLs, "\n"),
		})
	}

	return prompts.Format(prompts.MustGet(promptFile, "sitewide_audit"), map[string]string{
		"SitemapURL":        req.SitemapURL,
		"URLList":           strings.Join(urls, "\n"),
		"AnalysisType":      analysisTypeOrDefault(req.AnalysisType),
		"TargetLocation":    locationOrDefault(req.TargetLocation),
		"CompetitorSection": competitorSection,
	})
}

func buildPagePrompt(req PageRequest, signals []pageSignals) string {
	// The signals slice marshals cleanly; failure here would mean a bug in
	// pageSignals itself, so fall back to an empty evidence list.
	encoded, err := json.MarshalIndent(signals, "", "  ")
	if err != nil {
		encoded = []byte("[]")
	}

	return prompts.Format(prompts.MustGet(promptFile, "page_analysis"), map[string]string{
		"AnalysisType":   analysisTypeOrDefault(req.AnalysisType),
		"TargetLocation": locationOrDefault(req.TargetLocation),
		"ExtraContext":   orDefault(req.ExtraContext, "none"),
		"Signals":        string(encoded),
	})
}

func buildPlanPrompt(audit *types.SitewideAudit, pages *types.PageAnalysis) string {
	return prompts.Format(prompts.MustGet(promptFile, "action_plan"), map[string]string{
		"Audit": mustMarshal(audit),
		"Pages": mustMarshal(pages),
	})
}

func buildSummaryPrompt(audit *types.SitewideAudit, pages *types.PageAnalysis) string {
	return prompts.Format(prompts.MustGet(promptFile, "executive_summary"), map[string]string{
		"Audit": mustMarshal(audit),
		"Pages": mustMarshal(pages),
	})
}

func analysisTypeOrDefault(t types.AnalysisType) string {
	if t == "" {
		return string(types.AnalysisTypeFull)
	}
	return string(t)
}

func locationOrDefault(loc string) string {
	return orDefault(loc, "global")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func mustMarshal(v any) string {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
