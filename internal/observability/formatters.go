// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/site-auditor/internal/pipeline"
	"github.com/jonathan/site-auditor/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintAudit outputs a human-readable summary of the sitewide audit.
func (p *Printer) PrintAudit(audit *types.SitewideAudit) {
	if audit == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Health Score: %d/100\n", audit.HealthScore))
	sb.WriteString("\n")

	if len(audit.TechnicalFindings) > 0 {
		sb.WriteString("Technical Findings:\n")
		count := min(len(audit.TechnicalFindings), maxItemsToShow)
		for i := 0; i < count; i++ {
			f := audit.TechnicalFindings[i]
			sb.WriteString(fmt.Sprintf("  • [%s] %s\n", f.Severity, f.Title))
		}
		if len(audit.TechnicalFindings) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(audit.TechnicalFindings)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(audit.CompetitorGaps) > 0 {
		sb.WriteString("Competitor Gaps:\n")
		count := min(len(audit.CompetitorGaps), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", audit.CompetitorGaps[i].Title))
		}
		if len(audit.CompetitorGaps) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(audit.CompetitorGaps)-3))
		}
	}

	p.printBox("SITEWIDE AUDIT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPageAnalysis outputs the per-page findings with scores.
func (p *Printer) PrintPageAnalysis(pages *types.PageAnalysis) {
	if pages == nil || len(pages.Pages) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Pages analyzed: %d\n\n", len(pages.Pages)))

	count := min(len(pages.Pages), maxItemsToShow)
	for i := 0; i < count; i++ {
		page := pages.Pages[i]
		url := page.URL
		if len(url) > 45 {
			url = url[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, url))
		sb.WriteString(fmt.Sprintf("    Score: %d, issues: %d\n", page.Score, len(page.Issues)))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(pages.Pages) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more pages", len(pages.Pages)-maxItemsToShow))
	}

	if len(pages.CommonIssues) > 0 {
		sb.WriteString("\n\nCommon Issues:\n")
		count := min(len(pages.CommonIssues), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", pages.CommonIssues[i]))
		}
	}

	p.printBox("PAGE ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintActionPlan outputs the prioritized remediation plan.
func (p *Printer) PrintActionPlan(plan *types.ActionPlan) {
	if plan == nil || len(plan.Items) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Plan has %d items:\n\n", len(plan.Items)))

	count := min(len(plan.Items), maxItemsToShow)
	for i := 0; i < count; i++ {
		item := plan.Items[i]
		title := item.Title
		if len(title) > 45 {
			title = title[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s  %s\n", item.Priority, title))
		sb.WriteString(fmt.Sprintf("    effort: %s, impact: %s\n", item.Effort, item.Impact))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(plan.Items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more items", len(plan.Items)-maxItemsToShow))
	}

	if len(plan.QuickWins) > 0 {
		sb.WriteString("\n\nQuick Wins:\n")
		count := min(len(plan.QuickWins), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", plan.QuickWins[i]))
		}
	}

	p.printBox("ACTION PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSummary outputs the executive summary.
func (p *Printer) PrintSummary(summary *types.ExecutiveSummary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n", summary.Headline))
	sb.WriteString(fmt.Sprintf("Overall Score: %d/100\n", summary.OverallScore))
	sb.WriteString("\n")

	if len(summary.KeyWins) > 0 {
		sb.WriteString("Key Wins:\n")
		for _, win := range summary.KeyWins {
			sb.WriteString(fmt.Sprintf("  ✓ %s\n", win))
		}
	}
	if len(summary.KeyRisks) > 0 {
		sb.WriteString("Key Risks:\n")
		for _, risk := range summary.KeyRisks {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", risk))
		}
	}

	p.printBox("EXECUTIVE SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSources outputs the grounding sources behind the analysis.
func (p *Printer) PrintSources(sources []types.Source) {
	if len(sources) == 0 {
		return
	}

	var sb strings.Builder
	for i, src := range sources {
		if i >= maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(sources)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("• %s\n", src.URL))
	}

	p.printBox("SOURCES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStages outputs the final state of every pipeline stage.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintStages(snap pipeline.Snapshot) {
	var sb strings.Builder
	for _, stage := range snap.Stages {
		marker := statusMarker(stage.Status)
		sb.WriteString(fmt.Sprintf("%s %-20s %s", marker, stage.Name, stage.Status))
		if !stage.StartTime.IsZero() && !stage.EndTime.IsZero() {
			sb.WriteString(fmt.Sprintf(" (%s)", stage.EndTime.Sub(stage.StartTime).Round(10*time.Millisecond)))
		}
		sb.WriteString("\n")
	}
	p.printBox("PIPELINE STAGES", strings.TrimSuffix(sb.String(), "\n"))
}

func statusMarker(status pipeline.StageStatus) string {
	switch status {
	case pipeline.StatusComplete:
		return "✓"
	case pipeline.StatusError:
		return "✗"
	case pipeline.StatusSkipped:
		return "-"
	case pipeline.StatusRunning:
		return "▶"
	default:
		return "·"
	}
}
