// Package pipeline provides the orchestration engine for an analysis run:
// a fixed stage catalog, an observable state store, a progress adapter and
// the run controller that drives collaborators through the stages.
package pipeline

// StageID identifies one stage of the analysis pipeline.
type StageID string

// The seven pipeline stages, in execution order.
const (
	StageCrawl      StageID = "crawl"
	StageRank       StageID = "rank"
	StageCompetitor StageID = "competitor"
	StageTechnical  StageID = "technical"
	StageContent    StageID = "content"
	StageActionPlan StageID = "actionplan"
	StageSummary    StageID = "summary"
)

// StageDescriptor is the immutable definition of a stage.
type StageDescriptor struct {
	ID          StageID
	Name        string
	Description string
}

var catalog = []StageDescriptor{
	{StageCrawl, "Crawling Sitemap", "Discovering pages from the sitemap"},
	{StageRank, "Ranking URLs", "Selecting the most valuable pages to analyze"},
	{StageCompetitor, "Competitor Analysis", "Benchmarking against competitor sites"},
	{StageTechnical, "Technical Audit", "Checking site structure and crawlability"},
	{StageContent, "Content Analysis", "Reviewing on-page SEO for top pages"},
	{StageActionPlan, "Action Plan", "Prioritizing recommended fixes"},
	{StageSummary, "Executive Summary", "Summarizing results for stakeholders"},
}

// Catalog returns the ordered stage definitions. The caller gets a copy.
func Catalog() []StageDescriptor {
	out := make([]StageDescriptor, len(catalog))
	copy(out, catalog)
	return out
}
