package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/site-auditor/internal/analysis"
	"github.com/jonathan/site-auditor/internal/cache"
	"github.com/jonathan/site-auditor/internal/crawling"
	"github.com/jonathan/site-auditor/internal/history"
	"github.com/jonathan/site-auditor/internal/ranking"
	"github.com/jonathan/site-auditor/internal/types"
)

// ErrNoURLs is returned when the sitemap crawl completes but discovers
// nothing to analyze.
var ErrNoURLs = errors.New("no URLs discovered")

// maxDiscoveredCompetitors bounds automatic competitor discovery.
const maxDiscoveredCompetitors = 3

// Crawler discovers the site's URL set from a sitemap.
type Crawler interface {
	Crawl(ctx context.Context, sitemapURL string, onProgress crawling.ProgressFunc) ([]string, error)
}

// Ranker selects the n most valuable URLs from a discovered set.
type Ranker interface {
	TopN(urls []string, n int) []string
}

// RankerFunc adapts a plain function to the Ranker interface.
type RankerFunc func(urls []string, n int) []string

// TopN implements Ranker.
func (f RankerFunc) TopN(urls []string, n int) []string { return f(urls, n) }

// SiteAuditor produces the sitewide technical and competitor audit.
type SiteAuditor interface {
	AuditSite(ctx context.Context, req analysis.AuditRequest, onProgress analysis.ProgressFunc) (*types.SitewideAudit, error)
}

// PageAnalyzer produces per-page SEO findings with grounding sources.
type PageAnalyzer interface {
	AnalyzePages(ctx context.Context, req analysis.PageRequest, onProgress analysis.ProgressFunc) (*types.PageAnalysis, []types.Source, error)
}

// Planner synthesizes the prioritized action plan.
type Planner interface {
	BuildActionPlan(ctx context.Context, audit *types.SitewideAudit, pages *types.PageAnalysis, onProgress analysis.ProgressFunc) (*types.ActionPlan, error)
}

// Summarizer produces the executive summary.
type Summarizer interface {
	Summarize(ctx context.Context, audit *types.SitewideAudit, pages *types.PageAnalysis) (*types.ExecutiveSummary, error)
}

// CompetitorFinder discovers competitor sites when none were supplied.
type CompetitorFinder interface {
	DiscoverCompetitors(ctx context.Context, targetURL string, limit int) ([]string, error)
}

// Collaborators bundles everything the controller drives. Crawler, Ranker,
// Auditor, Pages, Planner and Summarizer are required; the rest are optional.
type Collaborators struct {
	Crawler     Crawler
	Ranker      Ranker
	Auditor     SiteAuditor
	Pages       PageAnalyzer
	Planner     Planner
	Summarizer  Summarizer
	Competitors CompetitorFinder
	Cache       cache.Store
	History     *history.Recorder
}

// RunOptions are the validated inputs for one analysis run.
type RunOptions struct {
	SitemapURL     string   `validate:"required,url"`
	CompetitorURLs []string `validate:"omitempty,dive,url"`
	AnalysisType   types.AnalysisType
	TargetLocation string
	TopN           int
}

// Controller owns the pipeline state for one analysis surface and drives
// collaborators through the stage catalog. A new run supersedes any run
// still in flight.
type Controller struct {
	store    *Store
	collab   Collaborators
	validate *validator.Validate

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// NewController creates a Controller over the given store and collaborators.
func NewController(store *Store, collab Collaborators) *Controller {
	return &Controller{
		store:    store,
		collab:   collab,
		validate: validator.New(),
	}
}

// Store exposes the state store for rendering.
func (c *Controller) Store() *Store { return c.store }

// Run executes the full pipeline and returns the resulting history record.
// The first collaborator failure aborts the run; completed stages keep their
// results, running stages are marked errored.
func (c *Controller) Run(ctx context.Context, opts RunOptions) (*types.AnalysisRecord, error) {
	if err := c.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid run options: %w", err)
	}
	if opts.AnalysisType == "" {
		opts.AnalysisType = types.AnalysisTypeFull
	}
	if opts.TopN <= 0 {
		opts.TopN = ranking.DefaultTopN
	}

	c.mu.Lock()
	if c.cancel != nil {
		// A previous run is still in flight; supersede it.
		c.cancel()
	}
	runCtx, cancelRun := context.WithCancel(ctx)
	gen := c.store.Reset()
	c.cancel = cancelRun
	c.gen = gen
	c.mu.Unlock()
	defer c.release(gen, cancelRun)

	startedAt := time.Now()
	c.store.AppendLog(gen, LogEntry{Message: "Starting analysis of " + opts.SitemapURL, Type: LogInfo})

	// Stage 1: crawl the sitemap.
	c.store.MarkRunning(gen, StageCrawl)
	crawlProgress := NewProgressAdapter(c.store, gen, StageCrawl)
	urls, err := c.collab.Crawler.Crawl(runCtx, opts.SitemapURL, func(discovered, total int, currentURL string) {
		crawlProgress.Counts(discovered, total, currentURL)
	})
	if err != nil {
		return nil, c.failStage(gen, StageCrawl, fmt.Errorf("sitemap crawl failed: %w", err))
	}
	c.store.SetDiscoveredURLs(gen, len(urls))
	c.store.MarkComplete(gen, StageCrawl)
	c.store.AppendLog(gen, LogEntry{
		Message: fmt.Sprintf("Discovered %d URLs", len(urls)),
		Type:    LogSuccess,
		Stage:   StageCrawl,
	})

	if err := runCtx.Err(); err != nil {
		return nil, c.failRun(gen, err)
	}

	// An empty site is a terminal condition, not a crawl failure.
	if len(urls) == 0 {
		err := fmt.Errorf("%w for sitemap %s", ErrNoURLs, opts.SitemapURL)
		c.store.AppendLog(gen, LogEntry{Message: err.Error(), Type: LogError})
		return nil, err
	}

	var (
		audit   *types.SitewideAudit
		pages   *types.PageAnalysis
		sources []types.Source
	)
	competitors := opts.CompetitorURLs

	cached, err := c.lookupCache(runCtx, opts.SitemapURL, urls)
	if err != nil {
		return nil, c.failRun(gen, err)
	}

	if cached != nil {
		// Cache hit: the expensive analysis stages are already done.
		c.store.AppendLog(gen, LogEntry{
			Message: "Found cached analysis for this URL set, skipping analysis stages",
			Type:    LogInfo,
		})
		for _, id := range []StageID{StageRank, StageCompetitor, StageTechnical, StageContent} {
			c.store.MarkRunning(gen, id)
			c.store.MarkComplete(gen, id)
		}
		audit, pages, sources = cached.Audit, cached.Pages, cached.Sources
		c.store.SetAudit(gen, audit)
		c.store.SetPages(gen, pages, sources)
		if pages != nil {
			c.store.SetAnalyzedURLs(gen, len(pages.Pages))
		}
	} else {
		// Stage 2: rank and trim the URL set.
		c.store.MarkRunning(gen, StageRank)
		ranked := c.collab.Ranker.TopN(urls, opts.TopN)
		c.store.SetAnalyzedURLs(gen, len(ranked))
		NewProgressAdapter(c.store, gen, StageRank).Counts(len(ranked), len(urls), "")
		c.store.MarkComplete(gen, StageRank)
		c.store.AppendLog(gen, LogEntry{
			Message: fmt.Sprintf("Selected %d of %d URLs for analysis", len(ranked), len(urls)),
			Type:    LogSuccess,
			Stage:   StageRank,
		})

		competitors = c.resolveCompetitors(runCtx, gen, opts)

		audit, pages, sources, err = c.analyze(runCtx, gen, opts, ranked, competitors)
		if err != nil {
			return nil, c.failRun(gen, err)
		}

		// Best-effort cache write; failure never fails the run.
		if c.collab.Cache != nil {
			result := &cache.Result{Audit: audit, Pages: pages, Sources: sources}
			if err := c.collab.Cache.Put(runCtx, opts.SitemapURL, urls, result); err != nil {
				c.store.AppendLog(gen, LogEntry{
					Message: "Failed to cache analysis results: " + err.Error(),
					Type:    LogWarning,
				})
			}
		}
	}

	if err := runCtx.Err(); err != nil {
		return nil, c.failRun(gen, err)
	}

	// Stage 6: action plan.
	c.store.MarkRunning(gen, StageActionPlan)
	plan, err := c.collab.Planner.BuildActionPlan(runCtx, audit, pages, c.routeProgress(gen))
	if err != nil {
		return nil, c.failStage(gen, StageActionPlan, fmt.Errorf("action plan failed: %w", err))
	}
	c.store.SetPlan(gen, plan)
	c.store.MarkComplete(gen, StageActionPlan)

	// Stage 7: executive summary.
	c.store.MarkRunning(gen, StageSummary)
	summary, err := c.collab.Summarizer.Summarize(runCtx, audit, pages)
	if err != nil {
		return nil, c.failStage(gen, StageSummary, fmt.Errorf("executive summary failed: %w", err))
	}
	c.store.SetSummary(gen, summary)
	c.store.MarkComplete(gen, StageSummary)

	record := &types.AnalysisRecord{
		ID:             types.NewRecordID(startedAt),
		Date:           types.DisplayDate(startedAt),
		SitemapURL:     opts.SitemapURL,
		CompetitorURLs: competitors,
		Audit:          audit,
		Pages:          pages,
		Sources:        sources,
		Plan:           plan,
		Summary:        summary,
		AnalysisType:   opts.AnalysisType,
		TargetLocation: opts.TargetLocation,
	}
	if c.collab.History != nil {
		c.collab.History.Record(runCtx, record)
	}

	c.store.AppendLog(gen, LogEntry{Message: "Analysis complete", Type: LogSuccess})
	return record, nil
}

// Cancel aborts the in-flight run, if any: in-flight collaborator calls are
// interrupted, running stages are marked errored, and any results still in
// flight from the cancelled run are dropped. The errored stages and the
// cancellation warning stay visible; the reset to pending happens when the
// next Run starts. Calling Cancel with no run in flight is a no-op.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancelRun := c.cancel
	gen := c.gen
	c.cancel = nil
	c.mu.Unlock()

	if cancelRun == nil {
		return
	}
	cancelRun()
	c.store.ErrorAllRunning(gen)
	c.store.AppendLog(gen, LogEntry{Message: "Analysis cancelled", Type: LogWarning})
	// Anything the cancelled run still reports is stale from here on.
	c.store.Invalidate()
}

// release clears the cancel hook once the run it belongs to finishes.
func (c *Controller) release(gen uint64, cancelRun context.CancelFunc) {
	cancelRun()
	c.mu.Lock()
	if c.gen == gen {
		c.cancel = nil
	}
	c.mu.Unlock()
}

// lookupCache returns the cached result for this URL set, nil on a miss or
// when no cache is configured. A lookup error aborts the run.
func (c *Controller) lookupCache(ctx context.Context, sitemapURL string, urls []string) (*cache.Result, error) {
	if c.collab.Cache == nil {
		return nil, nil
	}
	cached, err := c.collab.Cache.Get(ctx, sitemapURL, urls)
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	return cached, nil
}

// resolveCompetitors returns the supplied competitor URLs, or discovers
// candidates when none were given. Discovery failure degrades to an audit
// without competitors.
func (c *Controller) resolveCompetitors(ctx context.Context, gen uint64, opts RunOptions) []string {
	if len(opts.CompetitorURLs) > 0 || c.collab.Competitors == nil {
		return opts.CompetitorURLs
	}

	c.store.AppendLog(gen, LogEntry{
		Message: "No competitors supplied, searching for candidates",
		Type:    LogInfo,
		Stage:   StageCompetitor,
	})
	found, err := c.collab.Competitors.DiscoverCompetitors(ctx, opts.SitemapURL, maxDiscoveredCompetitors)
	if err != nil {
		c.store.AppendLog(gen, LogEntry{
			Message: "Competitor discovery failed, auditing without competitors: " + err.Error(),
			Type:    LogWarning,
			Stage:   StageCompetitor,
		})
		return nil
	}
	return found
}

// tagStages routes analyzer progress tags onto pipeline stages.
var tagStages = map[analysis.ProgressTag]StageID{
	analysis.TagTechnical:  StageTechnical,
	analysis.TagCompetitor: StageCompetitor,
	analysis.TagContent:    StageContent,
	analysis.TagActionPlan: StageActionPlan,
}

// routeProgress returns a callback that delivers tagged analyzer messages to
// the stage the tag names. Unknown tags still land in the activity log.
func (c *Controller) routeProgress(gen uint64) analysis.ProgressFunc {
	return func(tag analysis.ProgressTag, message string) {
		stage, ok := tagStages[tag]
		if !ok {
			c.store.AppendLog(gen, LogEntry{Message: message, Type: LogAI})
			return
		}
		NewProgressAdapter(c.store, gen, stage).Message(message)
	}
}

// analyze fans out the sitewide audit and the page analysis, joining on both.
// The first failure cancels the sibling and is returned.
func (c *Controller) analyze(ctx context.Context, gen uint64, opts RunOptions, ranked, competitors []string) (*types.SitewideAudit, *types.PageAnalysis, []types.Source, error) {
	// The sitewide audit covers both the technical and competitor stages;
	// without competitor URLs the competitor stage simply yields no gaps.
	c.store.MarkRunning(gen, StageTechnical)
	c.store.MarkRunning(gen, StageCompetitor)
	c.store.MarkRunning(gen, StageContent)

	onProgress := c.routeProgress(gen)

	var (
		audit   *types.SitewideAudit
		pages   *types.PageAnalysis
		sources []types.Source
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := c.collab.Auditor.AuditSite(gctx, analysis.AuditRequest{
			SitemapURL:     opts.SitemapURL,
			URLs:           ranked,
			CompetitorURLs: competitors,
			AnalysisType:   opts.AnalysisType,
			TargetLocation: opts.TargetLocation,
		}, onProgress)
		if err != nil {
			return fmt.Errorf("sitewide audit failed: %w", err)
		}
		audit = result
		return nil
	})
	g.Go(func() error {
		result, src, err := c.collab.Pages.AnalyzePages(gctx, analysis.PageRequest{
			URLs:           ranked,
			AnalysisType:   opts.AnalysisType,
			TargetLocation: opts.TargetLocation,
		}, onProgress)
		if err != nil {
			return fmt.Errorf("page analysis failed: %w", err)
		}
		pages, sources = result, src
		return nil
	})
	// Results are merged only after both branches succeed; one branch
	// failing must not leave its sibling's stage complete.
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	c.store.SetAudit(gen, audit)
	c.store.SetPages(gen, pages, sources)
	c.store.MarkComplete(gen, StageTechnical)
	c.store.MarkComplete(gen, StageCompetitor)
	c.store.MarkComplete(gen, StageContent)
	return audit, pages, sources, nil
}

// failStage records err against a specific stage, errors any other running
// stages, and returns err for the caller to propagate.
func (c *Controller) failStage(gen uint64, stage StageID, err error) error {
	c.store.MarkError(gen, stage)
	return c.failRun(gen, err)
}

// failRun errors every running stage and appends the failure to the log.
func (c *Controller) failRun(gen uint64, err error) error {
	c.store.ErrorAllRunning(gen)
	c.store.AppendLog(gen, LogEntry{Message: err.Error(), Type: LogError})
	return err
}
