package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-auditor/internal/analysis"
	"github.com/jonathan/site-auditor/internal/cache"
	"github.com/jonathan/site-auditor/internal/crawling"
	"github.com/jonathan/site-auditor/internal/history"
	"github.com/jonathan/site-auditor/internal/types"
)

// --- fakes ---

type fakeCrawler struct {
	urls    []string
	err     error
	started chan struct{} // closed on entry when non-nil
	release chan struct{} // blocks until closed (or ctx) when non-nil
	calls   int32
}

func (f *fakeCrawler) Crawl(ctx context.Context, _ string, onProgress crawling.ProgressFunc) ([]string, error) {
	// Only the first call blocks, so a superseding run proceeds normally.
	if atomic.AddInt32(&f.calls, 1) == 1 {
		if f.started != nil {
			close(f.started)
		}
		if f.release != nil {
			select {
			case <-f.release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if onProgress != nil {
		for i, u := range f.urls {
			onProgress(i+1, len(f.urls), u)
		}
	}
	return f.urls, nil
}

type fakeAuditor struct {
	audit *types.SitewideAudit
	err   error
	calls int32
}

func (f *fakeAuditor) AuditSite(ctx context.Context, req analysis.AuditRequest, onProgress analysis.ProgressFunc) (*types.SitewideAudit, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	if onProgress != nil {
		onProgress(analysis.TagTechnical, "auditing "+req.SitemapURL)
		if len(req.CompetitorURLs) > 0 {
			onProgress(analysis.TagCompetitor, "comparing competitors")
		}
	}
	return f.audit, nil
}

type fakePages struct {
	pages   *types.PageAnalysis
	sources []types.Source
	err     error
	block   bool // wait for ctx cancellation
	calls   int32
}

func (f *fakePages) AnalyzePages(ctx context.Context, _ analysis.PageRequest, onProgress analysis.ProgressFunc) (*types.PageAnalysis, []types.Source, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	if onProgress != nil {
		onProgress(analysis.TagContent, "reviewing pages")
	}
	return f.pages, f.sources, nil
}

type fakePlanner struct {
	plan  *types.ActionPlan
	err   error
	calls int32
}

func (f *fakePlanner) BuildActionPlan(_ context.Context, audit *types.SitewideAudit, pages *types.PageAnalysis, _ analysis.ProgressFunc) (*types.ActionPlan, error) {
	atomic.AddInt32(&f.calls, 1)
	if audit == nil || pages == nil {
		return nil, errors.New("planner called without inputs")
	}
	return f.plan, f.err
}

type fakeSummarizer struct {
	summary *types.ExecutiveSummary
	err     error
}

func (f *fakeSummarizer) Summarize(_ context.Context, audit *types.SitewideAudit, pages *types.PageAnalysis) (*types.ExecutiveSummary, error) {
	if audit == nil || pages == nil {
		return nil, errors.New("summarizer called without inputs")
	}
	return f.summary, f.err
}

type fakeCompetitorFinder struct {
	urls []string
	err  error
}

func (f *fakeCompetitorFinder) DiscoverCompetitors(context.Context, string, int) ([]string, error) {
	return f.urls, f.err
}

type fakeCache struct {
	result *cache.Result
	getErr error
	putErr error
	gets   int32
	puts   int32
}

func (f *fakeCache) Get(context.Context, string, []string) (*cache.Result, error) {
	atomic.AddInt32(&f.gets, 1)
	return f.result, f.getErr
}

func (f *fakeCache) Put(context.Context, string, []string, *cache.Result) error {
	atomic.AddInt32(&f.puts, 1)
	return f.putErr
}

// --- helpers ---

type fixture struct {
	crawler    *fakeCrawler
	auditor    *fakeAuditor
	pages      *fakePages
	planner    *fakePlanner
	summarizer *fakeSummarizer
	cache      *fakeCache
	controller *Controller
}

func newFixture() *fixture {
	f := &fixture{
		crawler: &fakeCrawler{urls: []string{
			"https://example.com/",
			"https://example.com/pricing",
			"https://example.com/blog/seo-basics",
		}},
		auditor: &fakeAuditor{audit: &types.SitewideAudit{
			Summary:     "mostly healthy",
			HealthScore: 82,
			TechnicalFindings: []types.Finding{
				{Title: "Missing canonical tags", Severity: "medium"},
			},
		}},
		pages: &fakePages{
			pages: &types.PageAnalysis{Pages: []types.PageReport{
				{URL: "https://example.com/", Score: 74},
				{URL: "https://example.com/pricing", Score: 68},
			}},
			sources: []types.Source{{URL: "https://example.com/", Title: "Example"}},
		},
		planner: &fakePlanner{plan: &types.ActionPlan{
			Items: []types.ActionItem{{Title: "Add canonicals", Priority: "p1"}},
		}},
		summarizer: &fakeSummarizer{summary: &types.ExecutiveSummary{
			Headline:     "Solid foundation, fixable gaps",
			OverallScore: 78,
		}},
		cache: &fakeCache{},
	}
	f.controller = NewController(NewStore(), Collaborators{
		Crawler:    f.crawler,
		Ranker:     RankerFunc(func(urls []string, n int) []string { return urls }),
		Auditor:    f.auditor,
		Pages:      f.pages,
		Planner:    f.planner,
		Summarizer: f.summarizer,
		Cache:      f.cache,
	})
	return f
}

func defaultOpts() RunOptions {
	return RunOptions{
		SitemapURL:     "https://example.com/sitemap.xml",
		CompetitorURLs: []string{"https://rival.com"},
	}
}

func stageByID(t *testing.T, snap Snapshot, id StageID) Stage {
	t.Helper()
	for _, stage := range snap.Stages {
		if stage.ID == id {
			return stage
		}
	}
	t.Fatalf("stage %s not in snapshot", id)
	return Stage{}
}

// --- tests ---

func TestRun_SuccessPath(t *testing.T) {
	f := newFixture()

	record, err := f.controller.Run(context.Background(), defaultOpts())
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "https://example.com/sitemap.xml", record.SitemapURL)
	assert.Equal(t, types.AnalysisTypeFull, record.AnalysisType)
	assert.Same(t, f.auditor.audit, record.Audit)
	assert.Same(t, f.planner.plan, record.Plan)
	assert.Same(t, f.summarizer.summary, record.Summary)

	snap := f.controller.Store().Snapshot()
	for _, stage := range snap.Stages {
		assert.Equal(t, StatusComplete, stage.Status, "stage %s", stage.ID)
		assert.Equal(t, 100.0, stage.Progress, "stage %s", stage.ID)
		assert.False(t, stage.StartTime.IsZero(), "stage %s", stage.ID)
		assert.False(t, stage.EndTime.IsZero(), "stage %s", stage.ID)
	}
	assert.Equal(t, 3, snap.Partials.DiscoveredURLs)
	assert.Equal(t, 3, snap.Partials.AnalyzedURLs)

	// Cached for next time
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.cache.puts))
}

func TestRun_ActionPlanStartsAfterFanOutJoins(t *testing.T) {
	f := newFixture()

	_, err := f.controller.Run(context.Background(), defaultOpts())
	require.NoError(t, err)

	snap := f.controller.Store().Snapshot()
	planStart := stageByID(t, snap, StageActionPlan).StartTime
	for _, id := range []StageID{StageCompetitor, StageTechnical, StageContent} {
		end := stageByID(t, snap, id).EndTime
		assert.False(t, planStart.Before(end), "actionplan started before %s finished", id)
	}
	summaryStart := stageByID(t, snap, StageSummary).StartTime
	assert.False(t, summaryStart.Before(stageByID(t, snap, StageActionPlan).EndTime))
}

func TestRun_AllStagesCompleteWithoutCompetitors(t *testing.T) {
	f := newFixture()

	opts := defaultOpts()
	opts.CompetitorURLs = nil
	record, err := f.controller.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, record.CompetitorURLs)

	snap := f.controller.Store().Snapshot()
	for _, stage := range snap.Stages {
		assert.Equal(t, StatusComplete, stage.Status, "stage %s", stage.ID)
	}
}

func TestRun_DiscoversCompetitorsWhenNoneSupplied(t *testing.T) {
	f := newFixture()
	f.controller.collab.Competitors = &fakeCompetitorFinder{urls: []string{"https://found-rival.com"}}

	opts := defaultOpts()
	opts.CompetitorURLs = nil
	record, err := f.controller.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://found-rival.com"}, record.CompetitorURLs)

	snap := f.controller.Store().Snapshot()
	assert.Equal(t, StatusComplete, stageByID(t, snap, StageCompetitor).Status)
}

func TestRun_CompetitorDiscoveryFailureDegrades(t *testing.T) {
	f := newFixture()
	f.controller.collab.Competitors = &fakeCompetitorFinder{err: errors.New("quota exceeded")}

	opts := defaultOpts()
	opts.CompetitorURLs = nil
	record, err := f.controller.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, record.CompetitorURLs)

	snap := f.controller.Store().Snapshot()
	assert.Equal(t, StatusComplete, stageByID(t, snap, StageCompetitor).Status)

	var warned bool
	for _, entry := range snap.Log {
		if entry.Type == LogWarning {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning about failed discovery")
}

func TestRun_CacheHitSkipsAnalysisStages(t *testing.T) {
	f := newFixture()
	f.cache.result = &cache.Result{
		Audit: &types.SitewideAudit{Summary: "cached", HealthScore: 90},
		Pages: &types.PageAnalysis{Pages: []types.PageReport{{URL: "https://example.com/"}}},
	}

	// Freeze the clock so the skipped stages demonstrably take zero time
	frozen := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.controller.store.clock = func() time.Time { return frozen }

	record, err := f.controller.Run(context.Background(), defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, "cached", record.Audit.Summary)

	// The expensive analyzers never ran, and nothing was re-cached
	assert.Zero(t, atomic.LoadInt32(&f.auditor.calls))
	assert.Zero(t, atomic.LoadInt32(&f.pages.calls))
	assert.Zero(t, atomic.LoadInt32(&f.cache.puts))

	// Plan and summary still run on the cached inputs
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.planner.calls))

	snap := f.controller.Store().Snapshot()
	for _, id := range []StageID{StageRank, StageCompetitor, StageTechnical, StageContent} {
		stage := stageByID(t, snap, id)
		assert.Equal(t, StatusComplete, stage.Status, "stage %s", id)
		assert.Equal(t, time.Duration(0), stage.EndTime.Sub(stage.StartTime), "stage %s", id)
	}
}

func TestRun_CacheLookupFailureAborts(t *testing.T) {
	f := newFixture()
	f.cache.getErr = errors.New("connection refused")

	_, err := f.controller.Run(context.Background(), defaultOpts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache lookup failed")
	assert.Zero(t, atomic.LoadInt32(&f.auditor.calls))
}

func TestRun_CacheWriteFailureIsBestEffort(t *testing.T) {
	f := newFixture()
	f.cache.putErr = errors.New("disk full")

	_, err := f.controller.Run(context.Background(), defaultOpts())
	require.NoError(t, err)

	var warned bool
	for _, entry := range f.controller.Store().Snapshot().Log {
		if entry.Type == LogWarning {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning about the failed cache write")
}

func TestRun_EmptyCrawlIsTerminal(t *testing.T) {
	f := newFixture()
	f.crawler.urls = nil

	_, err := f.controller.Run(context.Background(), defaultOpts())
	require.ErrorIs(t, err, ErrNoURLs)

	snap := f.controller.Store().Snapshot()
	assert.Equal(t, StatusComplete, stageByID(t, snap, StageCrawl).Status)
	for _, id := range []StageID{StageRank, StageCompetitor, StageTechnical, StageContent, StageActionPlan, StageSummary} {
		assert.Equal(t, StatusPending, stageByID(t, snap, id).Status, "stage %s", id)
	}
	assert.Zero(t, atomic.LoadInt32(&f.auditor.calls))
}

func TestRun_ValidationFailureBeforeAnyStage(t *testing.T) {
	f := newFixture()

	_, err := f.controller.Run(context.Background(), RunOptions{SitemapURL: "not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run options")

	assert.Zero(t, atomic.LoadInt32(&f.crawler.calls))
	for _, stage := range f.controller.Store().Snapshot().Stages {
		assert.Equal(t, StatusPending, stage.Status)
	}
}

func TestRun_FirstFailureAbortsAndKeepsCompletedStages(t *testing.T) {
	f := newFixture()
	f.auditor.err = errors.New("model overloaded")
	f.pages.block = true // still in flight when the audit fails

	_, err := f.controller.Run(context.Background(), defaultOpts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sitewide audit failed")

	snap := f.controller.Store().Snapshot()
	assert.Equal(t, StatusComplete, stageByID(t, snap, StageCrawl).Status)
	assert.Equal(t, StatusComplete, stageByID(t, snap, StageRank).Status)
	assert.Equal(t, StatusError, stageByID(t, snap, StageTechnical).Status)
	assert.Equal(t, StatusError, stageByID(t, snap, StageContent).Status)
	assert.Equal(t, StatusPending, stageByID(t, snap, StageActionPlan).Status)

	assert.Zero(t, atomic.LoadInt32(&f.planner.calls))
	assert.Zero(t, atomic.LoadInt32(&f.cache.puts))
}

func TestRun_PageFailureErrorsWholeFanOut(t *testing.T) {
	f := newFixture()
	f.pages.err = errors.New("model overloaded")

	_, err := f.controller.Run(context.Background(), defaultOpts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page analysis failed")

	// Even when the audit branch succeeded, its stages must not show
	// complete after the join failed
	snap := f.controller.Store().Snapshot()
	assert.Equal(t, StatusError, stageByID(t, snap, StageTechnical).Status)
	assert.Equal(t, StatusError, stageByID(t, snap, StageCompetitor).Status)
	assert.Equal(t, StatusError, stageByID(t, snap, StageContent).Status)
	assert.Nil(t, snap.Partials.Audit)
	assert.Zero(t, atomic.LoadInt32(&f.planner.calls))
}

func TestRun_SummaryFailure(t *testing.T) {
	f := newFixture()
	f.summarizer.err = errors.New("model overloaded")

	_, err := f.controller.Run(context.Background(), defaultOpts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executive summary failed")

	snap := f.controller.Store().Snapshot()
	assert.Equal(t, StatusComplete, stageByID(t, snap, StageActionPlan).Status)
	assert.Equal(t, StatusError, stageByID(t, snap, StageSummary).Status)
	// Results produced before the failure survive
	assert.NotNil(t, snap.Partials.Audit)
	assert.NotNil(t, snap.Partials.Plan)
}

func TestRun_RecordsHistory(t *testing.T) {
	f := newFixture()
	recorder := history.NewRecorder(context.Background(), history.NewMemoryStore())
	f.controller.collab.History = recorder

	_, err := f.controller.Run(context.Background(), defaultOpts())
	require.NoError(t, err)

	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "https://example.com/sitemap.xml", records[0].SitemapURL)
}

func TestCancel_InterruptsRunAndMarksError(t *testing.T) {
	f := newFixture()
	f.crawler.started = make(chan struct{})
	f.crawler.release = make(chan struct{}) // held open: only cancel unblocks

	done := make(chan error, 1)
	go func() {
		_, err := f.controller.Run(context.Background(), defaultOpts())
		done <- err
	}()

	<-f.crawler.started
	f.controller.Cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	snap := f.controller.Store().Snapshot()
	assert.Equal(t, StatusError, stageByID(t, snap, StageCrawl).Status)

	var warnings int
	for _, entry := range snap.Log {
		if entry.Type == LogWarning {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestCancel_IsIdempotent(t *testing.T) {
	f := newFixture()
	f.crawler.started = make(chan struct{})
	f.crawler.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.controller.Run(context.Background(), defaultOpts())
		done <- err
	}()

	<-f.crawler.started
	f.controller.Cancel()
	f.controller.Cancel()
	f.controller.Cancel()
	<-done

	var warnings int
	for _, entry := range f.controller.Store().Snapshot().Log {
		if entry.Type == LogWarning {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings, "repeated cancels must not repeat the warning")
}

func TestCancel_WithNoRunInFlightIsANoOp(t *testing.T) {
	f := newFixture()
	f.controller.Cancel()
	assert.Empty(t, f.controller.Store().Snapshot().Log)
}

func TestCancel_StaleResultsDropped(t *testing.T) {
	f := newFixture()
	f.crawler.started = make(chan struct{})
	f.crawler.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.controller.Run(context.Background(), defaultOpts())
		done <- err
	}()

	<-f.crawler.started
	f.controller.Cancel()

	// Let the crawler "succeed" after cancellation; its result is stale
	close(f.crawler.release)
	<-done

	snap := f.controller.Store().Snapshot()
	assert.Equal(t, StatusError, stageByID(t, snap, StageCrawl).Status)
	assert.Zero(t, snap.Partials.DiscoveredURLs)
}

func TestRun_NewRunSupersedesPrevious(t *testing.T) {
	f := newFixture()
	f.crawler.started = make(chan struct{})
	f.crawler.release = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.controller.Run(context.Background(), defaultOpts())
		firstDone <- err
	}()
	<-f.crawler.started

	// Second run cancels the first and owns the store from here
	record, err := f.controller.Run(context.Background(), defaultOpts())
	require.NoError(t, err)
	require.NotNil(t, record)

	require.Error(t, <-firstDone)

	snap := f.controller.Store().Snapshot()
	for _, stage := range snap.Stages {
		assert.Equal(t, StatusComplete, stage.Status, "stage %s", stage.ID)
	}
}
