package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/site-auditor/internal/analysis"
	"github.com/jonathan/site-auditor/internal/cache"
	"github.com/jonathan/site-auditor/internal/config"
	"github.com/jonathan/site-auditor/internal/crawling"
	"github.com/jonathan/site-auditor/internal/db"
	"github.com/jonathan/site-auditor/internal/fetch"
	"github.com/jonathan/site-auditor/internal/history"
	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/observability"
	"github.com/jonathan/site-auditor/internal/pipeline"
	"github.com/jonathan/site-auditor/internal/ranking"
	"github.com/jonathan/site-auditor/internal/research"
	"github.com/jonathan/site-auditor/internal/types"
)

var analyzeCommand = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full SEO analysis pipeline against a sitemap",
	Long: `Runs the analysis pipeline end-to-end: crawl -> rank -> audit + page analysis -> action plan -> executive summary.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: analyzeCmd,
}

var (
	analyzeConfigPath     string
	analyzeSitemap        string
	analyzeCompetitors    []string
	analyzeType           string
	analyzeLocation       string
	analyzeTopN           int
	analyzeSampledPages   int
	analyzeAPIKey         string
	analyzeSearchKey      string
	analyzeSearchEngineID string
	analyzeUseBrowser     bool
	analyzeVerbose        bool
	analyzeDatabaseURL    string
)

func init() {
	// Config file flag (processed first)
	analyzeCommand.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	analyzeCommand.Flags().StringVarP(&analyzeSitemap, "sitemap", "s", "", "Sitemap URL of the site to analyze")
	analyzeCommand.Flags().StringSliceVarP(&analyzeCompetitors, "competitor", "c", nil, "Competitor site URL (repeatable; auto-discovered if omitted)")
	analyzeCommand.Flags().StringVarP(&analyzeType, "type", "t", "", "Analysis type: full, technical or content")
	analyzeCommand.Flags().StringVarP(&analyzeLocation, "location", "l", "", "Geographic focus for local SEO")
	analyzeCommand.Flags().IntVar(&analyzeTopN, "top-n", 0, "Maximum URLs kept after ranking")
	analyzeCommand.Flags().IntVar(&analyzeSampledPages, "max-sampled-pages", 0, "Pages fetched for on-page signal extraction")
	analyzeCommand.Flags().BoolVar(&analyzeUseBrowser, "use-browser", false, "Use headless browser for JS-rendered sites (requires Chrome)")
	analyzeCommand.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print detailed debug information")

	// API keys can be passed as flags, or read from env vars
	analyzeCommand.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	analyzeCommand.Flags().StringVar(&analyzeSearchKey, "search-api-key", "", "Custom Search API Key (optional, defaults to SEARCH_API_KEY env var)")
	analyzeCommand.Flags().StringVar(&analyzeSearchEngineID, "search-engine-id", "", "Custom Search engine id (optional, defaults to SEARCH_ENGINE_ID env var)")

	// Database URL for cache and history persistence
	analyzeCommand.Flags().StringVar(&analyzeDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(analyzeCommand)
}

func analyzeCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	collab, cleanup, err := buildCollaborators(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	controller := pipeline.NewController(pipeline.NewStore(), collab)

	// A SIGINT cancels the run cleanly instead of killing the process mid-write
	go func() {
		<-ctx.Done()
		controller.Cancel()
	}()

	record, err := controller.Run(ctx, pipeline.RunOptions{
		SitemapURL:     cfg.SitemapURL,
		CompetitorURLs: cfg.CompetitorURLs,
		AnalysisType:   types.AnalysisType(cfg.AnalysisType),
		TargetLocation: cfg.TargetLocation,
		TopN:           cfg.TopN,
	})
	if err != nil {
		if cfg.Verbose {
			observability.NewPrinter(os.Stdout).PrintStages(controller.Store().Snapshot())
		}
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		printer.PrintStages(controller.Store().Snapshot())
	}
	printer.PrintSummary(record.Summary)
	printer.PrintAudit(record.Audit)
	printer.PrintPageAnalysis(record.Pages)
	printer.PrintActionPlan(record.Plan)
	if cfg.Verbose {
		printer.PrintSources(record.Sources)
	}
	return nil
}

// resolveConfig layers config file values, CLI flag overrides, defaults and
// environment fallbacks, then validates the result.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if analyzeConfigPath != "" {
		loadedCfg, err := config.LoadConfig(analyzeConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loadedCfg
		if analyzeVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", analyzeConfigPath)
		}
	}

	// CLI overrides only apply when the flag was explicitly set
	if cmd.Flags().Changed("sitemap") {
		cfg.SitemapURL = analyzeSitemap
	}
	if cmd.Flags().Changed("competitor") {
		cfg.CompetitorURLs = analyzeCompetitors
	}
	if cmd.Flags().Changed("type") {
		cfg.AnalysisType = analyzeType
	}
	if cmd.Flags().Changed("location") {
		cfg.TargetLocation = analyzeLocation
	}
	if cmd.Flags().Changed("top-n") {
		cfg.TopN = analyzeTopN
	}
	if cmd.Flags().Changed("max-sampled-pages") {
		cfg.MaxSampledPages = analyzeSampledPages
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = analyzeAPIKey
	}
	if cmd.Flags().Changed("search-api-key") {
		cfg.SearchAPIKey = analyzeSearchKey
	}
	if cmd.Flags().Changed("search-engine-id") {
		cfg.SearchEngineID = analyzeSearchEngineID
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = analyzeUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = analyzeVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = analyzeDatabaseURL
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		AnalysisType:    string(types.AnalysisTypeFull),
		TopN:            ranking.DefaultTopN,
		MaxSampledPages: 10,
	})

	if cfg.SitemapURL == "" {
		return cfg, fmt.Errorf("--sitemap must be provided (via flag or config)")
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	if cfg.SearchAPIKey == "" {
		cfg.SearchAPIKey = os.Getenv("SEARCH_API_KEY")
	}
	if cfg.SearchEngineID == "" {
		cfg.SearchEngineID = os.Getenv("SEARCH_ENGINE_ID")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildCollaborators wires the production collaborator set from config.
// The returned cleanup closes the LLM client and database pool.
func buildCollaborators(ctx context.Context, cfg config.Config) (pipeline.Collaborators, func(), error) {
	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return pipeline.Collaborators{}, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	analyzer := analysis.NewAnalyzer(client,
		analysis.WithMaxSampledPages(cfg.MaxSampledPages),
		analysis.WithBrowserFallback(cfg.UseBrowser),
		analysis.WithVerbose(cfg.Verbose),
	)

	collab := pipeline.Collaborators{
		Crawler:    crawling.NewCrawler(fetch.DefaultOptions()),
		Ranker:     pipeline.RankerFunc(ranking.TopN),
		Auditor:    analyzer,
		Pages:      analyzer,
		Planner:    analyzer,
		Summarizer: analyzer,
	}

	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			client.Close()
			return pipeline.Collaborators{}, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		collab.Cache = cache.NewPostgres(database, db.DefaultCacheTTL)
		collab.History = history.NewRecorder(ctx, history.NewPostgresStore(database))
	} else {
		collab.Cache = cache.NewMemory(db.DefaultCacheTTL)
		collab.History = history.NewRecorder(ctx, history.NewMemoryStore())
	}

	if cfg.SearchAPIKey != "" && cfg.SearchEngineID != "" {
		researcher, err := research.NewResearcher(ctx, cfg.SearchAPIKey, cfg.SearchEngineID)
		if err != nil {
			if cfg.Verbose {
				_, _ = fmt.Fprintf(os.Stderr, "Warning: competitor discovery unavailable: %v\n", err)
			}
		} else {
			collab.Competitors = researcher
		}
	}

	cleanup := func() {
		client.Close()
		if database != nil {
			database.Close()
		}
	}
	return collab, cleanup, nil
}
