package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jonathan/site-auditor/internal/fetch"
	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/schemas"
	"github.com/jonathan/site-auditor/internal/types"
)

// PageRequest carries the inputs for page-level SEO analysis.
type PageRequest struct {
	URLs           []string
	AnalysisType   types.AnalysisType
	TargetLocation string
	ExtraContext   string
}

// AnalyzePages samples the top-ranked pages, extracts on-page signals and
// asks the model for per-page findings. Returns the analysis plus grounding
// sources (sampled URLs and any provider citations).
func (a *Analyzer) AnalyzePages(ctx context.Context, req PageRequest, onProgress ProgressFunc) (*types.PageAnalysis, []types.Source, error) {
	sample := req.URLs
	if len(sample) > a.maxSampled {
		sample = sample[:a.maxSampled]
	}

	emit(onProgress, TagContent, fmt.Sprintf("Sampling %d of %d pages for on-page signals", len(sample), len(req.URLs)))

	signals := make([]pageSignals, 0, len(sample))
	var sources []types.Source
	for i, pageURL := range sample {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		emit(onProgress, TagContent, fmt.Sprintf("Inspecting page %d/%d: %s", i+1, len(sample), pageURL))

		sig, err := a.fetchSignals(ctx, pageURL)
		if err != nil {
			// A page that fails to fetch is a finding, not a run failure
			if a.verbose {
				log.Printf("[PAGES] skipping %s: %v", pageURL, err)
			}
			signals = append(signals, pageSignals{URL: pageURL, FetchError: err.Error()})
			continue
		}
		signals = append(signals, *sig)
		sources = append(sources, types.Source{URL: pageURL, Title: sig.Title})
	}

	emit(onProgress, TagContent, "Analyzing page content and metadata")

	prompt := buildPagePrompt(req, signals)
	raw, citations, err := a.client.GenerateJSONWithSources(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, nil, fmt.Errorf("page analysis failed: %w", err)
	}

	if err := schemas.Validate(schemas.PageAnalysis, raw); err != nil {
		return nil, nil, fmt.Errorf("page analysis returned invalid JSON: %w", err)
	}
	var pages types.PageAnalysis
	if err := json.Unmarshal([]byte(raw), &pages); err != nil {
		return nil, nil, fmt.Errorf("failed to decode page analysis: %w", err)
	}

	for _, c := range citations {
		sources = append(sources, types.Source{URL: c.URI, Title: c.Title})
	}

	emit(onProgress, TagContent, fmt.Sprintf("Page analysis complete: %d pages reviewed", len(pages.Pages)))

	return &pages, sources, nil
}

// pageSignals is the per-page evidence handed to the model.
type pageSignals struct {
	URL             string   `json:"url"`
	Title           string   `json:"title,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
	Canonical       string   `json:"canonical,omitempty"`
	Robots          string   `json:"robots,omitempty"`
	H1s             []string `json:"h1s,omitempty"`
	WordCount       int      `json:"word_count,omitempty"`
	Excerpt         string   `json:"excerpt,omitempty"`
	FetchError      string   `json:"fetch_error,omitempty"`
}

const excerptLimit = 1200

func (a *Analyzer) fetchSignals(ctx context.Context, pageURL string) (*pageSignals, error) {
	result, err := fetch.URL(ctx, pageURL, a.fetchOpts)
	if err != nil {
		return nil, err
	}
	extracted, err := fetch.ExtractPageSignals(result.Body)
	if err != nil {
		return nil, err
	}

	// JS-rendered pages come back nearly empty over plain HTTP
	if a.useBrowser && fetch.ShouldUseBrowser(extracted.Text) {
		rendered, berr := fetch.WithBrowser(ctx, pageURL, a.fetchOpts.Timeout, a.verbose)
		if berr == nil {
			if re, rerr := fetch.ExtractPageSignals(rendered); rerr == nil {
				extracted = re
			}
		} else if a.verbose {
			log.Printf("[PAGES] browser render failed for %s: %v", pageURL, berr)
		}
	}

	excerpt := extracted.Text
	if len(excerpt) > excerptLimit {
		excerpt = excerpt[:excerptLimit]
	}

	return &pageSignals{
		URL:             pageURL,
		Title:           extracted.Title,
		MetaDescription: extracted.MetaDescription,
		Canonical:       extracted.Canonical,
		Robots:          extracted.Robots,
		H1s:             extracted.H1s,
		WordCount:       extracted.WordCount,
		Excerpt:         excerpt,
	}, nil
}
