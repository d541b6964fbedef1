// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/site-auditor/internal/types"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Analysis target
	SitemapURL     string   `json:"sitemap_url,omitempty"`     // Sitemap of the site to analyze
	CompetitorURLs []string `json:"competitor_urls,omitempty"` // Competitor sites for gap analysis
	AnalysisType   string   `json:"analysis_type,omitempty"`   // full, technical or content
	TargetLocation string   `json:"target_location,omitempty"` // Geographic focus for local SEO

	// Limits
	TopN            int `json:"top_n,omitempty"`             // Maximum URLs kept after ranking
	MaxSampledPages int `json:"max_sampled_pages,omitempty"` // Pages fetched for on-page signals

	// Behavior
	APIKey         string `json:"api_key,omitempty"`          // Gemini API key
	SearchAPIKey   string `json:"search_api_key,omitempty"`   // Custom Search API key
	SearchEngineID string `json:"search_engine_id,omitempty"` // Custom Search engine id
	UseBrowser     bool   `json:"use_browser,omitempty"`      // Use headless browser for JS-rendered sites
	Verbose        bool   `json:"verbose,omitempty"`          // Print detailed debug information
	DatabaseURL    string `json:"database_url,omitempty"`     // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	switch types.AnalysisType(c.AnalysisType) {
	case "", types.AnalysisTypeFull, types.AnalysisTypeTechnical, types.AnalysisTypeContent:
	default:
		return fmt.Errorf("config error: 'analysis_type' must be full, technical or content")
	}

	// Validate numeric ranges
	if c.TopN < 0 {
		return fmt.Errorf("config error: 'top_n' must be non-negative")
	}
	if c.MaxSampledPages < 0 {
		return fmt.Errorf("config error: 'max_sampled_pages' must be non-negative")
	}

	// The search credentials only work as a pair
	if (c.SearchAPIKey == "") != (c.SearchEngineID == "") {
		return fmt.Errorf("config error: 'search_api_key' and 'search_engine_id' must be set together")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.SitemapURL == "" {
		result.SitemapURL = defaults.SitemapURL
	}
	if len(result.CompetitorURLs) == 0 {
		result.CompetitorURLs = defaults.CompetitorURLs
	}
	if result.AnalysisType == "" {
		result.AnalysisType = defaults.AnalysisType
	}
	if result.TargetLocation == "" {
		result.TargetLocation = defaults.TargetLocation
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.SearchAPIKey == "" {
		result.SearchAPIKey = defaults.SearchAPIKey
	}
	if result.SearchEngineID == "" {
		result.SearchEngineID = defaults.SearchEngineID
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Int fields: use default if zero
	if result.TopN == 0 {
		result.TopN = defaults.TopN
	}
	if result.MaxSampledPages == 0 {
		result.MaxSampledPages = defaults.MaxSampledPages
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
