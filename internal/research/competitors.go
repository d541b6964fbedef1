// Package research discovers competitor sites for a target domain using
// Google Custom Search. Discovery is optional: the audit proceeds without
// competitors when keys are absent or every query fails.
package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Researcher handles external competitor discovery
type Researcher struct {
	svc *customsearch.Service
	cx  string
}

// NewResearcher creates a new Researcher instance
func NewResearcher(ctx context.Context, apiKey string, cx string) (*Researcher, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &Researcher{svc: svc, cx: cx}, nil
}

// DiscoverCompetitors finds candidate competitor sites for the target.
// Results exclude the target's own domain and are capped at limit.
func (r *Researcher) DiscoverCompetitors(ctx context.Context, targetURL string, limit int) ([]string, error) {
	targetDomain := ExtractDomain(targetURL)
	if targetDomain == "" {
		return nil, fmt.Errorf("cannot derive domain from %s", targetURL)
	}
	if limit <= 0 {
		limit = 3
	}

	queries := []string{
		fmt.Sprintf("%s competitors", targetDomain),
		fmt.Sprintf("sites like %s", targetDomain),
		fmt.Sprintf("%s alternatives", targetDomain),
	}

	seen := map[string]bool{targetDomain: true}
	var competitors []string
	for _, q := range queries {
		resp, err := r.svc.Cse.List().Context(ctx).Cx(r.cx).Q(q).Num(5).Do()
		if err != nil {
			continue // skip failed queries, others may still succeed
		}
		for _, item := range resp.Items {
			domain := ExtractDomain(item.Link)
			if domain == "" || seen[domain] {
				continue
			}
			seen[domain] = true
			competitors = append(competitors, "https://"+domain)
			if len(competitors) >= limit {
				return competitors, nil
			}
		}
	}

	return competitors, nil
}

// ExtractDomain returns the registrable host of a URL, without a www prefix.
func ExtractDomain(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}
