// Package crawling discovers a site's URL set from its XML sitemap.
// Sitemap indexes are followed recursively up to a fixed depth; HTML sitemap
// pages fall back to anchor extraction.
package crawling

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/site-auditor/internal/fetch"
)

// ProgressFunc receives absolute discovery counts as URLs arrive. The final
// URL count is unknowable mid-crawl, so total is always 0; callers must
// treat both values as idempotent overwrites.
type ProgressFunc func(discovered, total int, currentURL string)

const (
	// MaxIndexDepth bounds recursion through nested sitemap indexes.
	MaxIndexDepth = 3
	// DefaultMaxURLs caps the discovered set for very large sites.
	DefaultMaxURLs = 5000
)

// Crawler discovers URLs from a sitemap root.
type Crawler struct {
	options *fetch.Options
	maxURLs int
}

// NewCrawler creates a Crawler with the given fetch options.
// A nil options value uses fetch defaults.
func NewCrawler(options *fetch.Options) *Crawler {
	return &Crawler{
		options: options,
		maxURLs: DefaultMaxURLs,
	}
}

// WithMaxURLs overrides the discovery cap.
func (c *Crawler) WithMaxURLs(n int) *Crawler {
	if n > 0 {
		c.maxURLs = n
	}
	return c
}

// urlSet mirrors the <urlset> element of the sitemap protocol.
type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// sitemapIndex mirrors the <sitemapindex> element.
type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// Crawl fetches the sitemap at sitemapURL and returns the deduplicated URL
// set it declares, reporting progress for each discovered URL.
func (c *Crawler) Crawl(ctx context.Context, sitemapURL string, onProgress ProgressFunc) ([]string, error) {
	seen := make(map[string]bool)
	var urls []string

	add := func(loc string) {
		loc = strings.TrimSpace(loc)
		if loc == "" || seen[loc] || len(urls) >= c.maxURLs {
			return
		}
		seen[loc] = true
		urls = append(urls, loc)
		if onProgress != nil {
			onProgress(len(urls), 0, loc)
		}
	}

	if err := c.walk(ctx, sitemapURL, 0, add); err != nil {
		return nil, err
	}
	return urls, nil
}

// walk fetches one sitemap document and dispatches on its shape.
func (c *Crawler) walk(ctx context.Context, loc string, depth int, add func(string)) error {
	if depth > MaxIndexDepth {
		return fmt.Errorf("sitemap index nesting exceeds depth %d at %s", MaxIndexDepth, loc)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := fetch.URL(ctx, loc, c.options)
	if err != nil {
		return fmt.Errorf("failed to fetch sitemap %s: %w", loc, err)
	}

	body := result.Body

	// A <urlset> is the common case
	var set urlSet
	if err := xml.Unmarshal([]byte(body), &set); err == nil && len(set.URLs) > 0 {
		for _, u := range set.URLs {
			add(u.Loc)
		}
		return nil
	}

	// A <sitemapindex> points at child sitemaps
	var index sitemapIndex
	if err := xml.Unmarshal([]byte(body), &index); err == nil && len(index.Sitemaps) > 0 {
		for _, child := range index.Sitemaps {
			childLoc := strings.TrimSpace(child.Loc)
			if childLoc == "" {
				continue
			}
			if err := c.walk(ctx, childLoc, depth+1, add); err != nil {
				return err
			}
		}
		return nil
	}

	// Fall back to anchor extraction for HTML sitemap pages
	if strings.Contains(result.ContentType, "html") || strings.Contains(body, "<a ") {
		found, err := extractAnchors(body, loc)
		if err != nil {
			return fmt.Errorf("failed to parse sitemap %s: %w", loc, err)
		}
		for _, u := range found {
			add(u)
		}
		return nil
	}

	return fmt.Errorf("unrecognized sitemap format at %s", loc)
}

// extractAnchors collects same-host absolute URLs from an HTML page.
func extractAnchors(html, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	var found []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		found = append(found, resolved.String())
	})
	return found, nil
}
