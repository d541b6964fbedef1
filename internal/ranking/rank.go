// Package ranking orders discovered URLs by expected analysis value.
// Ranking is a pure function of its input so cache keys and tests stay stable.
package ranking

import (
	"net/url"
	"sort"
	"strings"
)

// DefaultTopN bounds the analysis input set for a run.
const DefaultTopN = 100

// Scoring weights. Depth dominates: shallow pages carry most of a site's
// SEO weight, with path keywords and URL hygiene as tiebreakers.
const (
	depthWeight   = 0.45
	keywordWeight = 0.30
	hygieneWeight = 0.25
)

// highValueSegments are path keywords that mark commercially or editorially
// important pages.
var highValueSegments = []string{
	"pricing", "product", "service", "features",
	"blog", "guide", "docs", "about", "contact",
}

// lowValueSegments mark pages rarely worth an LLM pass.
var lowValueSegments = []string{
	"login", "signin", "signup", "cart", "checkout",
	"account", "privacy", "terms", "legal", "tag", "category",
}

// RankedURL pairs a URL with its relevance score.
type RankedURL struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Rank scores and orders URLs best-first. Unparseable URLs sink to the end.
// The sort is stable so equal scores preserve discovery order.
func Rank(urls []string) []string {
	ranked := RankDetailed(urls)
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.URL
	}
	return out
}

// RankDetailed is Rank with the computed scores exposed.
func RankDetailed(urls []string) []RankedURL {
	ranked := make([]RankedURL, 0, len(urls))
	for _, raw := range urls {
		ranked = append(ranked, RankedURL{URL: raw, Score: scoreURL(raw)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// TopN returns at most n best-ranked URLs.
func TopN(urls []string, n int) []string {
	if n <= 0 {
		n = DefaultTopN
	}
	ranked := Rank(urls)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// scoreURL computes a [0,1] relevance score from path shape alone.
func scoreURL(raw string) float64 {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return 0
	}

	path := strings.Trim(parsed.EscapedPath(), "/")
	segments := []string{}
	if path != "" {
		segments = strings.Split(path, "/")
	}

	score := depthWeight*depthScore(len(segments)) +
		keywordWeight*keywordScore(segments) +
		hygieneWeight*hygieneScore(parsed, segments)

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}

// depthScore favors shallow paths; the root page scores highest.
func depthScore(depth int) float64 {
	switch {
	case depth == 0:
		return 1.0
	case depth == 1:
		return 0.8
	case depth == 2:
		return 0.5
	case depth == 3:
		return 0.3
	default:
		return 0.1
	}
}

// keywordScore rewards high-value path segments and penalizes low-value ones.
func keywordScore(segments []string) float64 {
	score := 0.4 // neutral baseline for keyword-free paths
	for _, seg := range segments {
		seg = strings.ToLower(seg)
		for _, kw := range highValueSegments {
			if strings.Contains(seg, kw) {
				score += 0.3
			}
		}
		for _, kw := range lowValueSegments {
			if strings.Contains(seg, kw) {
				score -= 0.4
			}
		}
	}
	if score > 1.0 {
		return 1.0
	}
	if score < 0.0 {
		return 0.0
	}
	return score
}

// hygieneScore penalizes query strings, fragments and non-page extensions.
func hygieneScore(parsed *url.URL, segments []string) float64 {
	score := 1.0
	if parsed.RawQuery != "" {
		score -= 0.5
	}
	if len(segments) > 0 {
		last := strings.ToLower(segments[len(segments)-1])
		for _, ext := range []string{".pdf", ".jpg", ".jpeg", ".png", ".gif", ".zip", ".xml", ".css", ".js"} {
			if strings.HasSuffix(last, ext) {
				score -= 0.8
				break
			}
		}
	}
	if score < 0.0 {
		return 0.0
	}
	return score
}
