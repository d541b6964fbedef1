package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownPrompt(t *testing.T) {
	prompt, err := Get("analysis.json", "sitewide_audit")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.SitemapURL}}")
	assert.Contains(t, prompt, "health_score")
}

func TestGet_UnknownKey(t *testing.T) {
	_, err := Get("analysis.json", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `prompt key "nope"`)
}

func TestGet_UnknownFile(t *testing.T) {
	_, err := Get("missing.json", "sitewide_audit")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	out := Format("audit {{.SitemapURL}} for {{.AnalysisType}}", map[string]string{
		"SitemapURL":   "https://example.com/sitemap.xml",
		"AnalysisType": "full",
	})
	assert.Equal(t, "audit https://example.com/sitemap.xml for full", out)
}

func TestMustGet_Panics(t *testing.T) {
	assert.Panics(t, func() { MustGet("analysis.json", "does-not-exist") })
}
