package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "SiteAuditor")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, result.Body, "hello")
	assert.Contains(t, result.ContentType, "text/html")
}

func TestURL_InvalidURL(t *testing.T) {
	_, err := URL(context.Background(), "not-a-url", nil)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "invalid URL", fetchErr.Message)
}

func TestURL_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
}

func TestExtractPageSignals(t *testing.T) {
	html := `<html>
<head>
	<title>Acme Widgets | Home</title>
	<meta name="description" content="Widgets for every occasion">
	<meta name="robots" content="index,follow">
	<link rel="canonical" href="https://example.com/">
</head>
<body>
	<nav>Menu items here</nav>
	<h1>Welcome to Acme</h1>
	<main><p>We sell the finest widgets in the world.</p></main>
	<footer>Copyright</footer>
</body>
</html>`

	signals, err := ExtractPageSignals(html)
	require.NoError(t, err)

	assert.Equal(t, "Acme Widgets | Home", signals.Title)
	assert.Equal(t, "Widgets for every occasion", signals.MetaDescription)
	assert.Equal(t, "https://example.com/", signals.Canonical)
	assert.Equal(t, "index,follow", signals.Robots)
	assert.Equal(t, []string{"Welcome to Acme"}, signals.H1s)
	assert.Contains(t, signals.Text, "finest widgets")
	assert.NotContains(t, signals.Text, "Menu items")
	assert.NotContains(t, signals.Text, "Copyright")
	assert.Equal(t, 9, signals.WordCount)
}

func TestExtractPageSignals_MissingMetadata(t *testing.T) {
	signals, err := ExtractPageSignals("<html><body><p>bare page</p></body></html>")
	require.NoError(t, err)

	assert.Empty(t, signals.Title)
	assert.Empty(t, signals.MetaDescription)
	assert.Empty(t, signals.Canonical)
	assert.Empty(t, signals.H1s)
	assert.Equal(t, 2, signals.WordCount)
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("short"))
	assert.True(t, ShouldUseBrowser("   "))

	long := make([]byte, MinContentLength)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ShouldUseBrowser(string(long)))
}
