package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeEngine struct {
	name    string
	results []Result
	err     error
	calls   int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Search(_ context.Context, _ string, _ int) ([]Result, error) {
	f.calls++
	return f.results, f.err
}

func TestManagerFirstEngineWins(t *testing.T) {
	primary := &fakeEngine{name: "primary", results: []Result{{Title: "hit", URL: "https://a"}}}
	backup := &fakeEngine{name: "backup", results: []Result{{Title: "other"}}}
	m := NewManagerWithEngines(zaptest.NewLogger(t), 5, primary, backup)

	results, err := m.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hit", results[0].Title)
	assert.Equal(t, 0, backup.calls)
}

func TestManagerFallsBackOnError(t *testing.T) {
	primary := &fakeEngine{name: "primary", err: errors.New("quota exceeded")}
	backup := &fakeEngine{name: "backup", results: []Result{{Title: "fallback hit"}}}
	m := NewManagerWithEngines(zaptest.NewLogger(t), 5, primary, backup)

	results, err := m.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fallback hit", results[0].Title)
}

func TestManagerFallsBackOnEmpty(t *testing.T) {
	primary := &fakeEngine{name: "primary"}
	backup := &fakeEngine{name: "backup", results: []Result{{Title: "fallback hit"}}}
	m := NewManagerWithEngines(zaptest.NewLogger(t), 5, primary, backup)

	results, err := m.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestManagerAllEnginesFail(t *testing.T) {
	primary := &fakeEngine{name: "primary", err: errors.New("down")}
	backup := &fakeEngine{name: "backup", err: errors.New("also down")}
	m := NewManagerWithEngines(zaptest.NewLogger(t), 5, primary, backup)

	_, err := m.Search(context.Background(), "query", 5)
	assert.ErrorContains(t, err, "all web search engines failed")
}

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-key", req.APIKey)
		assert.Equal(t, "latest go release", req.Query)
		_ = json.NewEncoder(w).Encode(tavilyResponse{
			Results: []struct {
				Title   string  `json:"title"`
				URL     string  `json:"url"`
				Content string  `json:"content"`
				Score   float64 `json:"score"`
			}{
				{Title: "Go 1.24 released", URL: "https://go.dev/blog", Content: "Go 1.24 is out.", Score: 0.95},
			},
		})
	}))
	defer srv.Close()

	c := NewTavilyClient(Config{TavilyAPIKey: "test-key"}, zaptest.NewLogger(t))
	c.endpoint = srv.URL

	results, err := c.Search(context.Background(), "latest go release", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Go 1.24 released", results[0].Title)
	assert.Equal(t, 0.95, results[0].Score)
}

func TestTavilyDomainFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"go.dev", "pkg.go.dev"}, req.IncludeDomains)
		assert.Equal(t, []string{"reddit.com"}, req.ExcludeDomains)
		_ = json.NewEncoder(w).Encode(tavilyResponse{})
	}))
	defer srv.Close()

	c := NewTavilyClient(Config{
		TavilyAPIKey:   "test-key",
		IncludeDomains: []string{"go.dev", "pkg.go.dev"},
		ExcludeDomains: []string{"reddit.com"},
	}, zaptest.NewLogger(t))
	c.endpoint = srv.URL

	_, err := c.Search(context.Background(), "generics", 3)
	require.NoError(t, err)
}

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_ = json.NewEncoder(w).Encode(ddgResponse{
			AbstractText: "Go is a statically typed language.",
			AbstractURL:  "https://go.dev",
			Heading:      "Go (programming language)",
			RelatedTopics: []ddgTopic{
				{Text: "Goroutines", FirstURL: "https://go.dev/tour"},
				{Text: "Channels", FirstURL: "https://go.dev/tour/concurrency"},
			},
		})
	}))
	defer srv.Close()

	c := NewDuckDuckGoClient(0, zaptest.NewLogger(t))
	c.endpoint = srv.URL

	results, err := c.Search(context.Background(), "golang", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Go (programming language)", results[0].Title)
	assert.Equal(t, "Goroutines", results[1].Title)
}
