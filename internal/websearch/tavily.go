package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ragline/orchestrator/internal/circuitbreaker"
	"github.com/ragline/orchestrator/internal/interceptors"
	"github.com/ragline/orchestrator/internal/tracing"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyClient queries the Tavily search API.
type TavilyClient struct {
	apiKey   string
	endpoint string
	include  []string
	exclude  []string
	httpw    *circuitbreaker.HTTPWrapper
	log      *zap.Logger
}

func NewTavilyClient(cfg Config, logger *zap.Logger) *TavilyClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: interceptors.NewWorkflowHTTPRoundTripper(nil),
	}
	return &TavilyClient{
		apiKey:   cfg.TavilyAPIKey,
		endpoint: tavilyEndpoint,
		include:  cfg.IncludeDomains,
		exclude:  cfg.ExcludeDomains,
		httpw:    circuitbreaker.NewHTTPWrapper(httpClient, "tavily", "websearch", logger),
		log:      logger,
	}
}

func (t *TavilyClient) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (t *TavilyClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("tavily: api key not configured")
	}

	ctx, span := tracing.StartHTTPSpan(ctx, "POST", t.endpoint)
	defer span.End()

	buf, _ := json.Marshal(tavilyRequest{
		APIKey:         t.apiKey,
		Query:          query,
		MaxResults:     limit,
		IncludeDomains: t.include,
		ExcludeDomains: t.exclude,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	tracing.InjectTraceparent(ctx, req)

	resp, err := t.httpw.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily status %d: %s", resp.StatusCode, string(body))
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(tr.Results))
	for _, r := range tr.Results {
		out = append(out, Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return out, nil
}
