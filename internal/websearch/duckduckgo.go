package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/ragline/orchestrator/internal/circuitbreaker"
	"github.com/ragline/orchestrator/internal/interceptors"
	"github.com/ragline/orchestrator/internal/tracing"
)

const duckDuckGoEndpoint = "https://api.duckduckgo.com/"

// DuckDuckGoClient queries the DuckDuckGo Instant Answer API. It needs no key
// and serves as the fallback engine.
type DuckDuckGoClient struct {
	endpoint string
	httpw    *circuitbreaker.HTTPWrapper
	log      *zap.Logger
}

func NewDuckDuckGoClient(timeout time.Duration, logger *zap.Logger) *DuckDuckGoClient {
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
	return &DuckDuckGoClient{
		endpoint: duckDuckGoEndpoint,
		httpw:    circuitbreaker.NewHTTPWrapper(httpClient, "duckduckgo", "websearch", logger),
		log:      logger,
	}
}

func (d *DuckDuckGoClient) Name() string { return "duckduckgo" }

type ddgResponse struct {
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

func (d *DuckDuckGoClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	u := fmt.Sprintf("%s?q=%s&format=json&no_html=1", d.endpoint, url.QueryEscape(query))

	ctx, span := tracing.StartHTTPSpan(ctx, "GET", u)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	tracing.InjectTraceparent(ctx, req)

	resp, err := d.httpw.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}

	var dr ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, err
	}

	var out []Result
	if dr.AbstractText != "" {
		out = append(out, Result{
			Title:   dr.Heading,
			URL:     dr.AbstractURL,
			Content: dr.AbstractText,
		})
	}
	for _, t := range dr.RelatedTopics {
		if len(out) >= limit {
			break
		}
		if t.Text == "" {
			continue
		}
		out = append(out, Result{
			Title:   t.Text,
			URL:     t.FirstURL,
			Content: t.Text,
		})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
