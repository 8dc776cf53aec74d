package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ragline/orchestrator/internal/circuitbreaker"
	"github.com/ragline/orchestrator/internal/interceptors"
	"github.com/ragline/orchestrator/internal/metrics"
	"github.com/ragline/orchestrator/internal/tracing"
)

// Config controls Qdrant client behavior
type Config struct {
	Enabled    bool          `mapstructure:"enabled"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Collection string        `mapstructure:"collection"`
	TopK       int           `mapstructure:"top_k"`
	Threshold  float64       `mapstructure:"threshold"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Chunk is one scored document chunk returned by a knowledge search.
type Chunk struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]interface{}
}

// Client is a minimal Qdrant HTTP client
type Client struct {
	cfg   Config
	base  string
	httpw *circuitbreaker.HTTPWrapper
	log   *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Port == 0 {
		cfg.Port = 6333
	}
	if cfg.Collection == "" {
		cfg.Collection = "knowledge_chunks"
	}
	if cfg.TopK == 0 {
		cfg.TopK = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: interceptors.NewWorkflowHTTPRoundTripper(nil),
	}
	httpw := circuitbreaker.NewHTTPWrapper(httpClient, "qdrant", "vectordb", logger)
	return &Client{
		cfg:   cfg,
		base:  fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		httpw: httpw,
		log:   logger,
	}
}

// qdrant search request/response (simplified)
type qdrantQueryRequest struct {
	Query          []float32 `json:"query"`
	Limit          int       `json:"limit"`
	ScoreThreshold *float64  `json:"score_threshold,omitempty"`
	WithPayload    bool      `json:"with_payload"`
}

type qdrantPoint struct {
	ID      interface{}            `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

// qdrantQueryResponse for the /points/query endpoint which has nested structure
type qdrantQueryResponse struct {
	Result struct {
		Points []qdrantPoint `json:"points"`
	} `json:"result"`
	Status string `json:"status"`
}

type qdrantSearchResponse struct {
	Result []qdrantPoint `json:"result"`
	Status string        `json:"status"`
}

// SearchKnowledge runs a similarity search over the knowledge collection.
func (c *Client) SearchKnowledge(ctx context.Context, vec []float32, limit int) ([]Chunk, error) {
	if !c.cfg.Enabled {
		return nil, fmt.Errorf("vectordb: search called while disabled")
	}
	if limit <= 0 {
		limit = c.cfg.TopK
	}

	pts, err := c.search(ctx, c.cfg.Collection, vec, limit, c.cfg.Threshold)
	if err != nil {
		metrics.VectorSearches.WithLabelValues(c.cfg.Collection, "error").Inc()
		return nil, err
	}
	metrics.VectorSearches.WithLabelValues(c.cfg.Collection, "ok").Inc()

	out := make([]Chunk, 0, len(pts))
	for _, p := range pts {
		ch := Chunk{
			ID:       fmt.Sprintf("%v", p.ID),
			Score:    p.Score,
			Metadata: p.Payload,
		}
		if content, ok := p.Payload["content"].(string); ok {
			ch.Content = content
		}
		out = append(out, ch)
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, collection string, vec []float32, limit int, threshold float64) ([]qdrantPoint, error) {
	ctx, span := tracing.StartHTTPSpan(ctx, "POST", fmt.Sprintf("%s/collections/%s/points/query", c.base, collection))
	defer span.End()

	var thr *float64
	if threshold > 0 {
		thr = &threshold
	}
	call := func(url string, buf []byte) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		tracing.InjectTraceparent(ctx, req)
		return c.httpw.Do(req)
	}

	// Prefer modern /points/query; on failure, fall back to /points/search for
	// older Qdrant versions.
	queryBody, _ := json.Marshal(qdrantQueryRequest{Query: vec, Limit: limit, ScoreThreshold: thr, WithPayload: true})
	resp, err := call(fmt.Sprintf("%s/collections/%s/points/query", c.base, collection), queryBody)
	if err == nil && resp.StatusCode == http.StatusOK {
		defer resp.Body.Close()
		var qr qdrantQueryResponse
		if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
			return nil, err
		}
		return qr.Result.Points, nil
	}
	if resp != nil {
		resp.Body.Close()
	}

	legacy := map[string]interface{}{
		"vector":       vec,
		"limit":        limit,
		"with_payload": true,
	}
	if thr != nil {
		legacy["score_threshold"] = *thr
	}
	searchBody, _ := json.Marshal(legacy)
	resp, err = call(fmt.Sprintf("%s/collections/%s/points/search", c.base, collection), searchBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qdrant search status %d", resp.StatusCode)
	}
	var sr qdrantSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}
	return sr.Result, nil
}
