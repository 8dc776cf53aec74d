package websearch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ragline/orchestrator/internal/metrics"
)

// Result is one web search hit.
type Result struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// Engine is a single web search provider.
type Engine interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Config holds web search configuration
type Config struct {
	TavilyAPIKey string        `mapstructure:"tavily_api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxResults   int           `mapstructure:"max_results"`
	RatePerSec   float64       `mapstructure:"rate_per_sec"`
	RateBurst    int           `mapstructure:"rate_burst"`
	// Domain filters are honored by engines that support them.
	IncludeDomains []string `mapstructure:"include_domains"`
	ExcludeDomains []string `mapstructure:"exclude_domains"`
}

// Manager tries engines in order until one returns results. Outbound calls
// share a rate limiter so a burst of parallel runs cannot hammer providers.
type Manager struct {
	engines []Engine
	limiter *rate.Limiter
	max     int
	log     *zap.Logger
}

func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 5
	}
	if cfg.RatePerSec == 0 {
		cfg.RatePerSec = 5
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 10
	}

	var engines []Engine
	if cfg.TavilyAPIKey != "" {
		engines = append(engines, NewTavilyClient(cfg, logger))
	}
	engines = append(engines, NewDuckDuckGoClient(cfg.Timeout, logger))

	return &Manager{
		engines: engines,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		max:     cfg.MaxResults,
		log:     logger,
	}
}

// NewManagerWithEngines builds a manager over explicit engines, used in tests.
func NewManagerWithEngines(logger *zap.Logger, maxResults int, engines ...Engine) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxResults == 0 {
		maxResults = 5
	}
	return &Manager{
		engines: engines,
		limiter: rate.NewLimiter(rate.Inf, 1),
		max:     maxResults,
		log:     logger,
	}
}

// Search queries engines in priority order and returns the first non-empty
// result set.
func (m *Manager) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 || limit > m.max {
		limit = m.max
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for _, eng := range m.engines {
		results, err := eng.Search(ctx, query, limit)
		if err != nil {
			metrics.WebSearches.WithLabelValues(eng.Name(), "error").Inc()
			m.log.Warn("web search engine failed",
				zap.String("engine", eng.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if len(results) == 0 {
			metrics.WebSearches.WithLabelValues(eng.Name(), "empty").Inc()
			continue
		}
		metrics.WebSearches.WithLabelValues(eng.Name(), "ok").Inc()
		return results, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all web search engines failed: %w", lastErr)
	}
	return nil, nil
}
