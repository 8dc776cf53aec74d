package backends

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ragline/orchestrator/internal/evidence"
	"github.com/ragline/orchestrator/internal/websearch"
)

// WebSearcher runs a web search across configured engines.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]websearch.Result, error)
}

// WebAdapter retrieves evidence from web search engines.
type WebAdapter struct {
	searcher WebSearcher
	log      *zap.Logger
}

func NewWebAdapter(searcher WebSearcher, logger *zap.Logger) *WebAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebAdapter{searcher: searcher, log: logger}
}

func (w *WebAdapter) ID() evidence.BackendID { return evidence.BackendWeb }

func (w *WebAdapter) Capabilities() Capability {
	return Capability{WorkerPool: true, Inline: true}
}

func (w *WebAdapter) Retrieve(ctx context.Context, req RetrievalRequest) ([]evidence.Item, error) {
	results, err := w.searcher.Search(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}

	items := make([]evidence.Item, 0, len(results))
	for _, r := range results {
		if r.Content == "" {
			return nil, fmt.Errorf("%w: result %q has no content", ErrMalformed, r.URL)
		}
		item := evidence.Item{
			Source:  evidence.SourceWeb,
			Content: r.Content,
			Provenance: map[string]string{
				evidence.TitleKey: r.Title,
			},
		}
		if r.URL != "" {
			item.Provenance[evidence.SourceIDKey] = r.URL
			item.Provenance[evidence.URLKey] = r.URL
		}
		if r.Score > 0 {
			item.Relevance = evidence.Float64Ptr(r.Score)
		}
		items = append(items, item)
	}
	return items, nil
}
