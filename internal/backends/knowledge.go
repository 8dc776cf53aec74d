package backends

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ragline/orchestrator/internal/evidence"
	"github.com/ragline/orchestrator/internal/vectordb"
)

// ErrMalformed marks a backend response whose shape could not be interpreted.
// The bridge maps it to a distinct failure kind so callers can tell broken
// payloads from unavailable services.
var ErrMalformed = errors.New("malformed backend result")

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeSearcher runs similarity search over the knowledge collection.
type KnowledgeSearcher interface {
	SearchKnowledge(ctx context.Context, vec []float32, limit int) ([]vectordb.Chunk, error)
}

// KnowledgeAdapter retrieves evidence from the vector store.
type KnowledgeAdapter struct {
	embedder Embedder
	searcher KnowledgeSearcher
	log      *zap.Logger
}

func NewKnowledgeAdapter(embedder Embedder, searcher KnowledgeSearcher, logger *zap.Logger) *KnowledgeAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeAdapter{embedder: embedder, searcher: searcher, log: logger}
}

func (k *KnowledgeAdapter) ID() evidence.BackendID { return evidence.BackendKnowledge }

func (k *KnowledgeAdapter) Capabilities() Capability {
	return Capability{WorkerPool: true, Inline: true}
}

func (k *KnowledgeAdapter) Retrieve(ctx context.Context, req RetrievalRequest) ([]evidence.Item, error) {
	vec, err := k.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := k.searcher.SearchKnowledge(ctx, vec, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}

	items := make([]evidence.Item, 0, len(chunks))
	for _, ch := range chunks {
		if ch.Content == "" {
			return nil, fmt.Errorf("%w: chunk %s has no content", ErrMalformed, ch.ID)
		}
		item := evidence.Item{
			Source:    evidence.SourceKnowledgeBase,
			Content:   ch.Content,
			Relevance: evidence.Float64Ptr(ch.Score),
			Provenance: map[string]string{
				evidence.SourceIDKey: ch.ID,
			},
		}
		if title, ok := ch.Metadata["title"].(string); ok {
			item.Provenance[evidence.TitleKey] = title
		}
		if fn, ok := ch.Metadata["file_name"].(string); ok {
			item.Provenance[evidence.FileNameKey] = fn
		}
		if page, ok := ch.Metadata["page"].(float64); ok {
			item.Provenance[evidence.PageKey] = strconv.Itoa(int(page))
		}
		items = append(items, item)
	}
	return items, nil
}
