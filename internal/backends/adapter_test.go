package backends

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/orchestrator/internal/evidence"
	"github.com/ragline/orchestrator/internal/vectordb"
	"github.com/ragline/orchestrator/internal/websearch"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vec, f.err }

type fakeSearcher struct {
	chunks []vectordb.Chunk
	err    error
}

func (f *fakeSearcher) SearchKnowledge(context.Context, []float32, int) ([]vectordb.Chunk, error) {
	return f.chunks, f.err
}

type fakeWebSearcher struct {
	results []websearch.Result
	err     error
}

func (f *fakeWebSearcher) Search(context.Context, string, int) ([]websearch.Result, error) {
	return f.results, f.err
}

func TestKnowledgeAdapterRetrieve(t *testing.T) {
	a := NewKnowledgeAdapter(
		&fakeEmbedder{vec: []float32{0.1}},
		&fakeSearcher{chunks: []vectordb.Chunk{
			{ID: "doc-1", Content: "chunk one", Score: 0.9, Metadata: map[string]interface{}{
				"title": "Handbook", "file_name": "handbook.pdf", "page": float64(3),
			}},
			{ID: "doc-2", Content: "chunk two", Score: 0.4},
		}},
		nil,
	)

	items, err := a.Retrieve(context.Background(), RetrievalRequest{Query: "q", Limit: 5})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, evidence.SourceKnowledgeBase, items[0].Source)
	assert.Equal(t, "chunk one", items[0].Content)
	assert.Equal(t, "doc-1", items[0].SourceID())
	assert.Equal(t, "Handbook", items[0].Provenance[evidence.TitleKey])
	assert.Equal(t, "3", items[0].Provenance[evidence.PageKey])
	require.NotNil(t, items[0].Relevance)
	assert.Equal(t, 0.9, *items[0].Relevance)
}

func TestKnowledgeAdapterEmbedFailure(t *testing.T) {
	a := NewKnowledgeAdapter(&fakeEmbedder{err: errors.New("provider down")}, &fakeSearcher{}, nil)
	_, err := a.Retrieve(context.Background(), RetrievalRequest{Query: "q"})
	assert.ErrorContains(t, err, "embed query")
}

func TestKnowledgeAdapterMalformedChunk(t *testing.T) {
	a := NewKnowledgeAdapter(
		&fakeEmbedder{vec: []float32{0.1}},
		&fakeSearcher{chunks: []vectordb.Chunk{{ID: "doc-1"}}},
		nil,
	)
	_, err := a.Retrieve(context.Background(), RetrievalRequest{Query: "q"})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestWebAdapterRetrieve(t *testing.T) {
	a := NewWebAdapter(&fakeWebSearcher{results: []websearch.Result{
		{Title: "News", URL: "https://example.com/a", Content: "today's news", Score: 0.8},
		{Title: "No URL", Content: "instant answer"},
	}}, nil)

	items, err := a.Retrieve(context.Background(), RetrievalRequest{Query: "q", Limit: 5})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, evidence.SourceWeb, items[0].Source)
	assert.Equal(t, "https://example.com/a", items[0].SourceID())
	assert.Equal(t, "https://example.com/a", items[0].Provenance[evidence.URLKey])
	require.NotNil(t, items[0].Relevance)

	assert.Empty(t, items[1].SourceID())
	assert.Nil(t, items[1].Relevance)
}

func TestWebAdapterMalformedResult(t *testing.T) {
	a := NewWebAdapter(&fakeWebSearcher{results: []websearch.Result{{URL: "https://x"}}}, nil)
	_, err := a.Retrieve(context.Background(), RetrievalRequest{Query: "q"})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRegistry(t *testing.T) {
	kb := NewKnowledgeAdapter(&fakeEmbedder{vec: []float32{0.1}}, &fakeSearcher{}, nil)
	web := NewWebAdapter(&fakeWebSearcher{}, nil)
	r := NewRegistry(kb, web)

	got, ok := r.Get(evidence.BackendKnowledge)
	require.True(t, ok)
	assert.Equal(t, evidence.BackendKnowledge, got.ID())

	_, ok = r.Get("unknown")
	assert.False(t, ok)
	assert.Len(t, r.IDs(), 2)
}
