package vectordb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func clientFor(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return NewClient(Config{
		Enabled:   true,
		Host:      u.Hostname(),
		Port:      port,
		TopK:      5,
		Threshold: 0.3,
	}, zaptest.NewLogger(t))
}

func TestSearchKnowledge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/knowledge_chunks/points/query", r.URL.Path)
		var req qdrantQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.Limit)
		assert.True(t, req.WithPayload)

		resp := qdrantQueryResponse{Status: "ok"}
		resp.Result.Points = []qdrantPoint{
			{ID: "doc-1", Score: 0.91, Payload: map[string]interface{}{
				"content": "Ragline fuses knowledge-base and web evidence.",
				"title":   "Overview",
			}},
			{ID: 42, Score: 0.55, Payload: map[string]interface{}{
				"content": "Retrieval runs in parallel per backend.",
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := clientFor(t, srv)
	chunks, err := c.SearchKnowledge(context.Background(), []float32{0.1, 0.2}, 3)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "doc-1", chunks[0].ID)
	assert.Equal(t, 0.91, chunks[0].Score)
	assert.Equal(t, "Ragline fuses knowledge-base and web evidence.", chunks[0].Content)
	assert.Equal(t, "42", chunks[1].ID)
}

func TestSearchKnowledgeLegacyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/knowledge_chunks/points/query":
			http.NotFound(w, r)
		case "/collections/knowledge_chunks/points/search":
			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Contains(t, req, "vector")
			_ = json.NewEncoder(w).Encode(qdrantSearchResponse{
				Status: "ok",
				Result: []qdrantPoint{{ID: "a", Score: 0.7, Payload: map[string]interface{}{"content": "hit"}}},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := clientFor(t, srv)
	chunks, err := c.SearchKnowledge(context.Background(), []float32{0.1}, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hit", chunks[0].Content)
}

func TestSearchKnowledgeDisabled(t *testing.T) {
	c := NewClient(Config{Enabled: false}, nil)
	_, err := c.SearchKnowledge(context.Background(), []float32{0.1}, 1)
	assert.Error(t, err)
}
