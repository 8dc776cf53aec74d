package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ragline/orchestrator/internal/evidence"
)

func kbItem(content, sourceID string) evidence.Item {
	return evidence.Item{
		Source:     evidence.SourceKnowledgeBase,
		Content:    content,
		Provenance: map[string]string{evidence.SourceIDKey: sourceID},
	}
}

func webItem(content, url string) evidence.Item {
	return evidence.Item{
		Source:     evidence.SourceWeb,
		Content:    content,
		Provenance: map[string]string{evidence.SourceIDKey: url, evidence.URLKey: url},
	}
}

func TestFuseOrdersKnowledgeFirst(t *testing.T) {
	raw := map[evidence.BackendID]evidence.Outcome{
		evidence.BackendWeb: evidence.Success([]evidence.Item{
			webItem("w1", "https://a"), webItem("w2", "https://b"),
		}, 0),
		evidence.BackendKnowledge: evidence.Success([]evidence.Item{
			kbItem("k1", "doc.md#1"), kbItem("k2", "doc.md#2"),
		}, 0),
	}

	out := Fuse(raw)
	assert.Len(t, out, 4)
	assert.Equal(t, "k1", out[0].Content)
	assert.Equal(t, "k2", out[1].Content)
	assert.Equal(t, "w1", out[2].Content)
	assert.Equal(t, "w2", out[3].Content)
}

func TestFuseSkipsFailedBackend(t *testing.T) {
	raw := map[evidence.BackendID]evidence.Outcome{
		evidence.BackendKnowledge: evidence.Failure(evidence.ErrTimeout, "deadline", 0),
		evidence.BackendWeb:       evidence.Success([]evidence.Item{webItem("w1", "https://a")}, 0),
	}
	out := Fuse(raw)
	assert.Len(t, out, 1)
	assert.Equal(t, evidence.SourceWeb, out[0].Source)
}

func TestFuseDeduplicatesBySourceID(t *testing.T) {
	raw := map[evidence.BackendID]evidence.Outcome{
		evidence.BackendKnowledge: evidence.Success([]evidence.Item{
			kbItem("first chunk", "manual.pdf#3"),
			kbItem("second chunk", "manual.pdf#3"), // same chunk surfaced twice
			kbItem("other", "manual.pdf#4"),
		}, 0),
	}
	out := Fuse(raw)
	assert.Len(t, out, 2)
	assert.Equal(t, "first chunk", out[0].Content, "first occurrence wins")
	assert.Equal(t, "other", out[1].Content)
}

func TestFuseDedupIsPerSourceKind(t *testing.T) {
	// Identical ids under different source kinds do not collapse.
	raw := map[evidence.BackendID]evidence.Outcome{
		evidence.BackendKnowledge: evidence.Success([]evidence.Item{kbItem("k", "shared-id")}, 0),
		evidence.BackendWeb:       evidence.Success([]evidence.Item{webItem("w", "shared-id")}, 0),
	}
	assert.Len(t, Fuse(raw), 2)
}

func TestFuseKeepsItemsWithoutSourceID(t *testing.T) {
	raw := map[evidence.BackendID]evidence.Outcome{
		evidence.BackendWeb: evidence.Success([]evidence.Item{
			{Source: evidence.SourceWeb, Content: "a"},
			{Source: evidence.SourceWeb, Content: "b"},
		}, 0),
	}
	assert.Len(t, Fuse(raw), 2)
}

func TestFuseDropsEmptyContent(t *testing.T) {
	raw := map[evidence.BackendID]evidence.Outcome{
		evidence.BackendWeb: evidence.Success([]evidence.Item{
			{Source: evidence.SourceWeb, Content: ""},
			{Source: evidence.SourceWeb, Content: "ok"},
		}, 0),
	}
	out := Fuse(raw)
	assert.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].Content)
}
