package modes

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ragline/orchestrator/internal/evidence"
)

type outcomeState int

const (
	successNonEmpty outcomeState = iota
	successEmpty
	failed
)

func (s outcomeState) String() string {
	switch s {
	case successNonEmpty:
		return "success_nonempty"
	case successEmpty:
		return "success_empty"
	default:
		return "failure"
	}
}

func makeOutcome(s outcomeState) evidence.Outcome {
	switch s {
	case successNonEmpty:
		return evidence.Success([]evidence.Item{{Source: evidence.SourceWeb, Content: "x"}}, 10*time.Millisecond)
	case successEmpty:
		return evidence.Success(nil, 10*time.Millisecond)
	default:
		return evidence.Failure(evidence.ErrUnavailable, "boom", 10*time.Millisecond)
	}
}

// TestClassifyTable exercises every combination of per-backend outcome state
// and checks it collapses onto the four-row mode table.
func TestClassifyTable(t *testing.T) {
	states := []outcomeState{successNonEmpty, successEmpty, failed}
	for _, kb := range states {
		for _, web := range states {
			name := fmt.Sprintf("kb=%s/web=%s", kb, web)
			t.Run(name, func(t *testing.T) {
				raw := map[evidence.BackendID]evidence.Outcome{
					evidence.BackendKnowledge: makeOutcome(kb),
					evidence.BackendWeb:       makeOutcome(web),
				}
				got := Classify(raw, Thresholds{})

				kbUsable := kb == successNonEmpty
				webUsable := web == successNonEmpty
				var want Mode
				switch {
				case kbUsable && webUsable:
					want = ModeHybrid
				case kbUsable:
					want = ModeKnowledgeOnly
				case webUsable:
					want = ModeWebOnly
				default:
					want = ModeFallback
				}
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestClassifyMissingBackend(t *testing.T) {
	raw := map[evidence.BackendID]evidence.Outcome{
		evidence.BackendWeb: makeOutcome(successNonEmpty),
	}
	assert.Equal(t, ModeWebOnly, Classify(raw, Thresholds{}))
	assert.Equal(t, ModeFallback, Classify(nil, Thresholds{}))
}

func TestThresholdsMinItems(t *testing.T) {
	one := evidence.Success([]evidence.Item{{Source: evidence.SourceKnowledgeBase, Content: "a"}}, 0)
	th := Thresholds{MinItems: 2}
	assert.False(t, th.Usable(one))

	two := evidence.Success([]evidence.Item{
		{Source: evidence.SourceKnowledgeBase, Content: "a"},
		{Source: evidence.SourceKnowledgeBase, Content: "b"},
	}, 0)
	assert.True(t, th.Usable(two))
}

func TestThresholdsMinRelevance(t *testing.T) {
	scored := evidence.Success([]evidence.Item{
		{Source: evidence.SourceWeb, Content: "a", Relevance: evidence.Float64Ptr(0.3)},
		{Source: evidence.SourceWeb, Content: "b", Relevance: evidence.Float64Ptr(0.7)},
	}, 0)
	assert.True(t, Thresholds{MinRelevance: 0.5}.Usable(scored))
	assert.False(t, Thresholds{MinRelevance: 0.9}.Usable(scored))

	// Unscored items only clear a zero floor.
	unscored := evidence.Success([]evidence.Item{{Source: evidence.SourceWeb, Content: "a"}}, 0)
	assert.True(t, Thresholds{}.Usable(unscored))
	assert.False(t, Thresholds{MinRelevance: 0.1}.Usable(unscored))
}
