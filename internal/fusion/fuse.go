package fusion

import (
	"github.com/ragline/orchestrator/internal/evidence"
)

// Fuse merges successful backends' items into one ordered evidence list:
// knowledge-base items first, then web items, each in the order the backend
// returned them. The ordering is a deterministic layout choice, not a
// ranking — cross-source re-ranking would need a common score scale the
// backends do not share, so relevance ordering stays each backend's job.
//
// Items with an identical (sourceKind, source_id) pair collapse to the first
// occurrence. Items without a source id never collapse.
func Fuse(raw map[evidence.BackendID]evidence.Outcome) []evidence.Item {
	merged := make([]evidence.Item, 0, 8)
	merged = appendBackend(merged, raw[evidence.BackendKnowledge])
	merged = appendBackend(merged, raw[evidence.BackendWeb])

	type dedupKey struct {
		source evidence.SourceKind
		id     string
	}
	seen := make(map[dedupKey]struct{}, len(merged))
	out := merged[:0]
	for _, it := range merged {
		id := it.SourceID()
		if id == "" {
			out = append(out, it)
			continue
		}
		k := dedupKey{source: it.Source, id: id}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

func appendBackend(dst []evidence.Item, o evidence.Outcome) []evidence.Item {
	if o.Failed() {
		return dst
	}
	for _, it := range o.Items {
		if it.Content == "" {
			// Invariant: item content is non-empty.
			continue
		}
		dst = append(dst, it)
	}
	return dst
}
