package modes

import (
	"github.com/ragline/orchestrator/internal/evidence"
)

// Mode is the classification of which backends yielded usable evidence.
// It is derived from observed retrieval outcomes, never predicted from the
// query: a static router that guesses about data availability misroutes
// whenever its guess is wrong, so classification runs strictly after the
// retrieval join.
type Mode string

const (
	ModeHybrid        Mode = "hybrid"
	ModeKnowledgeOnly Mode = "knowledge_only"
	ModeWebOnly       Mode = "web_only"
	ModeFallback      Mode = "fallback"
)

// Thresholds gates whether a successful backend counts as usable.
// The zero value (MinItems 0, MinRelevance 0) applies the bare table:
// any success with at least one item is usable.
type Thresholds struct {
	MinItems     int     `mapstructure:"min_items"`
	MinRelevance float64 `mapstructure:"min_relevance"`
}

// Usable reports whether an outcome contributes its source to the mode.
// A backend is usable when it succeeded, returned at least MinItems items,
// and (when a floor is configured) its best-scored item clears MinRelevance.
// Unscored items only pass a zero relevance floor.
func (t Thresholds) Usable(o evidence.Outcome) bool {
	if o.Failed() {
		return false
	}
	min := t.MinItems
	if min < 1 {
		min = 1
	}
	if len(o.Items) < min {
		return false
	}
	if t.MinRelevance <= 0 {
		return true
	}
	for _, it := range o.Items {
		if it.Relevance != nil && *it.Relevance >= t.MinRelevance {
			return true
		}
	}
	return false
}

// Classify maps per-backend outcomes to an operating mode:
//
//	KB usable, Web usable  -> hybrid
//	KB usable, Web not     -> knowledge_only
//	KB not, Web usable     -> web_only
//	neither                -> fallback
//
// A backend that was never attempted (absent from raw) counts as not usable.
func Classify(raw map[evidence.BackendID]evidence.Outcome, th Thresholds) Mode {
	kb := th.Usable(raw[evidence.BackendKnowledge])
	web := th.Usable(raw[evidence.BackendWeb])
	switch {
	case kb && web:
		return ModeHybrid
	case kb:
		return ModeKnowledgeOnly
	case web:
		return ModeWebOnly
	default:
		return ModeFallback
	}
}
