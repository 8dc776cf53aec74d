package evidence

import "time"

// BackendID identifies a configured retrieval backend.
type BackendID string

const (
	BackendKnowledge BackendID = "knowledge_base"
	BackendWeb       BackendID = "web_search"
)

// SourceKind tags where an evidence item came from.
type SourceKind string

const (
	SourceKnowledgeBase SourceKind = "knowledge_base"
	SourceWeb           SourceKind = "web"
)

// Provenance keys used across backends. SourceIDKey is the deduplication key
// within a source kind (file path for knowledge chunks, URL for web results).
const (
	SourceIDKey  = "source_id"
	TitleKey     = "title"
	URLKey       = "url"
	FileNameKey  = "filename"
	PageKey      = "page"
	TimestampKey = "timestamp"
)

// Item is one normalized retrieved unit with content and provenance.
type Item struct {
	Source     SourceKind        `json:"source"`
	Content    string            `json:"content"`
	Relevance  *float64          `json:"relevance,omitempty"` // 0..1 when the backend scores results
	Provenance map[string]string `json:"provenance,omitempty"`
}

// SourceID returns the provenance identifier used for deduplication,
// or "" when the backend provided none.
func (it Item) SourceID() string {
	if it.Provenance == nil {
		return ""
	}
	return it.Provenance[SourceIDKey]
}

// Score returns the relevance score, or 0 when the item is unscored.
func (it Item) Score() float64 {
	if it.Relevance == nil {
		return 0
	}
	return *it.Relevance
}

// ErrorKind is the backend error taxonomy. All backend failures are recovered
// at the coordinator boundary and carried as data, never as Go errors.
type ErrorKind string

const (
	ErrNone        ErrorKind = ""
	ErrTimeout     ErrorKind = "timeout"
	ErrUnavailable ErrorKind = "unavailable"
	ErrMalformed   ErrorKind = "malformed_result"
)

// Outcome is the result of one backend retrieval attempt. Produced exactly
// once per backend per run; immutable once produced. A zero Err means the
// attempt succeeded (possibly with zero items).
type Outcome struct {
	Items     []Item        `json:"items,omitempty"`
	Err       ErrorKind     `json:"error,omitempty"`
	ErrDetail string        `json:"error_detail,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
	Path      string        `json:"path,omitempty"` // "pool" or "inline": which bridge path produced it
}

// Failed reports whether the attempt failed outright.
func (o Outcome) Failed() bool { return o.Err != ErrNone }

// Success constructs a successful outcome.
func Success(items []Item, elapsed time.Duration) Outcome {
	return Outcome{Items: items, Elapsed: elapsed}
}

// Failure constructs a failed outcome.
func Failure(kind ErrorKind, detail string, elapsed time.Duration) Outcome {
	return Outcome{Err: kind, ErrDetail: detail, Elapsed: elapsed}
}

// Float64Ptr is a small helper for building scored items.
func Float64Ptr(v float64) *float64 { return &v }
