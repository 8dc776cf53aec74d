package workflows

import (
	"strings"
	"unicode/utf8"
)

// QueryAnalysis captures cheap lexical features of the incoming query. It is
// computed before retrieval and recorded on the result so callers and logs can
// correlate mode selection with query shape.
type QueryAnalysis struct {
	Length          int  `json:"length"`
	Words           int  `json:"words"`
	HasQuestionMark bool `json:"has_question_mark"`
	Interrogative   bool `json:"interrogative"`
}

var interrogatives = []string{"what", "how", "why", "when", "who", "where", "which"}

// AnalyzeQuery is a pure function of the query text, safe to call from
// workflow code.
func AnalyzeQuery(query string) QueryAnalysis {
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)

	qa := QueryAnalysis{
		Length:          utf8.RuneCountInString(trimmed),
		Words:           len(strings.Fields(trimmed)),
		HasQuestionMark: strings.Contains(trimmed, "?"),
	}
	for _, kw := range interrogatives {
		if strings.Contains(lower, kw) {
			qa.Interrogative = true
			break
		}
	}
	return qa
}
