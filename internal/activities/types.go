package activities

import (
	"time"

	"github.com/ragline/orchestrator/internal/evidence"
	"github.com/ragline/orchestrator/internal/modes"
)

// RetrievalInput asks one backend for evidence.
type RetrievalInput struct {
	Backend evidence.BackendID `json:"backend"`
	Query   string             `json:"query"`
	Limit   int                `json:"limit"`
}

// RetrievalOutput carries the evidence a backend produced.
type RetrievalOutput struct {
	Items []evidence.Item `json:"items"`
}

// GenerateInput carries the rendered prompt to the LLM.
type GenerateInput struct {
	Prompt string `json:"prompt"`
}

// GenerateOutput carries the generated answer.
type GenerateOutput struct {
	Response string `json:"response"`
}

// HistoryInput asks for a session's recent runs.
type HistoryInput struct {
	SessionID string `json:"session_id"`
	Limit     int    `json:"limit"`
}

// HistoryOutput carries recent session runs, most recent first.
type HistoryOutput struct {
	Records []HistoryRecord `json:"records"`
}

// HistoryRecord is one prior run.
type HistoryRecord struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// RecordRunInput persists a completed run into session history.
type RecordRunInput struct {
	SessionID string     `json:"session_id"`
	Query     string     `json:"query"`
	Response  string     `json:"response"`
	Mode      modes.Mode `json:"mode"`
	Timestamp time.Time  `json:"timestamp"`
}
