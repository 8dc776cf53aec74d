package workflows

import (
	"time"

	"github.com/ragline/orchestrator/internal/evidence"
	"github.com/ragline/orchestrator/internal/modes"
)

// BackendSpec describes one retrieval backend the workflow should consult.
// Capabilities are resolved from the adapter registry by the caller so the
// workflow itself stays deterministic.
type BackendSpec struct {
	ID         evidence.BackendID `json:"id"`
	WorkerPool bool               `json:"worker_pool"`
	Inline     bool               `json:"inline"`
	// Timeout overrides the task-level per-backend timeout when non-zero.
	Timeout time.Duration `json:"timeout,omitempty"`
	Limit   int           `json:"limit,omitempty"`
}

// TaskInput is the workflow input for one query run.
type TaskInput struct {
	Query     string        `json:"query"`
	SessionID string        `json:"session_id,omitempty"`
	Backends  []BackendSpec `json:"backends"`

	PerBackendTimeout time.Duration    `json:"per_backend_timeout,omitempty"`
	GlobalTimeout     time.Duration    `json:"global_timeout,omitempty"`
	ContextBudget     int              `json:"context_budget,omitempty"`
	HistoryLimit      int              `json:"history_limit,omitempty"`
	Thresholds        modes.Thresholds `json:"thresholds,omitempty"`
}

// BackendReport summarizes one backend's outcome for the caller.
type BackendReport struct {
	Status    string `json:"status"` // "ok" or the failure kind
	Items     int    `json:"items"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Path      string `json:"path,omitempty"`
}

// TaskResult is the workflow output.
type TaskResult struct {
	Response string          `json:"response"`
	Mode     modes.Mode      `json:"mode"`
	Degraded bool            `json:"degraded"`
	Evidence []evidence.Item `json:"evidence,omitempty"`

	Backends  map[evidence.BackendID]BackendReport `json:"backends"`
	Analysis  QueryAnalysis                        `json:"analysis"`
	Truncated bool                                 `json:"truncated"`
	ElapsedMS int64                                `json:"elapsed_ms"`
}

const (
	defaultPerBackendTimeout = 10 * time.Second
	defaultGlobalTimeout     = 30 * time.Second
	defaultContextBudget     = 8000
	defaultHistoryLimit      = 5
	defaultRetrievalLimit    = 5
)
