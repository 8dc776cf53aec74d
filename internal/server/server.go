package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/ragline/orchestrator/internal/evidence"
	"github.com/ragline/orchestrator/internal/metrics"
	"github.com/ragline/orchestrator/internal/session"
	"github.com/ragline/orchestrator/internal/workflows"
)

// QueryRunner starts a query workflow and waits for its result.
type QueryRunner interface {
	Run(ctx context.Context, in workflows.TaskInput) (workflows.TaskResult, error)
}

// TemporalRunner runs queries through a Temporal client.
type TemporalRunner struct {
	Client    client.Client
	TaskQueue string
	// RunTimeout bounds the whole workflow execution.
	RunTimeout time.Duration
}

func (r *TemporalRunner) Run(ctx context.Context, in workflows.TaskInput) (workflows.TaskResult, error) {
	opts := client.StartWorkflowOptions{
		ID:                       "ragline-query-" + uuid.New().String(),
		TaskQueue:                r.TaskQueue,
		WorkflowExecutionTimeout: r.RunTimeout,
	}
	var result workflows.TaskResult
	run, err := r.Client.ExecuteWorkflow(ctx, opts, workflows.RAGQueryWorkflow, in)
	if err != nil {
		return result, err
	}
	err = run.Get(ctx, &result)
	return result, err
}

// Server exposes the query API.
// Endpoints:
//
//	POST /api/v1/query
//	GET  /api/v1/sessions/{id}/history
//	GET  /healthz
type Server struct {
	runner   QueryRunner
	sessions *session.Manager
	defaults workflows.TaskInput
	logger   *zap.Logger
}

// NewServer builds the API server. defaults carries the backend specs and
// retrieval settings copied into each run; its Query and SessionID fields are
// ignored.
func NewServer(runner QueryRunner, sessions *session.Manager, defaults workflows.TaskInput, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{runner: runner, sessions: sessions, defaults: defaults, logger: logger}
}

// RegisterRoutes registers API endpoints on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/query", s.handleQuery)
	mux.HandleFunc("/api/v1/sessions/", s.handleSessionHistory)
	mux.HandleFunc("/healthz", s.handleHealth)
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`

	// Optional per-request overrides. Each is clamped to the server's
	// configured value; requests can narrow a run, never widen it.
	MaxKnowledgeResults int   `json:"max_knowledge_results,omitempty"`
	MaxWebResults       int   `json:"max_web_results,omitempty"`
	PerBackendTimeoutMS int64 `json:"per_backend_timeout_ms,omitempty"`
	RunTimeoutMS        int64 `json:"run_timeout_ms,omitempty"`
}

type queryResponse struct {
	Response  string                  `json:"response"`
	Mode      string                  `json:"mode"`
	Degraded  bool                    `json:"degraded"`
	Truncated bool                    `json:"truncated"`
	ElapsedMS int64                   `json:"elapsed_ms"`
	Analysis  workflows.QueryAnalysis `json:"analysis"`
	Backends  map[string]interface{}  `json:"backends"`
	Evidence  []evidenceView          `json:"evidence,omitempty"`
}

type evidenceView struct {
	Source     string            `json:"source"`
	Content    string            `json:"content"`
	Relevance  *float64          `json:"relevance,omitempty"`
	Provenance map[string]string `json:"provenance,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	in := s.buildInput(req)

	metrics.RunsStarted.Inc()
	start := time.Now()

	result, err := s.runner.Run(r.Context(), in)
	if err != nil {
		s.logger.Error("query run failed", zap.Error(err))
		metrics.RunsCompleted.WithLabelValues("", "error").Inc()
		metrics.HTTPRequests.WithLabelValues("/api/v1/query", "502").Inc()
		writeError(w, http.StatusBadGateway, "query execution failed")
		return
	}

	s.recordRunMetrics(in, result, time.Since(start))
	metrics.HTTPRequests.WithLabelValues("/api/v1/query", "200").Inc()

	resp := queryResponse{
		Response:  result.Response,
		Mode:      string(result.Mode),
		Degraded:  result.Degraded,
		Truncated: result.Truncated,
		ElapsedMS: result.ElapsedMS,
		Analysis:  result.Analysis,
		Backends:  map[string]interface{}{},
	}
	for id, report := range result.Backends {
		resp.Backends[string(id)] = report
	}
	for _, it := range result.Evidence {
		resp.Evidence = append(resp.Evidence, evidenceView{
			Source:     string(it.Source),
			Content:    it.Content,
			Relevance:  it.Relevance,
			Provenance: it.Provenance,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// buildInput copies the server defaults and applies the request's overrides.
func (s *Server) buildInput(req queryRequest) workflows.TaskInput {
	in := s.defaults
	in.Query = req.Query
	in.SessionID = req.SessionID
	in.Backends = append([]workflows.BackendSpec(nil), s.defaults.Backends...)

	if req.PerBackendTimeoutMS > 0 {
		in.PerBackendTimeout = clampDuration(
			time.Duration(req.PerBackendTimeoutMS)*time.Millisecond, s.defaults.PerBackendTimeout)
	}
	if req.RunTimeoutMS > 0 {
		in.GlobalTimeout = clampDuration(
			time.Duration(req.RunTimeoutMS)*time.Millisecond, s.defaults.GlobalTimeout)
	}
	for i := range in.Backends {
		switch in.Backends[i].ID {
		case evidence.BackendKnowledge:
			if req.MaxKnowledgeResults > 0 {
				in.Backends[i].Limit = clampLimit(req.MaxKnowledgeResults, in.Backends[i].Limit)
			}
		case evidence.BackendWeb:
			if req.MaxWebResults > 0 {
				in.Backends[i].Limit = clampLimit(req.MaxWebResults, in.Backends[i].Limit)
			}
		}
	}
	return in
}

func clampDuration(requested, limit time.Duration) time.Duration {
	if limit > 0 && requested > limit {
		return limit
	}
	return requested
}

func clampLimit(requested, limit int) int {
	if limit > 0 && requested > limit {
		return limit
	}
	return requested
}

func (s *Server) recordRunMetrics(in workflows.TaskInput, result workflows.TaskResult, elapsed time.Duration) {
	status := "ok"
	if result.Degraded {
		status = "degraded"
	}
	metrics.RecordRun(string(result.Mode), status, elapsed.Seconds())
	metrics.ModeSelected.WithLabelValues(string(result.Mode)).Inc()
	if result.Truncated {
		metrics.ContextTruncations.Inc()
	}
	for _, spec := range in.Backends {
		report, ok := result.Backends[spec.ID]
		if ok && spec.WorkerPool && report.Path == "inline" {
			metrics.BridgeFallbacks.WithLabelValues(string(spec.ID)).Inc()
		}
	}
}

// handleSessionHistory serves GET /api/v1/sessions/{id}/history.
func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "history" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if s.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	records, err := s.sessions.History(r.Context(), parts[0], limit)
	if err != nil {
		s.logger.Warn("history read failed", zap.String("session_id", parts[0]), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history read failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
