package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ragline/orchestrator/internal/circuitbreaker"
	"github.com/ragline/orchestrator/internal/evidence"
	"github.com/ragline/orchestrator/internal/modes"
	"github.com/ragline/orchestrator/internal/session"
	"github.com/ragline/orchestrator/internal/workflows"
)

type fakeRunner struct {
	got    workflows.TaskInput
	result workflows.TaskResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, in workflows.TaskInput) (workflows.TaskResult, error) {
	f.got = in
	return f.result, f.err
}

func testServer(t *testing.T, runner QueryRunner) *Server {
	t.Helper()
	defaults := workflows.TaskInput{
		Backends: []workflows.BackendSpec{
			{ID: evidence.BackendKnowledge, WorkerPool: true, Inline: true},
			{ID: evidence.BackendWeb, WorkerPool: true, Inline: true},
		},
	}
	return NewServer(runner, nil, defaults, zaptest.NewLogger(t))
}

func TestHandleQuery(t *testing.T) {
	runner := &fakeRunner{result: workflows.TaskResult{
		Response: "answer",
		Mode:     modes.ModeHybrid,
		Backends: map[evidence.BackendID]workflows.BackendReport{
			evidence.BackendKnowledge: {Status: "ok", Items: 2, Path: "pool"},
		},
		Evidence: []evidence.Item{{Source: evidence.SourceKnowledgeBase, Content: "chunk"}},
	}}
	srv := testServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{"query":"what is ragline","session_id":"s1"}`))
	rec := httptest.NewRecorder()
	srv.handleQuery(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "what is ragline", runner.got.Query)
	assert.Equal(t, "s1", runner.got.SessionID)
	assert.Len(t, runner.got.Backends, 2)

	var resp queryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "answer", resp.Response)
	assert.Equal(t, "hybrid", resp.Mode)
	require.Len(t, resp.Evidence, 1)
	assert.Equal(t, "knowledge_base", resp.Evidence[0].Source)
}

func TestHandleQueryOverridesClamped(t *testing.T) {
	runner := &fakeRunner{}
	defaults := workflows.TaskInput{
		Backends: []workflows.BackendSpec{
			{ID: evidence.BackendKnowledge, WorkerPool: true, Inline: true, Limit: 5},
			{ID: evidence.BackendWeb, WorkerPool: true, Inline: true, Limit: 5},
		},
		PerBackendTimeout: 10 * time.Second,
		GlobalTimeout:     30 * time.Second,
	}
	srv := NewServer(runner, nil, defaults, zaptest.NewLogger(t))

	body := `{"query":"q","max_knowledge_results":3,"max_web_results":50,` +
		`"per_backend_timeout_ms":2000,"run_timeout_ms":120000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleQuery(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// Narrowing overrides pass through; widening ones clamp to the defaults.
	assert.Equal(t, 2*time.Second, runner.got.PerBackendTimeout)
	assert.Equal(t, 30*time.Second, runner.got.GlobalTimeout)
	assert.Equal(t, 3, runner.got.Backends[0].Limit)
	assert.Equal(t, 5, runner.got.Backends[1].Limit)
	assert.Equal(t, 5, defaults.Backends[0].Limit)
}

func TestHandleQueryEmpty(t *testing.T) {
	srv := testServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"query":"  "}`))
	rec := httptest.NewRecorder()
	srv.handleQuery(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueryBadJSON(t *testing.T) {
	srv := testServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	srv.handleQuery(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueryRunnerError(t *testing.T) {
	srv := testServer(t, &fakeRunner{err: errors.New("temporal unreachable")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"query":"q"}`))
	rec := httptest.NewRecorder()
	srv.handleQuery(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleQueryMethodNotAllowed(t *testing.T) {
	srv := testServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/query", nil)
	rec := httptest.NewRecorder()
	srv.handleQuery(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSessionHistory(t *testing.T) {
	mr := miniredis.RunT(t)
	wrapper := circuitbreaker.NewRedisWrapper(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zaptest.NewLogger(t))
	sessions := session.NewManagerWithClient(wrapper, session.Config{}, zaptest.NewLogger(t))
	require.NoError(t, sessions.AppendRun(context.Background(), "s1", session.RunRecord{Query: "q", Response: "a"}))

	srv := NewServer(&fakeRunner{}, sessions, workflows.TaskInput{}, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/history", nil)
	rec := httptest.NewRecorder()
	srv.handleSessionHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Records []session.RunRecord `json:"records"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "q", resp.Records[0].Query)
}

func TestHandleSessionHistoryBadPath(t *testing.T) {
	srv := testServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/other", nil)
	rec := httptest.NewRecorder()
	srv.handleSessionHistory(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := testServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
