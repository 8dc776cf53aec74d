package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/ragline/orchestrator/internal/backends"
	"github.com/ragline/orchestrator/internal/metrics"
	"github.com/ragline/orchestrator/internal/session"
)

// Error types attached to application errors so workflow code can classify
// failures without string matching.
const (
	ErrTypeMalformed   = "malformed_result"
	ErrTypeUnavailable = "unavailable"
)

// Completer generates text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Activities holds dependencies for the orchestrator's activities.
type Activities struct {
	registry *backends.Registry
	llm      Completer
	sessions *session.Manager
	logger   *zap.Logger
}

// NewActivities creates a new activities instance with dependencies.
func NewActivities(registry *backends.Registry, llm Completer, sessions *session.Manager, logger *zap.Logger) *Activities {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activities{registry: registry, llm: llm, sessions: sessions, logger: logger}
}

// RetrieveEvidence runs one backend's retrieval on the activity worker pool.
func (a *Activities) RetrieveEvidence(ctx context.Context, in RetrievalInput) (RetrievalOutput, error) {
	start := time.Now()

	adapter, ok := a.registry.Get(in.Backend)
	if !ok {
		return RetrievalOutput{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown backend %q", in.Backend), ErrTypeUnavailable, nil)
	}

	items, err := adapter.Retrieve(ctx, backends.RetrievalRequest{Query: in.Query, Limit: in.Limit})
	if err != nil {
		status := ErrTypeUnavailable
		if errors.Is(err, backends.ErrMalformed) {
			status = ErrTypeMalformed
		}
		metrics.RecordRetrieval(string(in.Backend), status, time.Since(start).Seconds(), 0)
		a.logger.Warn("backend retrieval failed",
			zap.String("backend", string(in.Backend)),
			zap.String("kind", status),
			zap.Error(err),
		)
		return RetrievalOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), status, err)
	}

	metrics.RecordRetrieval(string(in.Backend), "ok", time.Since(start).Seconds(), len(items))
	return RetrievalOutput{Items: items}, nil
}

// GenerateAnswer calls the LLM with the rendered prompt.
func (a *Activities) GenerateAnswer(ctx context.Context, in GenerateInput) (GenerateOutput, error) {
	start := time.Now()

	out, err := a.llm.Complete(ctx, in.Prompt)
	if err != nil {
		metrics.GenerationDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		a.logger.Warn("generation failed", zap.Error(err))
		return GenerateOutput{}, err
	}

	metrics.GenerationDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return GenerateOutput{Response: out}, nil
}

// FetchHistory loads recent session runs for prompt assembly.
func (a *Activities) FetchHistory(ctx context.Context, in HistoryInput) (HistoryOutput, error) {
	if a.sessions == nil || in.SessionID == "" {
		return HistoryOutput{}, nil
	}
	recs, err := a.sessions.History(ctx, in.SessionID, in.Limit)
	if err != nil {
		// History is additive context; a failed read degrades to none.
		a.logger.Warn("session history read failed",
			zap.String("session_id", in.SessionID),
			zap.Error(err),
		)
		return HistoryOutput{}, nil
	}
	out := HistoryOutput{Records: make([]HistoryRecord, 0, len(recs))}
	for _, r := range recs {
		out.Records = append(out.Records, HistoryRecord{Query: r.Query, Response: r.Response})
	}
	return out, nil
}

// RecordRun persists a completed run into session history.
func (a *Activities) RecordRun(ctx context.Context, in RecordRunInput) error {
	if a.sessions == nil || in.SessionID == "" {
		return nil
	}
	return a.sessions.AppendRun(ctx, in.SessionID, session.RunRecord{
		Query:     in.Query,
		Response:  in.Response,
		Mode:      in.Mode,
		Timestamp: in.Timestamp,
	})
}
