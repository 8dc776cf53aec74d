package activities

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/ragline/orchestrator/internal/backends"
	"github.com/ragline/orchestrator/internal/metrics"
)

// Local activities run on the workflow worker itself, so the workflow can
// still retrieve when the activity pool is saturated or a backend opts out of
// it. Local activity functions cannot carry receiver state through Temporal's
// dispatch, hence the package-level registry.
var (
	inlineMu       sync.RWMutex
	inlineRegistry *backends.Registry
)

// SetInlineRegistry installs the adapter registry used by the inline path.
// Called once at worker startup, and by tests.
func SetInlineRegistry(r *backends.Registry) {
	inlineMu.Lock()
	inlineRegistry = r
	inlineMu.Unlock()
}

// RetrieveEvidenceInline is the local-activity variant of RetrieveEvidence.
func RetrieveEvidenceInline(ctx context.Context, in RetrievalInput) (RetrievalOutput, error) {
	inlineMu.RLock()
	registry := inlineRegistry
	inlineMu.RUnlock()
	if registry == nil {
		return RetrievalOutput{}, temporal.NewNonRetryableApplicationError(
			"inline retrieval not configured", ErrTypeUnavailable, nil)
	}

	start := time.Now()

	adapter, ok := registry.Get(in.Backend)
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
		return RetrievalOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), status, err)
	}

	metrics.RecordRetrieval(string(in.Backend), "ok", time.Since(start).Seconds(), len(items))
	return RetrievalOutput{Items: items}, nil
}
