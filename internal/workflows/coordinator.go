package workflows

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/ragline/orchestrator/internal/evidence"
)

// RetrieveAll fans out one bridge per backend and joins within the global
// timeout. Backends still in flight when the timeout fires are recorded as
// timed out; each backend gets exactly one outcome, so a backend that
// finishes after the join is discarded rather than rewriting its recorded
// timeout.
func RetrieveAll(ctx workflow.Context, in TaskInput) map[evidence.BackendID]evidence.Outcome {
	logger := workflow.GetLogger(ctx)

	globalTimeout := in.GlobalTimeout
	if globalTimeout == 0 {
		globalTimeout = defaultGlobalTimeout
	}

	results := make(map[evidence.BackendID]evidence.Outcome, len(in.Backends))
	pending := len(in.Backends)
	sealed := false

	for _, spec := range in.Backends {
		spec := spec
		bridge := NewBridge(spec, in.PerBackendTimeout)

		workflow.Go(ctx, func(gctx workflow.Context) {
			outcome := bridge.Run(gctx, in.Query)
			if sealed {
				logger.Warn("discarding late backend result",
					"backend", spec.ID,
					"items", len(outcome.Items),
				)
				return
			}
			results[spec.ID] = outcome
			pending--
		})
	}

	ok, _ := workflow.AwaitWithTimeout(ctx, globalTimeout, func() bool { return pending == 0 })
	sealed = true
	if !ok {
		for _, spec := range in.Backends {
			if _, done := results[spec.ID]; done {
				continue
			}
			logger.Warn("backend unfinished at global timeout",
				"backend", spec.ID,
				"timeout", globalTimeout,
			)
			results[spec.ID] = evidence.Failure(evidence.ErrTimeout, "global retrieval timeout", globalTimeout)
		}
	}

	return results
}

func elapsedMS(d time.Duration) int64 { return d.Milliseconds() }
