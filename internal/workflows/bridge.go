package workflows

import (
	"errors"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ragline/orchestrator/internal/activities"
	"github.com/ragline/orchestrator/internal/evidence"
)

// Bridge runs one backend retrieval, preferring the activity worker pool and
// falling back to an inline local activity when the pool cannot serve within
// the backend's remaining time budget. Each backend gets exactly one outcome.
type Bridge struct {
	spec    BackendSpec
	timeout time.Duration
}

func NewBridge(spec BackendSpec, defaultTimeout time.Duration) *Bridge {
	timeout := spec.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if timeout == 0 {
		timeout = defaultPerBackendTimeout
	}
	return &Bridge{spec: spec, timeout: timeout}
}

// Run executes the retrieval ladder and always returns an outcome, never an
// error: failures are encoded in the outcome so one backend cannot abort the
// run.
func (b *Bridge) Run(ctx workflow.Context, query string) evidence.Outcome {
	logger := workflow.GetLogger(ctx)
	start := workflow.Now(ctx)

	limit := b.spec.Limit
	if limit <= 0 {
		limit = defaultRetrievalLimit
	}
	input := activities.RetrievalInput{Backend: b.spec.ID, Query: query, Limit: limit}

	if !b.spec.WorkerPool && !b.spec.Inline {
		return evidence.Failure(evidence.ErrUnavailable, "backend supports no execution path", 0)
	}

	if b.spec.WorkerPool {
		// The queue wait is bounded at half the budget so a saturated pool
		// surfaces while time remains for the inline attempt. Schedule-to-close
		// caps the whole pool path at the backend budget.
		actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			ScheduleToStartTimeout: b.timeout / 2,
			StartToCloseTimeout:    b.timeout,
			ScheduleToCloseTimeout: b.timeout,
			RetryPolicy:            &temporal.RetryPolicy{MaximumAttempts: 1},
		})

		var out activities.RetrievalOutput
		err := workflow.ExecuteActivity(actx, "RetrieveEvidence", input).Get(ctx, &out)
		elapsed := workflow.Now(ctx).Sub(start)
		if err == nil {
			o := evidence.Success(out.Items, elapsed)
			o.Path = "pool"
			return o
		}

		kind, detail := classifyError(err)
		logger.Warn("pool retrieval failed",
			"backend", b.spec.ID,
			"kind", kind,
			"error", err,
		)

		// Cancellation propagates; the inline path never runs for it.
		if temporal.IsCanceledError(err) || ctx.Err() != nil {
			return evidence.Failure(kind, detail, elapsed)
		}
		if !b.fallbackEligible(err, kind) {
			return evidence.Failure(kind, detail, elapsed)
		}

		remaining := b.timeout - elapsed
		if remaining <= 0 {
			return evidence.Failure(kind, detail, elapsed)
		}
		return b.runInline(ctx, input, start, remaining)
	}

	return b.runInline(ctx, input, start, b.timeout)
}

// fallbackEligible decides whether the inline path may run after a pool
// failure. A start-to-close timeout already consumed the backend's budget and
// a malformed result would reproduce inline, so neither falls back.
func (b *Bridge) fallbackEligible(err error, kind evidence.ErrorKind) bool {
	if !b.spec.Inline {
		return false
	}
	if kind == evidence.ErrMalformed {
		return false
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr.TimeoutType() == enumspb.TIMEOUT_TYPE_SCHEDULE_TO_START
	}
	return true
}

func (b *Bridge) runInline(ctx workflow.Context, input activities.RetrievalInput, start time.Time, budget time.Duration) evidence.Outcome {
	lctx := workflow.WithLocalActivityOptions(ctx, workflow.LocalActivityOptions{
		StartToCloseTimeout: budget,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out activities.RetrievalOutput
	err := workflow.ExecuteLocalActivity(lctx, activities.RetrieveEvidenceInline, input).Get(ctx, &out)
	elapsed := workflow.Now(ctx).Sub(start)
	if err != nil {
		kind, detail := classifyError(err)
		return evidence.Failure(kind, detail, elapsed)
	}

	o := evidence.Success(out.Items, elapsed)
	o.Path = "inline"
	return o
}

// classifyError maps a Temporal error into the outcome's failure kind.
func classifyError(err error) (evidence.ErrorKind, string) {
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return evidence.ErrTimeout, timeoutErr.Error()
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		if appErr.Type() == activities.ErrTypeMalformed {
			return evidence.ErrMalformed, appErr.Error()
		}
		return evidence.ErrUnavailable, appErr.Error()
	}
	return evidence.ErrUnavailable, err.Error()
}
