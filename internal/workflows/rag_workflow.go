package workflows

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ragline/orchestrator/internal/activities"
	"github.com/ragline/orchestrator/internal/evidence"
	"github.com/ragline/orchestrator/internal/fusion"
	"github.com/ragline/orchestrator/internal/modes"
	"github.com/ragline/orchestrator/internal/prompt"
)

// promptCatalog holds the templates the workflow renders with. Overrides are
// installed once at worker startup, before any workflow runs.
var promptCatalog = prompt.NewCatalog()

// SetPromptCatalog installs a catalog with operator overrides.
func SetPromptCatalog(c *prompt.Catalog) {
	if c != nil {
		promptCatalog = c
	}
}

const degradedResponse = "I'm sorry, I wasn't able to generate a response to your question right now. Please try again in a moment."

// RAGQueryWorkflow runs one query end to end: fan out retrieval across
// backends, classify the operating mode from what actually came back, fuse
// the evidence, render the mode's prompt, and generate the answer. The
// workflow always produces a response; generation failure degrades to a
// static message rather than failing the run.
func RAGQueryWorkflow(ctx workflow.Context, in TaskInput) (TaskResult, error) {
	logger := workflow.GetLogger(ctx)
	start := workflow.Now(ctx)

	if strings.TrimSpace(in.Query) == "" {
		return TaskResult{}, temporal.NewNonRetryableApplicationError("query must not be empty", "invalid_input", nil)
	}
	if len(in.Backends) == 0 {
		return TaskResult{}, temporal.NewNonRetryableApplicationError("no retrieval backends configured", "invalid_input", nil)
	}
	applyDefaults(&in)

	analysis := AnalyzeQuery(in.Query)
	logger.Info("query run started",
		"session_id", in.SessionID,
		"backends", len(in.Backends),
		"query_length", analysis.Length,
		"interrogative", analysis.Interrogative,
	)

	history := fetchHistory(ctx, in)

	raw := RetrieveAll(ctx, in)
	mode := modes.Classify(raw, in.Thresholds)
	items := fusion.Fuse(raw)

	contextText := prompt.BuildContext(items, in.ContextBudget)
	truncated := contextText != prompt.BuildContext(items, math.MaxInt)

	rendered, err := promptCatalog.Render(prompt.SelectTemplate(mode), prompt.RenderInput{
		Context: contextText,
		Query:   in.Query,
		History: history,
	})
	if err != nil {
		return TaskResult{}, err
	}

	response, degraded := generate(ctx, rendered)

	recordRun(ctx, in, response, mode)

	reports := make(map[evidence.BackendID]BackendReport, len(raw))
	for id, o := range raw {
		status := "ok"
		if o.Failed() {
			status = string(o.Err)
		}
		reports[id] = BackendReport{
			Status:    status,
			Items:     len(o.Items),
			ElapsedMS: elapsedMS(o.Elapsed),
			Path:      o.Path,
		}
	}

	logger.Info("query run finished",
		"mode", mode,
		"evidence_items", len(items),
		"degraded", degraded,
	)

	return TaskResult{
		Response:  response,
		Mode:      mode,
		Degraded:  degraded,
		Evidence:  items,
		Backends:  reports,
		Analysis:  analysis,
		Truncated: truncated,
		ElapsedMS: elapsedMS(workflow.Now(ctx).Sub(start)),
	}, nil
}

func applyDefaults(in *TaskInput) {
	if in.PerBackendTimeout == 0 {
		in.PerBackendTimeout = defaultPerBackendTimeout
	}
	if in.GlobalTimeout == 0 {
		in.GlobalTimeout = defaultGlobalTimeout
	}
	if in.ContextBudget == 0 {
		in.ContextBudget = defaultContextBudget
	}
	if in.HistoryLimit == 0 {
		in.HistoryLimit = defaultHistoryLimit
	}
}

// fetchHistory loads recent session turns for the prompt. History is additive
// context, so any failure degrades to none.
func fetchHistory(ctx workflow.Context, in TaskInput) []string {
	if in.SessionID == "" {
		return nil
	}
	hctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out activities.HistoryOutput
	if err := workflow.ExecuteActivity(hctx, "FetchHistory", activities.HistoryInput{
		SessionID: in.SessionID,
		Limit:     in.HistoryLimit,
	}).Get(ctx, &out); err != nil {
		workflow.GetLogger(ctx).Warn("history fetch failed", "error", err)
		return nil
	}

	history := make([]string, 0, len(out.Records))
	for _, r := range out.Records {
		history = append(history, fmt.Sprintf("Q: %s / A: %s", r.Query, r.Response))
	}
	return history
}

func generate(ctx workflow.Context, rendered string) (string, bool) {
	gctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 90 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	})

	var out activities.GenerateOutput
	if err := workflow.ExecuteActivity(gctx, "GenerateAnswer", activities.GenerateInput{Prompt: rendered}).Get(ctx, &out); err != nil {
		workflow.GetLogger(ctx).Error("generation failed, degrading", "error", err)
		return degradedResponse, true
	}
	return out.Response, false
}

// recordRun appends the finished run to session history. It runs on a
// disconnected context so a caller cancelling right at the end cannot lose
// the history write, and its failure never fails the run.
func recordRun(ctx workflow.Context, in TaskInput, response string, mode modes.Mode) {
	if in.SessionID == "" {
		return
	}
	dctx, _ := workflow.NewDisconnectedContext(ctx)
	dctx = workflow.WithActivityOptions(dctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	if err := workflow.ExecuteActivity(dctx, "RecordRun", activities.RecordRunInput{
		SessionID: in.SessionID,
		Query:     in.Query,
		Response:  response,
		Mode:      mode,
		Timestamp: workflow.Now(ctx),
	}).Get(dctx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("session history write failed", "error", err)
	}
}
