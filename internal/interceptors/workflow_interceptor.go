package interceptors

import (
	"net/http"

	"go.temporal.io/sdk/activity"
)

// WorkflowHTTPRoundTripper adds workflow metadata to outgoing HTTP requests so
// downstream services (vector store, LLM service) can correlate calls back to
// the run that issued them.
type WorkflowHTTPRoundTripper struct {
	base http.RoundTripper
}

// NewWorkflowHTTPRoundTripper creates a new HTTP interceptor that adds workflow metadata
func NewWorkflowHTTPRoundTripper(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &WorkflowHTTPRoundTripper{base: base}
}

// RoundTrip implements http.RoundTripper and injects workflow headers
func (w *WorkflowHTTPRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// activity.GetInfo panics outside an activity context (e.g. during tests
	// or on the inline path); continue without headers in that case.
	func() {
		defer func() { _ = recover() }()

		info := activity.GetInfo(req.Context())
		if info.WorkflowExecution.ID != "" {
			req.Header.Set("X-Workflow-ID", info.WorkflowExecution.ID)
			req.Header.Set("X-Run-ID", info.WorkflowExecution.RunID)
		}
	}()

	return w.base.RoundTrip(req)
}
