package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ragline_runs_started_total",
			Help: "Total number of query runs started",
		},
	)

	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragline_runs_completed_total",
			Help: "Total number of query runs completed",
		},
		[]string{"mode", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragline_run_duration_seconds",
			Help:    "End-to-end run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// Retrieval metrics
	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragline_retrieval_duration_seconds",
			Help:    "Per-backend retrieval duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"backend", "status"},
	)

	RetrievalItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragline_retrieval_items",
			Help:    "Number of evidence items returned per backend retrieval",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
		[]string{"backend"},
	)

	BridgeFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragline_bridge_fallbacks_total",
			Help: "Retrievals that fell back from the worker pool to the inline path",
		},
		[]string{"backend"},
	)

	// Classification metrics
	ModeSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragline_mode_selected_total",
			Help: "Operating mode chosen per run",
		},
		[]string{"mode"},
	)

	// Context assembly metrics
	ContextTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ragline_context_truncations_total",
			Help: "Runs whose evidence was truncated to fit the context budget",
		},
	)

	// Generation metrics
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragline_generation_duration_seconds",
			Help:    "LLM generation duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	// Embedding metrics
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragline_embedding_requests_total",
			Help: "Embedding requests by cache outcome",
		},
		[]string{"model", "outcome"},
	)

	// Vector store metrics
	VectorSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragline_vector_searches_total",
			Help: "Vector store searches by status",
		},
		[]string{"collection", "status"},
	)

	// Web search metrics
	WebSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragline_web_searches_total",
			Help: "Web searches by engine and status",
		},
		[]string{"engine", "status"},
	)

	// Inbound API metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragline_http_requests_total",
			Help: "Inbound API requests by route and status code",
		},
		[]string{"route", "status"},
	)
)

// RecordRetrieval records one backend retrieval attempt.
func RecordRetrieval(backend, status string, seconds float64, items int) {
	RetrievalDuration.WithLabelValues(backend, status).Observe(seconds)
	if status == "ok" {
		RetrievalItems.WithLabelValues(backend).Observe(float64(items))
	}
}

// RecordRun records a completed run with its selected mode.
func RecordRun(mode, status string, seconds float64) {
	RunsCompleted.WithLabelValues(mode, status).Inc()
	RunDuration.WithLabelValues(mode).Observe(seconds)
}
