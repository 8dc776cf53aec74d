package circuitbreaker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ragline_circuit_breaker_state",
			Help: "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name", "service"},
	)

	circuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragline_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "service", "state", "result"},
	)

	circuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragline_circuit_breaker_state_changes_total",
			Help: "Total number of state changes in circuit breaker",
		},
		[]string{"name", "service", "from_state", "to_state"},
	)
)

// MetricsCollector periodically exports the state gauge for every registered
// breaker so dashboards see opens even when no traffic flows.
type MetricsCollector struct {
	mu       sync.RWMutex
	breakers map[string]registeredBreaker
}

type registeredBreaker struct {
	service string
	cb      *CircuitBreaker
}

// GlobalMetricsCollector is the process-wide collector.
var GlobalMetricsCollector = &MetricsCollector{breakers: make(map[string]registeredBreaker)}

// RegisterCircuitBreaker adds a breaker to the collector and wires its state
// change hook into the prometheus counters.
func (mc *MetricsCollector) RegisterCircuitBreaker(name, service string, cb *CircuitBreaker) {
	mc.mu.Lock()
	mc.breakers[name] = registeredBreaker{service: service, cb: cb}
	mc.mu.Unlock()

	prev := cb.config.OnStateChange
	cb.config.OnStateChange = func(n string, from, to State) {
		circuitBreakerStateChanges.WithLabelValues(n, service, from.String(), to.String()).Inc()
		if prev != nil {
			prev(n, from, to)
		}
	}
}

// RecordRequest records one request outcome through a breaker.
func (mc *MetricsCollector) RecordRequest(name, service string, state State, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	circuitBreakerRequests.WithLabelValues(name, service, state.String(), result).Inc()
}

// StartMetricsCollection launches the background gauge exporter.
func StartMetricsCollection() {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			GlobalMetricsCollector.mu.RLock()
			for name, rb := range GlobalMetricsCollector.breakers {
				circuitBreakerState.WithLabelValues(name, rb.service).Set(float64(rb.cb.State()))
			}
			GlobalMetricsCollector.mu.RUnlock()
		}
	}()
}
