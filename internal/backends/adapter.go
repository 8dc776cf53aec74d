package backends

import (
	"context"

	"github.com/ragline/orchestrator/internal/evidence"
)

// Capability describes which execution paths an adapter supports.
type Capability struct {
	// WorkerPool allows the backend to run on the activity worker pool.
	WorkerPool bool
	// Inline allows the backend to run on the workflow worker when the pool
	// path is unavailable.
	Inline bool
}

// RetrievalRequest carries the query to a backend.
type RetrievalRequest struct {
	Query string
	Limit int
}

// Adapter is one retrieval backend. Retrieve returns the backend's evidence
// items or an error; classification of the error into an outcome kind happens
// at the bridge layer.
type Adapter interface {
	ID() evidence.BackendID
	Capabilities() Capability
	Retrieve(ctx context.Context, req RetrievalRequest) ([]evidence.Item, error)
}

// Registry maps backend IDs to adapters.
type Registry struct {
	adapters map[evidence.BackendID]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[evidence.BackendID]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.ID()] = a
	}
	return r
}

func (r *Registry) Get(id evidence.BackendID) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

func (r *Registry) IDs() []evidence.BackendID {
	out := make([]evidence.BackendID, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	return out
}
