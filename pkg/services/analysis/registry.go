package analysis

import (
	"fmt"
	"slices"
	"sync"
)

const (
	EngineMemory = "memory"
	EngineDuckDB = "duckdb"
)

// AggregatorFactory creates an Aggregator that keeps topN products.
type AggregatorFactory func(topN int) (Aggregator, error)

// Registry manages aggregation engine factories
type Registry interface {
	// Register adds a new engine factory
	Register(engine string, factory AggregatorFactory) error
	// Create instantiates an aggregator for the specified engine
	Create(engine string, topN int) (Aggregator, error)
	// ListEngines returns the registered engine names, sorted
	ListEngines() []string
}

type registry struct {
	mu        sync.RWMutex
	factories map[string]AggregatorFactory
}

// NewRegistry creates a registry with the in-process engine already registered.
func NewRegistry() Registry {
	return &registry{
		factories: map[string]AggregatorFactory{
			EngineMemory: func(topN int) (Aggregator, error) {
				return NewMemoryAggregator(topN), nil
			},
		},
	}
}

func (r *registry) Register(engine string, factory AggregatorFactory) error {
	if engine == "" {
		return fmt.Errorf("engine name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[engine]; exists {
		return fmt.Errorf("engine %q is already registered", engine)
	}

	r.factories[engine] = factory
	return nil
}

func (r *registry) Create(engine string, topN int) (Aggregator, error) {
	r.mu.RLock()
	factory, exists := r.factories[engine]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("engine %q is not registered", engine)
	}

	return factory(topN)
}

func (r *registry) ListEngines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engines := make([]string, 0, len(r.factories))
	for engine := range r.factories {
		engines = append(engines, engine)
	}
	slices.Sort(engines)
	return engines
}
