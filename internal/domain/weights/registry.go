package weights

import (
	"context"
	"sync"

	"github.com/okian/cadence/pkg/metrics"
)

// Registry holds the current weight set and its history. Publishing is
// copy-on-write: readers always see a complete version, never a partially
// updated mapping.
type Registry struct {
	mu      sync.RWMutex
	current WeightSet
	history map[string]WeightSet
	set     bool
}

// NewRegistry creates a registry seeded with an initial validated set.
func NewRegistry(initial WeightSet) (*Registry, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	r := &Registry{
		history: map[string]WeightSet{initial.Version: initial},
		current: initial,
		set:     true,
	}
	return r, nil
}

// Current returns the current weight set. The returned value is a complete
// version; a concurrent Publish never changes it under the caller.
func (r *Registry) Current(_ context.Context) (WeightSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.set {
		return WeightSet{}, ErrNoCurrent
	}
	return r.current, nil
}

// Version returns a historical weight set by version id.
func (r *Registry) Version(_ context.Context, version string) (WeightSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.history[version]
	return ws, ok
}

// Publish validates candidate and atomically makes it current. On
// validation failure the current set is retained and the error returned;
// this is the explicit review gate between calibration and live scoring.
func (r *Registry) Publish(_ context.Context, candidate WeightSet) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[candidate.Version] = candidate
	r.current = candidate
	r.set = true
	metrics.RecordWeightSetPublish()
	return nil
}
