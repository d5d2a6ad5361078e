package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotInitialized is returned by cross-mod lookups performed before the
// whole mod set has been activated; not every API object exists yet.
var ErrNotInitialized = errors.New("mod registry is not fully initialized")

// Registry is the shared record of every discovered mod. It is written by
// the load pipeline on one goroutine during startup and read-only
// afterwards; MarkInitialized is the handoff point.
type Registry struct {
	mu          sync.RWMutex
	order       []*ModMetadata // resolved load order
	byKey       map[string]*ModMetadata
	initialized bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byKey: make(map[string]*ModMetadata)}
}

// Add records a mod in load order. Duplicate keys only occur for mods the
// resolver already failed for duplicate IDs; the first Add wins the key so
// lookups stay deterministic while the list keeps every package for the
// load summary.
func (r *Registry) Add(m *ModMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := m.Key()
	if _, exists := r.byKey[key]; !exists {
		r.byKey[key] = m
	}
	r.order = append(r.order, m)
}

// Get looks a mod up by ID, case-insensitively.
func (r *Registry) Get(id string) (*ModMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byKey[strings.ToLower(id)]
	return m, ok
}

// All returns every recorded mod in load order.
func (r *Registry) All() []*ModMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ModMetadata, len(r.order))
	copy(out, r.order)
	return out
}

// Active returns mods whose entry point has run, in load order.
func (r *Registry) Active() []*ModMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*ModMetadata
	for _, m := range r.order {
		if m.Status == StatusActive {
			out = append(out, m)
		}
	}
	return out
}

// MarkInitialized flips the registry into its read-only steady state.
// Call only after every mod has passed through activation.
func (r *Registry) MarkInitialized() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized = true
}

// Initialized reports whether the load pipeline has finished.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// API returns the capability object exposed by a mod, if any. Lookups
// before initialization are rejected so mods cannot observe a half-built
// extension set.
func (r *Registry) API(id string) (interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	m, ok := r.byKey[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("no mod with ID %q", id)
	}
	if m.API == nil {
		return nil, fmt.Errorf("mod %q exposes no API", m.ID())
	}
	return m.API, nil
}
