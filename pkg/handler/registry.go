package handler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jdziat/persisted-jobs/pkg/core"
	"github.com/jdziat/persisted-jobs/pkg/security"
)

// Registry maps job types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*Handler
}

// NewRegistry creates a registry holding handlers. Invalid names and
// duplicate job types are reported as configuration errors.
func NewRegistry(handlers ...*Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]*Handler, len(handlers))}
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds h to the registry.
func (r *Registry) Register(h *Handler) error {
	if !h.valid() {
		jobType := ""
		if h != nil {
			jobType = h.jobType
		}
		return core.Configuration(jobType, fmt.Errorf("%w: handler function is nil", core.ErrNoHandler))
	}
	if err := security.ValidateJobTypeName(h.jobType); err != nil {
		return core.Configuration(h.jobType, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.jobType]; exists {
		return core.Configuration(h.jobType, core.ErrDuplicateHandler)
	}
	r.handlers[h.jobType] = h
	return nil
}

// Lookup returns the handler for jobType.
func (r *Registry) Lookup(jobType string) (*Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types returns the registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
