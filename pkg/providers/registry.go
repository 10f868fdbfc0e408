package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rsdeploy/rsd/pkg/rsderr"
)

// Registry maps provider ids to provider implementations. It is safe for
// concurrent lookups during a parallel gather.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Provider)}
}

// Register adds a provider under its type id.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.Type()
	if id == "" {
		return fmt.Errorf("provider has an empty type id")
	}
	if _, exists := r.handlers[id]; exists {
		return fmt.Errorf("provider %s already registered", id)
	}
	r.handlers[id] = p
	return nil
}

// Get retrieves a provider by id, failing with unknown-provider on a
// lookup miss.
func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.handlers[id]
	if !ok {
		return nil, rsderr.Newf(rsderr.KindUnknownProvider, "no provider registered for %q", id).
			WithKey(id, nil)
	}
	return p, nil
}

// Types returns the registered provider ids in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
