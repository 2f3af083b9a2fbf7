package gateway

import (
	"errors"
	"sort"
	"sync"
)

// ErrGatewayNotFound is returned by Registry.Get for unregistered names.
var ErrGatewayNotFound = errors.New("gateway not found")

// Registry holds the configured gateways by name. Registration happens at
// startup; lookups are safe from any goroutine.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

// Register adds a gateway under its Name. A later registration with the same
// name replaces the earlier one.
func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Name()] = g
}

// Get returns a gateway by name.
func (r *Registry) Get(name string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[name]
	if !ok {
		return nil, ErrGatewayNotFound
	}
	return g, nil
}

// List returns the registered gateway names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
