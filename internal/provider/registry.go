package provider

import (
	"fmt"
	"sync"

	"paybridge/internal/domain/flow"

	"github.com/rs/zerolog/log"
)

// Registry holds the configured adapters, one per provider kind.
type Registry struct {
	adapters map[flow.ProviderKind]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[flow.ProviderKind]Adapter)}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[a.Kind()] = a
	log.Info().
		Str("provider", string(a.Kind())).
		Msg("registered provider adapter")
}

// Get returns the adapter for a provider kind.
func (r *Registry) Get(kind flow.ProviderKind) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[kind]
	if !ok {
		return nil, &Error{
			Code:    "provider_not_found",
			Message: fmt.Sprintf("provider %s not registered", kind),
		}
	}
	return a, nil
}

// Prober returns the readiness prober for a provider kind, if the adapter
// exposes one.
func (r *Registry) Prober(kind flow.ProviderKind) (ReadinessProber, error) {
	a, err := r.Get(kind)
	if err != nil {
		return nil, err
	}
	p, ok := a.(ReadinessProber)
	if !ok {
		return nil, &Error{
			Code:    "operation_not_supported",
			Message: fmt.Sprintf("provider %s does not support readiness probes", kind),
		}
	}
	return p, nil
}

// List returns all registered provider kinds.
func (r *Registry) List() []flow.ProviderKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var kinds []flow.ProviderKind
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	return kinds
}
