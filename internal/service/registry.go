package service

import (
	"slices"

	"catalog_sync/internal/domain"
)

// Registry resolves the provider implementation for an integration.
type Registry struct {
	providers map[domain.ProviderID]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[domain.ProviderID]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.ID()] = p
	}
	return r
}

func (r *Registry) Lookup(id domain.ProviderID) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// IDs returns the registered provider ids in sorted order.
func (r *Registry) IDs() []domain.ProviderID {
	ids := make([]domain.ProviderID, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
