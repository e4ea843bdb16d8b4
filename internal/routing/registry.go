package routing

import (
	"sort"
	"sync"

	"github.com/monoize-go/monoize/internal/apperr"
)

// Registry holds the provider catalogue in priority order. Grounded on
// monoize_routing.rs's MonoizeRoutingStore, generalized away from its
// SQLite-backed CRUD framing into the in-memory/config-loaded shape
// the teacher's internal/config package builds at startup.
type Registry struct {
	mu        sync.RWMutex
	providers []*Provider
}

func NewRegistry() *Registry {
	return &Registry{}
}

// SetProviders replaces the registry contents, sorting by Priority
// ascending and preserving insertion order for ties — spec.md §3.5.
func (r *Registry) SetProviders(providers []*Provider) {
	sorted := append([]*Provider(nil), providers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = sorted
}

// Providers returns a snapshot of the ordered provider list.
func (r *Registry) Providers() []*Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Provider(nil), r.providers...)
}

// Resolution is the outcome of resolving a logical model to an
// upstream provider/model pair, per spec.md §4.3.1.
type Resolution struct {
	Provider      *Provider
	UpstreamModel string
	Multiplier    float64
}

// ResolveModel finds the first enabled provider (by priority then
// insertion order) whose model catalogue contains logicalModel, and
// applies its redirect. Returns apperr.CodeModelNotFound if no
// enabled provider serves it.
func (r *Registry) ResolveModel(logicalModel string) (Resolution, error) {
	for _, p := range r.Providers() {
		if !p.Enabled {
			continue
		}
		entry, ok := p.Models[logicalModel]
		if !ok {
			continue
		}
		upstream := entry.Redirect
		if upstream == "" {
			upstream = logicalModel
		}
		mult := entry.Multiplier
		if mult == 0 {
			mult = 1
		}
		return Resolution{Provider: p, UpstreamModel: upstream, Multiplier: mult}, nil
	}
	return Resolution{}, apperr.Newf(apperr.CodeModelNotFound, "no enabled provider serves model %q", logicalModel)
}

// NextResolution continues resolution from the provider immediately
// following `after` in priority order, for the fallback-to-next-
// provider step in spec.md §4.3.3 step 5.
func (r *Registry) NextResolution(logicalModel string, after *Provider) (Resolution, error) {
	providers := r.Providers()
	skip := after != nil
	for _, p := range providers {
		if skip {
			if p == after {
				skip = false
			}
			continue
		}
		if !p.Enabled {
			continue
		}
		entry, ok := p.Models[logicalModel]
		if !ok {
			continue
		}
		upstream := entry.Redirect
		if upstream == "" {
			upstream = logicalModel
		}
		mult := entry.Multiplier
		if mult == 0 {
			mult = 1
		}
		return Resolution{Provider: p, UpstreamModel: upstream, Multiplier: mult}, nil
	}
	return Resolution{}, apperr.Newf(apperr.CodeModelNotFound, "no further enabled provider serves model %q", logicalModel)
}
