// Package core defines the Go interfaces the routing/transform core
// consumes for the concerns spec.md §1 marks out of scope — HTTP
// server framing, authentication, and persisted configuration — plus
// a minimal in-memory implementation of each for standalone operation
// and tests. Grounded on spec.md §3.6 (Principal) and §6
// (Authenticator/ConfigStore's external contract); the Rust original's
// SQL-backed `MonoizeRoutingStore`/`auth.rs` are NOT transliterated —
// only the in-memory reference implementation that fulfils the same
// interface is ported, per SPEC_FULL.md §4.7's non-recovery note.
package core

import (
	"context"

	"github.com/monoize-go/monoize/internal/routing"
	"github.com/monoize-go/monoize/internal/transform"
)

// Principal is the authenticated identity attached to a request,
// grounded on spec.md §3.6.
type Principal struct {
	TenantID           string
	UserID             string
	Username           string
	APIKeyID           string
	MaxMultiplier      *float64
	Transforms         []transform.Rule
	ModelLimitsEnabled bool
	ModelLimits        []string
}

// Allows reports whether logicalModel passes the principal's
// model_limits gate, per spec.md §4.3.1 step 3.
func (p *Principal) Allows(logicalModel string) bool {
	if !p.ModelLimitsEnabled {
		return true
	}
	for _, m := range p.ModelLimits {
		if transform.ModelGlobMatch(m, logicalModel) {
			return true
		}
	}
	return false
}

// Authenticator resolves a bearer token into a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// ConfigStore yields the provider/channel catalogue and per-tenant
// settings the routing engine and transform pipeline need to build a
// request. Persistence is entirely the implementation's concern; the
// core only ever reads through this interface.
type ConfigStore interface {
	// Providers returns the full provider catalogue, ordered per
	// spec.md §3.5 (the registry re-sorts defensively regardless).
	Providers(ctx context.Context) ([]*routing.Provider, error)
	// TenantTransforms returns the tenant-wide transform rules applied
	// ahead of a principal's own, per spec.md §4.2's
	// `principal.transforms ++ provider.transforms` composition.
	TenantTransforms(ctx context.Context, tenantID string) ([]transform.Rule, error)
}
