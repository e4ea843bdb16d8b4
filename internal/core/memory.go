package core

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/monoize-go/monoize/internal/apperr"
	"github.com/monoize-go/monoize/internal/routing"
	"github.com/monoize-go/monoize/internal/transform"
)

// shortIDCharset and GenerateShortID port generate_short_id from
// monoize_routing.rs verbatim: an 8-char lowercase-alnum ID built by
// taking the first 8 bytes of a UUIDv4 modulo len(charset).
const shortIDCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

func GenerateShortID() string {
	id := uuid.New()
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = shortIDCharset[int(id[i])%len(shortIDCharset)]
	}
	return string(out)
}

// BearerAuthenticator implements Authenticator per spec.md §6: tokens
// beginning "sk-" and at least 12 characters long resolve to a
// Principal via a lookup table keyed by the raw token; any other
// token, or an unrecognized sk- token, fails with `unauthenticated`.
type BearerAuthenticator struct {
	mu      sync.RWMutex
	byToken map[string]*Principal
}

func NewBearerAuthenticator() *BearerAuthenticator {
	return &BearerAuthenticator{byToken: map[string]*Principal{}}
}

// Register associates token with principal, for standalone operation
// and tests — a stand-in for the persisted API-key lookup spec.md §6
// describes, not a security-hardened credential store.
func (a *BearerAuthenticator) Register(token string, principal *Principal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byToken[token] = principal
}

func (a *BearerAuthenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if !strings.HasPrefix(token, "sk-") || len(token) < 12 {
		return nil, apperr.New(apperr.CodeUnauthenticated, "token must begin with sk- and be at least 12 characters")
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.byToken[token]
	if !ok {
		return nil, apperr.New(apperr.CodeUnauthenticated, "unrecognized api key")
	}
	return p, nil
}

// MemoryConfigStore is an in-memory ConfigStore, standing in for the
// persisted provider/user/settings schema spec.md §6 describes as out
// of scope for the core.
type MemoryConfigStore struct {
	mu               sync.RWMutex
	providers        []*routing.Provider
	tenantTransforms map[string][]transform.Rule
}

func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{tenantTransforms: map[string][]transform.Rule{}}
}

func (s *MemoryConfigStore) SetProviders(providers []*routing.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = providers
}

func (s *MemoryConfigStore) SetTenantTransforms(tenantID string, rules []transform.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenantTransforms[tenantID] = rules
}

func (s *MemoryConfigStore) Providers(ctx context.Context) ([]*routing.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*routing.Provider(nil), s.providers...), nil
}

func (s *MemoryConfigStore) TenantTransforms(ctx context.Context, tenantID string) ([]transform.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]transform.Rule(nil), s.tenantTransforms[tenantID]...), nil
}
