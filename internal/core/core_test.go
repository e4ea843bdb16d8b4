package core

import (
	"context"
	"testing"

	"github.com/monoize-go/monoize/internal/routing"
	"github.com/monoize-go/monoize/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerAuthenticatorRejectsShortOrUnprefixedTokens(t *testing.T) {
	auth := NewBearerAuthenticator()
	_, err := auth.Authenticate(context.Background(), "short")
	require.Error(t, err)
	_, err = auth.Authenticate(context.Background(), "tok-123456789")
	require.Error(t, err)
}

func TestBearerAuthenticatorResolvesRegisteredToken(t *testing.T) {
	auth := NewBearerAuthenticator()
	p := &Principal{TenantID: "t1"}
	auth.Register("sk-abcdefghijkl", p)

	got, err := auth.Authenticate(context.Background(), "sk-abcdefghijkl")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.TenantID)
}

func TestBearerAuthenticatorRejectsUnknownKey(t *testing.T) {
	auth := NewBearerAuthenticator()
	_, err := auth.Authenticate(context.Background(), "sk-unregistered1")
	require.Error(t, err)
}

func TestPrincipalAllowsRespectsModelLimits(t *testing.T) {
	p := &Principal{ModelLimitsEnabled: true, ModelLimits: []string{"claude-*"}}
	assert.True(t, p.Allows("claude-3-5-sonnet"))
	assert.False(t, p.Allows("gpt-4o"))

	open := &Principal{ModelLimitsEnabled: false}
	assert.True(t, open.Allows("anything"))
}

func TestGenerateShortIDLengthAndCharset(t *testing.T) {
	id := GenerateShortID()
	require.Len(t, id, 8)
	for _, r := range id {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	}
}

func TestMemoryConfigStoreRoundTrip(t *testing.T) {
	store := NewMemoryConfigStore()
	p := &routing.Provider{ID: "p1"}
	store.SetProviders([]*routing.Provider{p})
	store.SetTenantTransforms("t1", []transform.Rule{{TransformType: "force_stream", Enabled: true}})

	providers, err := store.Providers(context.Background())
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "p1", providers[0].ID)

	rules, err := store.TenantTransforms(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "force_stream", rules[0].TransformType)
}
