package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveModelOrdersByPriority(t *testing.T) {
	reg := NewRegistry()
	low := &Provider{ID: "low", Priority: 5, Enabled: true, Models: map[string]ModelEntry{
		"gpt-4o": {Redirect: "gpt-4o-2024-11-20"},
	}}
	high := &Provider{ID: "high", Priority: 0, Enabled: true, Models: map[string]ModelEntry{
		"gpt-4o": {},
	}}
	reg.SetProviders([]*Provider{low, high})

	res, err := reg.ResolveModel("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "high", res.Provider.ID)
	assert.Equal(t, "gpt-4o", res.UpstreamModel)
}

func TestResolveModelSkipsDisabledProviders(t *testing.T) {
	reg := NewRegistry()
	disabled := &Provider{ID: "d", Priority: 0, Enabled: false, Models: map[string]ModelEntry{"m": {}}}
	enabled := &Provider{ID: "e", Priority: 1, Enabled: true, Models: map[string]ModelEntry{"m": {}}}
	reg.SetProviders([]*Provider{disabled, enabled})

	res, err := reg.ResolveModel("m")
	require.NoError(t, err)
	assert.Equal(t, "e", res.Provider.ID)
}

func TestResolveModelNotFound(t *testing.T) {
	reg := NewRegistry()
	reg.SetProviders([]*Provider{{ID: "p", Priority: 0, Enabled: true, Models: map[string]ModelEntry{}}})
	_, err := reg.ResolveModel("missing")
	require.Error(t, err)
}

func TestNextResolutionContinuesAfterGivenProvider(t *testing.T) {
	reg := NewRegistry()
	a := &Provider{ID: "a", Priority: 0, Enabled: true, Models: map[string]ModelEntry{"m": {}}}
	b := &Provider{ID: "b", Priority: 1, Enabled: true, Models: map[string]ModelEntry{"m": {}}}
	reg.SetProviders([]*Provider{a, b})

	res, err := reg.NextResolution("m", a)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Provider.ID)

	_, err = reg.NextResolution("m", b)
	require.Error(t, err, "must error once no provider remains after the last one")
}
