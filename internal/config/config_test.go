package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monoize-go/monoize/internal/routing"
)

func TestConfigLoadAndSave(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	cfg := &Config{
		Host: "127.0.0.1",
		Port: 8080,
		Providers: []ProviderConfig{
			{
				ID:           "openrouter",
				ProviderType: "chat_completion",
				Channels: []ChannelConfig{
					{ID: "c1", BaseURL: "https://openrouter.ai/api/v1", APIKey: "test-provider-key"},
				},
				Models: map[string]ModelEntry{"anthropic/claude-3.5-sonnet": {}},
			},
		},
	}

	require.NoError(t, manager.Save(cfg), "should be able to save config")
	assert.True(t, manager.Exists(), "config file should exist after saving")

	loadedCfg, err := manager.Load()
	require.NoError(t, err, "should be able to load config")

	assert.Equal(t, cfg.Host, loadedCfg.Host)
	assert.Equal(t, cfg.Port, loadedCfg.Port)
	require.Len(t, loadedCfg.Providers, 1)
	assert.Equal(t, "openrouter", loadedCfg.Providers[0].ID)
}

func TestConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	cfg := &Config{
		Providers: []ProviderConfig{
			{ID: "test", ProviderType: "responses", Channels: []ChannelConfig{{ID: "c1", BaseURL: "http://example.com", APIKey: "key"}}},
		},
	}

	require.NoError(t, manager.Save(cfg))
	loadedCfg, err := manager.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, loadedCfg.Port)
	assert.Equal(t, DefaultHost, loadedCfg.Host)
	assert.Equal(t, 30000, loadedCfg.Runtime.RequestTimeoutMs)
}

func TestConfigInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	configPath := filepath.Join(tmpDir, DefaultConfigFilename)
	require.NoError(t, os.WriteFile(configPath, []byte("not json"), 0644))

	_, err := manager.Load()
	assert.Error(t, err)
}

func TestConfigNoFileNoEnv(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	t.Setenv(EnvAPIKey, "")
	_, err := manager.Load()
	assert.Error(t, err)
}

func TestConfigValidateRejectsDuplicateProviderID(t *testing.T) {
	cfg := &Config{Providers: []ProviderConfig{
		{ID: "p1", ProviderType: "responses", Channels: []ChannelConfig{{ID: "c1", BaseURL: "https://x"}}},
		{ID: "p1", ProviderType: "responses", Channels: []ChannelConfig{{ID: "c2", BaseURL: "https://y"}}},
	}}
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsUnknownDialect(t *testing.T) {
	cfg := &Config{Providers: []ProviderConfig{
		{ID: "p1", ProviderType: "carrier-pigeon", Channels: []ChannelConfig{{ID: "c1", BaseURL: "https://x"}}},
	}}
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{
		Tenants: []TenantConfig{{APIKey: "sk-abc", TenantID: "t1"}},
		Providers: []ProviderConfig{
			{ID: "p1", ProviderType: "messages", Channels: []ChannelConfig{{ID: "c1", BaseURL: "https://x", AuthType: "header"}}},
		},
	}
	assert.NoError(t, cfg.Validate())
}

func TestToRegistryProvidersOrdersByPriority(t *testing.T) {
	enabled := true
	cfg := &Config{Providers: []ProviderConfig{
		{ID: "second", ProviderType: "responses", Priority: 1, Enabled: &enabled, Channels: []ChannelConfig{{ID: "c1", BaseURL: "https://x", Weight: 2}}},
		{ID: "first", ProviderType: "messages", Priority: 0, Enabled: &enabled, Channels: []ChannelConfig{{ID: "c2", BaseURL: "https://y"}}},
	}}

	providers, err := cfg.ToRegistryProviders()
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "first", providers[0].ID)
	assert.Equal(t, "second", providers[1].ID)
	assert.Equal(t, routing.DialectMessages, providers[0].Dialect)
	assert.Equal(t, 2, providers[1].Channels[0].Weight)
}

func TestToPrincipalsAndTenantTransforms(t *testing.T) {
	cfg := &Config{Tenants: []TenantConfig{
		{
			APIKey:             "sk-tenant-1",
			TenantID:           "t1",
			ModelLimitsEnabled: true,
			ModelLimits:        []string{"claude-*"},
			Transforms:         []RuleConfig{{TransformType: "force_stream", Phase: "request", Config: map[string]any{"enabled": true}}},
		},
	}}

	principals := cfg.ToPrincipals()
	require.Contains(t, principals, "sk-tenant-1")
	assert.Equal(t, "t1", principals["sk-tenant-1"].TenantID)
	assert.True(t, principals["sk-tenant-1"].Allows("claude-3-5-sonnet"))
	assert.False(t, principals["sk-tenant-1"].Allows("gpt-4o"))

	tenantTransforms := cfg.ToTenantTransforms()
	require.Contains(t, tenantTransforms, "t1")
	require.Len(t, tenantTransforms["t1"], 1)
	assert.Equal(t, "force_stream", tenantTransforms["t1"][0].TransformType)
}
