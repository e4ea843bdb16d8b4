package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerYAMLSupport(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	yamlConfig := `
host: "0.0.0.0"
port: 8080
tenants:
  - api_key: "sk-tenant-key-0123"
    tenant_id: "acme"
providers:
  - id: "openrouter"
    provider_type: "chat_completion"
    channels:
      - id: "openrouter-primary"
        base_url: "https://openrouter.ai/api/v1"
        api_key: "test-openrouter-key"
  - id: "openai"
    provider_type: "responses"
    priority: 1
    channels:
      - id: "openai-primary"
        base_url: "https://api.openai.com/v1"
        api_key: "test-openai-key"
        auth_type: "bearer"
`

	yamlPath := filepath.Join(tempDir, DefaultYAMLFilename)
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlConfig), 0644))

	cfg, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	require.Len(t, cfg.Tenants, 1)
	assert.Equal(t, "acme", cfg.Tenants[0].TenantID)

	require.Len(t, cfg.Providers, 2)
	openrouter := cfg.Providers[0]
	assert.Equal(t, "openrouter", openrouter.ID)
	require.Len(t, openrouter.Channels, 1)
	assert.Equal(t, "test-openrouter-key", openrouter.Channels[0].APIKey)
	assert.Equal(t, 1, openrouter.Channels[0].Weight, "channel weight should default to 1")
	assert.True(t, *openrouter.Channels[0].Enabled)

	openai := cfg.Providers[1]
	assert.Equal(t, "openai", openai.ID)
	assert.Equal(t, "bearer", openai.Channels[0].AuthType)

	assert.Equal(t, 30000, cfg.Runtime.RequestTimeoutMs)
	assert.Equal(t, 3, cfg.Runtime.PassiveFailureThreshold)
	assert.Equal(t, 60, cfg.Runtime.PassiveCooldownSeconds)
	assert.Equal(t, 30, cfg.Runtime.ActiveIntervalSeconds)
	assert.Equal(t, 1, cfg.Runtime.ActiveSuccessThreshold)
	assert.True(t, *cfg.Runtime.ActiveEnabled)
}

func TestManagerYAMLTakesPrecedence(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	jsonConfig := `{
		"host": "127.0.0.1",
		"port": 6970,
		"providers": [{"id": "json-provider", "provider_type": "responses", "channels": [{"id":"c1","base_url":"https://x","api_key":"json-key"}]}]
	}`

	yamlConfig := `
host: "0.0.0.0"
port: 8080
providers:
  - id: "yaml-provider"
    provider_type: "responses"
    channels:
      - id: "c1"
        base_url: "https://y"
        api_key: "yaml-key"
`

	jsonPath := filepath.Join(tempDir, DefaultConfigFilename)
	yamlPath := filepath.Join(tempDir, DefaultYAMLFilename)
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonConfig), 0644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlConfig), 0644))

	cfg, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "yaml-provider", cfg.Providers[0].ID)
}

func TestManagerSaveAsYAML(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	cfg := &Config{
		Host: "127.0.0.1",
		Port: 7000,
		Providers: []ProviderConfig{
			{
				ID:           "openrouter",
				ProviderType: "chat_completion",
				Channels: []ChannelConfig{
					{ID: "c1", BaseURL: "https://openrouter.ai/api/v1", APIKey: "test-openrouter-key"},
				},
			},
		},
	}

	require.NoError(t, mgr.SaveAsYAML(cfg))

	yamlPath := filepath.Join(tempDir, DefaultYAMLFilename)
	assert.FileExists(t, yamlPath)

	loadedCfg, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, cfg.Host, loadedCfg.Host)
	assert.Equal(t, cfg.Port, loadedCfg.Port)
	assert.Equal(t, cfg.Providers[0].ID, loadedCfg.Providers[0].ID)
	assert.Equal(t, cfg.Providers[0].Channels[0].APIKey, loadedCfg.Providers[0].Channels[0].APIKey)
}

func TestManagerCreateExampleYAML(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	require.NoError(t, mgr.CreateExampleYAML())

	yamlPath := filepath.Join(tempDir, DefaultYAMLFilename)
	assert.FileExists(t, yamlPath)

	cfg, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	require.Len(t, cfg.Providers, 2)

	providerIDs := make([]string, len(cfg.Providers))
	for i, p := range cfg.Providers {
		providerIDs[i] = p.ID
		require.NotEmpty(t, p.Channels)
		assert.NotEmpty(t, p.Channels[0].BaseURL)
	}
	assert.Contains(t, providerIDs, "anthropic")
	assert.Contains(t, providerIDs, "openai")
}

func TestManagerFileDetection(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	assert.False(t, mgr.Exists())
	assert.False(t, mgr.HasYAML())
	assert.False(t, mgr.HasJSON())

	jsonPath := filepath.Join(tempDir, DefaultConfigFilename)
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"host": "127.0.0.1", "providers": []}`), 0644))

	assert.True(t, mgr.Exists())
	assert.False(t, mgr.HasYAML())
	assert.True(t, mgr.HasJSON())
	assert.Equal(t, jsonPath, mgr.GetPath())

	yamlPath := filepath.Join(tempDir, DefaultYAMLFilename)
	require.NoError(t, os.WriteFile(yamlPath, []byte("host: \"0.0.0.0\"\nproviders: []\n"), 0644))

	assert.True(t, mgr.Exists())
	assert.True(t, mgr.HasYAML())
	assert.True(t, mgr.HasJSON())
	assert.Equal(t, yamlPath, mgr.GetPath())
}
