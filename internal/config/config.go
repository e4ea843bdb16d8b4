// Package config loads the routing engine's provider/channel catalogue,
// per-tenant auth/transform settings, and runtime tunables from YAML or
// JSON, grounded on the teacher's internal/config/config.go
// atomic.Value-backed Manager pattern. The provider/channel shape is
// spec.md §3.5's, not the teacher's flat 5-provider list.
package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/monoize-go/monoize/internal/core"
	"github.com/monoize-go/monoize/internal/routing"
	"github.com/monoize-go/monoize/internal/transform"
)

const (
	DefaultPort           = 6970
	DefaultHost           = "127.0.0.1"
	DefaultConfigFilename = "config.json"
	DefaultYAMLFilename   = "config.yaml"

	// EnvAPIKey is the CCO_API_KEY-style fallback: with no config file on
	// disk, a single provider-less proxy can still start if this is set,
	// matching the teacher's zero-config CCO_API_KEY behavior.
	EnvAPIKey = "MONOIZE_API_KEY"
)

// ModelEntry is one logical→upstream model mapping, per MonoizeModelEntry.
type ModelEntry struct {
	Redirect   string  `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// ChannelConfig is one (base_url, api_key) endpoint within a provider,
// per spec.md §3.5's Channel.
type ChannelConfig struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	BaseURL    string `json:"base_url" yaml:"base_url"`
	APIKey     string `json:"api_key" yaml:"api_key"`
	AuthType   string `json:"auth_type,omitempty" yaml:"auth_type,omitempty"` // bearer|header|query
	HeaderName string `json:"header_name,omitempty" yaml:"header_name,omitempty"`
	QueryName  string `json:"query_name,omitempty" yaml:"query_name,omitempty"`
	Weight     int    `json:"weight,omitempty" yaml:"weight,omitempty"`
	Enabled    *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// RuleConfig is one transform pipeline entry, per spec.md §3.7's Rule.
type RuleConfig struct {
	TransformType string         `json:"transform_type" yaml:"transform_type"`
	Enabled       *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Phase         string         `json:"phase" yaml:"phase"` // request|response
	Models        []string       `json:"models,omitempty" yaml:"models,omitempty"`
	Config        map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// ProviderConfig is one upstream provider, per spec.md §3.5's Provider.
type ProviderConfig struct {
	ID           string                `json:"id" yaml:"id"`
	Name         string                `json:"name,omitempty" yaml:"name,omitempty"`
	ProviderType string                `json:"provider_type" yaml:"provider_type"` // responses|chat_completion|messages|gemini|grok
	Models       map[string]ModelEntry `json:"models,omitempty" yaml:"models,omitempty"`
	Channels     []ChannelConfig       `json:"channels" yaml:"channels"`
	Transforms   []RuleConfig          `json:"transforms,omitempty" yaml:"transforms,omitempty"`
	MaxRetries   int                   `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	Priority     int                   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Enabled      *bool                 `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// TenantConfig maps one bearer API key to a Principal, standing in for
// the persisted user/api-key schema spec.md §6 describes as out of
// scope for the core (see internal/core's non-recovery note).
type TenantConfig struct {
	APIKey             string       `json:"api_key" yaml:"api_key"`
	TenantID           string       `json:"tenant_id" yaml:"tenant_id"`
	UserID             string       `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Username           string       `json:"username,omitempty" yaml:"username,omitempty"`
	MaxMultiplier      *float64     `json:"max_multiplier,omitempty" yaml:"max_multiplier,omitempty"`
	ModelLimitsEnabled bool         `json:"model_limits_enabled,omitempty" yaml:"model_limits_enabled,omitempty"`
	ModelLimits        []string     `json:"model_limits,omitempty" yaml:"model_limits,omitempty"`
	Transforms         []RuleConfig `json:"transforms,omitempty" yaml:"transforms,omitempty"`
}

// Runtime holds the routing-engine tunables recovered from the Rust
// original's MonoizeRuntimeConfig, per SPEC_FULL.md §4.5.
type Runtime struct {
	RequestTimeoutMs                int   `json:"request_timeout_ms,omitempty" yaml:"request_timeout_ms,omitempty"`
	PassiveFailureThreshold         int   `json:"passive_failure_threshold,omitempty" yaml:"passive_failure_threshold,omitempty"`
	PassiveCooldownSeconds          int   `json:"passive_cooldown_seconds,omitempty" yaml:"passive_cooldown_seconds,omitempty"`
	PassiveRateLimitCooldownSeconds int   `json:"passive_rate_limit_cooldown_seconds,omitempty" yaml:"passive_rate_limit_cooldown_seconds,omitempty"`
	// PassiveWindowSeconds/PassiveMinSamples/PassiveFailureRateThreshold
	// configure the optional windowed rate detector (spec.md §4.3.4);
	// PassiveWindowSeconds == 0 (the default) disables it, leaving only
	// the consecutive-failure threshold above.
	PassiveWindowSeconds            int     `json:"passive_window_seconds,omitempty" yaml:"passive_window_seconds,omitempty"`
	PassiveMinSamples               int     `json:"passive_min_samples,omitempty" yaml:"passive_min_samples,omitempty"`
	PassiveFailureRateThreshold     float64 `json:"passive_failure_rate_threshold,omitempty" yaml:"passive_failure_rate_threshold,omitempty"`
	ActiveEnabled                   *bool   `json:"active_enabled,omitempty" yaml:"active_enabled,omitempty"`
	ActiveIntervalSeconds           int     `json:"active_interval_seconds,omitempty" yaml:"active_interval_seconds,omitempty"`
	ActiveSuccessThreshold          int     `json:"active_success_threshold,omitempty" yaml:"active_success_threshold,omitempty"`
}

// Config is the full on-disk shape: host/port, tenants, providers, and
// runtime tunables.
type Config struct {
	Host      string           `json:"host,omitempty" yaml:"host,omitempty"`
	Port      int              `json:"port,omitempty" yaml:"port,omitempty"`
	Tenants   []TenantConfig   `json:"tenants,omitempty" yaml:"tenants,omitempty"`
	Providers []ProviderConfig `json:"providers" yaml:"providers"`
	Runtime   Runtime          `json:"runtime,omitempty" yaml:"runtime,omitempty"`
}

// Manager loads, caches, and persists a Config, mirroring the teacher's
// Manager{baseDir, configValue atomic.Value} shape and its
// YAML-then-JSON-then-env load order.
type Manager struct {
	baseDir     string
	jsonPath    string
	yamlPath    string
	configValue atomic.Value
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir:  baseDir,
		jsonPath: filepath.Join(baseDir, DefaultConfigFilename),
		yamlPath: filepath.Join(baseDir, DefaultYAMLFilename),
	}
}

// minimalConfig is the zero-provider shape used when no config file
// exists but EnvAPIKey is set, matching the teacher's CCO_API_KEY
// zero-config path.
func (m *Manager) minimalConfig() Config {
	return Config{Host: DefaultHost, Port: DefaultPort}
}

func (m *Manager) Load() (*Config, error) {
	var cfg Config
	var err error

	switch {
	case fileExists(m.yamlPath):
		cfg, err = m.loadYAML()
		if err != nil {
			return nil, fmt.Errorf("load YAML config: %w", err)
		}
	case fileExists(m.jsonPath):
		cfg, err = m.loadJSON()
		if err != nil {
			return nil, fmt.Errorf("load JSON config: %w", err)
		}
	case os.Getenv(EnvAPIKey) != "":
		cfg = m.minimalConfig()
	default:
		return nil, fmt.Errorf("no configuration file found (looked for %s or %s) and %s not set", m.yamlPath, m.jsonPath, EnvAPIKey)
	}

	applyDefaults(&cfg)
	m.configValue.Store(&cfg)
	return &cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (m *Manager) loadYAML() (Config, error) {
	var cfg Config
	data, err := os.ReadFile(m.yamlPath)
	if err != nil {
		return cfg, fmt.Errorf("read YAML config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal YAML config: %w", err)
	}
	return cfg, nil
}

func (m *Manager) loadJSON() (Config, error) {
	var cfg Config
	data, err := os.ReadFile(m.jsonPath)
	if err != nil {
		return cfg, fmt.Errorf("read JSON config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal JSON config: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills in the exact MonoizeRuntimeConfig defaults
// recovered from the Rust original (SPEC_FULL.md §4.5), plus the
// teacher's host/port defaults.
func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Runtime.RequestTimeoutMs == 0 {
		cfg.Runtime.RequestTimeoutMs = 30000
	}
	if cfg.Runtime.PassiveFailureThreshold == 0 {
		cfg.Runtime.PassiveFailureThreshold = 3
	}
	if cfg.Runtime.PassiveCooldownSeconds == 0 {
		cfg.Runtime.PassiveCooldownSeconds = 60
	}
	if cfg.Runtime.PassiveRateLimitCooldownSeconds == 0 {
		cfg.Runtime.PassiveRateLimitCooldownSeconds = 10
	}
	if cfg.Runtime.ActiveIntervalSeconds == 0 {
		cfg.Runtime.ActiveIntervalSeconds = 30
	}
	if cfg.Runtime.ActiveSuccessThreshold == 0 {
		cfg.Runtime.ActiveSuccessThreshold = 1
	}
	if cfg.Runtime.ActiveEnabled == nil {
		t := true
		cfg.Runtime.ActiveEnabled = &t
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Enabled == nil {
			t := true
			p.Enabled = &t
		}
		for c := range p.Channels {
			ch := &p.Channels[c]
			if ch.Weight == 0 {
				ch.Weight = 1
			}
			if ch.Enabled == nil {
				t := true
				ch.Enabled = &t
			}
			if ch.AuthType == "" {
				ch.AuthType = string(routing.AuthBearer)
			}
		}
	}
}

func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}
	cfg, err := m.Load()
	if err != nil {
		fallback := Config{Host: DefaultHost, Port: DefaultPort}
		applyDefaults(&fallback)
		return &fallback
	}
	return cfg
}

func (m *Manager) Save(cfg *Config) error {
	return m.SaveAsYAML(cfg)
}

func (m *Manager) SaveAsYAML(cfg *Config) error {
	if err := os.MkdirAll(m.baseDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal YAML config: %w", err)
	}
	if err := os.WriteFile(m.yamlPath, data, 0644); err != nil {
		return fmt.Errorf("write YAML config file: %w", err)
	}
	m.configValue.Store(cfg)
	return nil
}

func (m *Manager) SaveAsJSON(cfg *Config) error {
	if err := os.MkdirAll(m.baseDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON config: %w", err)
	}
	if err := os.WriteFile(m.jsonPath, data, 0644); err != nil {
		return fmt.Errorf("write JSON config file: %w", err)
	}
	m.configValue.Store(cfg)
	return nil
}

func (m *Manager) GetPath() string {
	if fileExists(m.yamlPath) {
		return m.yamlPath
	}
	return m.jsonPath
}

func (m *Manager) GetYAMLPath() string { return m.yamlPath }
func (m *Manager) GetJSONPath() string { return m.jsonPath }

func (m *Manager) Exists() bool {
	return fileExists(m.yamlPath) || fileExists(m.jsonPath)
}

func (m *Manager) HasYAML() bool { return fileExists(m.yamlPath) }
func (m *Manager) HasJSON() bool { return fileExists(m.jsonPath) }

// CreateExampleYAML writes a two-provider, two-channel example
// configuration, the way the teacher's CreateExampleYAML scaffolds a
// starter file; `config generate` calls it.
func (m *Manager) CreateExampleYAML() error {
	enabled := true
	cfg := &Config{
		Host: DefaultHost,
		Port: DefaultPort,
		Tenants: []TenantConfig{
			{APIKey: "sk-example-0123456789", TenantID: "default"},
		},
		Providers: []ProviderConfig{
			{
				ID:           "anthropic",
				Name:         "anthropic",
				ProviderType: string(routing.DialectMessages),
				Priority:     0,
				Enabled:      &enabled,
				Models: map[string]ModelEntry{
					"claude-sonnet-4": {},
				},
				Channels: []ChannelConfig{
					{ID: "anthropic-primary", Name: "primary", BaseURL: "https://api.anthropic.com/v1", APIKey: "your-anthropic-api-key", AuthType: "header", HeaderName: "x-api-key", Weight: 1, Enabled: &enabled},
				},
			},
			{
				ID:           "openai",
				Name:         "openai",
				ProviderType: string(routing.DialectResponses),
				Priority:     1,
				Enabled:      &enabled,
				Models: map[string]ModelEntry{
					"gpt-4o": {},
				},
				Channels: []ChannelConfig{
					{ID: "openai-primary", Name: "primary", BaseURL: "https://api.openai.com/v1", APIKey: "your-openai-api-key", AuthType: "bearer", Weight: 1, Enabled: &enabled},
				},
			},
		},
	}
	applyDefaults(cfg)
	return m.SaveAsYAML(cfg)
}

// Validate checks structural requirements Load alone doesn't enforce:
// every provider id and every channel id (within its provider) is
// non-empty and unique, every provider names a known dialect and has a
// channel, every channel has a base_url and names a known auth type,
// and every tenant has a non-empty api_key and tenant_id with the
// api_key unique, per spec.md §3.5/§6.
func (cfg *Config) Validate() error {
	seenProvider := map[string]bool{}
	for _, p := range cfg.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider with empty id")
		}
		if seenProvider[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seenProvider[p.ID] = true

		switch routing.Dialect(p.ProviderType) {
		case routing.DialectResponses, routing.DialectChatCompletion, routing.DialectMessages, routing.DialectGemini, routing.DialectGrok:
		default:
			return fmt.Errorf("provider %q: unknown provider_type %q", p.ID, p.ProviderType)
		}
		if len(p.Channels) == 0 {
			return fmt.Errorf("provider %q: no channels configured", p.ID)
		}

		seenChannel := map[string]bool{}
		for _, c := range p.Channels {
			if c.ID == "" {
				return fmt.Errorf("provider %q: channel with empty id", p.ID)
			}
			if seenChannel[c.ID] {
				return fmt.Errorf("provider %q: duplicate channel id %q", p.ID, c.ID)
			}
			seenChannel[c.ID] = true
			if c.BaseURL == "" {
				return fmt.Errorf("provider %q channel %q: empty base_url", p.ID, c.ID)
			}
			switch routing.AuthType(c.AuthType) {
			case routing.AuthBearer, routing.AuthHeader, routing.AuthQuery, "":
			default:
				return fmt.Errorf("provider %q channel %q: unknown auth_type %q", p.ID, c.ID, c.AuthType)
			}
		}
	}

	seenTenant := map[string]bool{}
	for _, t := range cfg.Tenants {
		if t.APIKey == "" || t.TenantID == "" {
			return fmt.Errorf("tenant entry missing api_key or tenant_id")
		}
		if seenTenant[t.APIKey] {
			return fmt.Errorf("duplicate tenant api_key")
		}
		seenTenant[t.APIKey] = true
	}
	return nil
}

// ToRegistryProviders converts the on-disk ProviderConfig list into the
// routing package's domain objects, ordered by priority ascending then
// insertion order per spec.md §3.5.
func (cfg *Config) ToRegistryProviders() ([]*routing.Provider, error) {
	out := make([]*routing.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		models := make(map[string]routing.ModelEntry, len(pc.Models))
		for name, me := range pc.Models {
			models[name] = routing.ModelEntry{Redirect: me.Redirect, Multiplier: me.Multiplier}
		}

		channels := make([]*routing.Channel, 0, len(pc.Channels))
		for _, cc := range pc.Channels {
			ch := routing.NewChannel(cc.ID, cc.Name, cc.BaseURL, cc.APIKey)
			ch.Weight = cc.Weight
			if cc.Enabled != nil {
				ch.Enabled = *cc.Enabled
			}
			if cc.AuthType != "" {
				ch.AuthType = routing.AuthType(cc.AuthType)
			}
			ch.HeaderName = cc.HeaderName
			ch.QueryName = cc.QueryName
			channels = append(channels, ch)
		}

		retry := routing.DefaultRetryPolicy()
		if pc.MaxRetries > 0 {
			retry.MaxAttempts = pc.MaxRetries
		}

		provider := &routing.Provider{
			ID:         pc.ID,
			Name:       pc.Name,
			Dialect:    routing.Dialect(pc.ProviderType),
			Models:     models,
			Channels:   channels,
			Enabled:    pc.Enabled == nil || *pc.Enabled,
			Priority:   pc.Priority,
			Retry:      retry,
			Transforms: ToTransformRules(pc.Transforms),
		}
		out = append(out, provider)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

// ToTenantTransforms builds the tenant-id → transform-rule map the
// ConfigStore interface exposes, and ToTransformRules converts one
// RuleConfig list.
func (cfg *Config) ToTenantTransforms() map[string][]transform.Rule {
	out := make(map[string][]transform.Rule, len(cfg.Tenants))
	for _, t := range cfg.Tenants {
		out[t.TenantID] = ToTransformRules(t.Transforms)
	}
	return out
}

func ToTransformRules(rules []RuleConfig) []transform.Rule {
	out := make([]transform.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, transform.Rule{
			TransformType: r.TransformType,
			Enabled:       r.Enabled == nil || *r.Enabled,
			Phase:         transform.Phase(r.Phase),
			Models:        r.Models,
			Config:        r.Config,
		})
	}
	return out
}

// DispatchConfig derives a routing.DispatchConfig from the loaded
// runtime tunables, leaving the HTTP client for the caller to supply.
func (r Runtime) DispatchConfig(client *http.Client) routing.DispatchConfig {
	cfg := routing.DefaultDispatchConfig()
	cfg.Client = client
	cfg.RequestTimeout = time.Duration(r.RequestTimeoutMs) * time.Millisecond
	cfg.PassiveHealth = routing.PassiveHealthConfig{
		FailureThreshold:     uint32(r.PassiveFailureThreshold),
		CooldownSeconds:      uint64(r.PassiveCooldownSeconds),
		RateLimitCooldown:    uint64(r.PassiveRateLimitCooldownSeconds),
		WindowSeconds:        uint64(r.PassiveWindowSeconds),
		MinSamples:           uint32(r.PassiveMinSamples),
		FailureRateThreshold: r.PassiveFailureRateThreshold,
	}
	return cfg
}

// ActiveProbeConfig derives a routing.ActiveProbeConfig from the loaded
// runtime tunables.
func (r Runtime) ActiveProbeConfig() routing.ActiveProbeConfig {
	return routing.ActiveProbeConfig{
		Enabled:          r.ActiveEnabled == nil || *r.ActiveEnabled,
		Interval:         time.Duration(r.ActiveIntervalSeconds) * time.Second,
		Timeout:          5 * time.Second,
		SuccessThreshold: uint32(r.ActiveSuccessThreshold),
	}
}

// ToPrincipals builds the token → Principal table a core.BearerAuthenticator
// registers at startup.
func (cfg *Config) ToPrincipals() map[string]*core.Principal {
	out := make(map[string]*core.Principal, len(cfg.Tenants))
	for _, t := range cfg.Tenants {
		out[t.APIKey] = &core.Principal{
			TenantID:           t.TenantID,
			UserID:             t.UserID,
			Username:           t.Username,
			MaxMultiplier:      t.MaxMultiplier,
			Transforms:         ToTransformRules(t.Transforms),
			ModelLimitsEnabled: t.ModelLimitsEnabled,
			ModelLimits:        t.ModelLimits,
		}
	}
	return out
}
