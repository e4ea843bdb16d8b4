// Package routing implements provider/channel resolution, weighted and
// failover channel selection, and passive/active health tracking for
// the routing engine. Grounded on
// _examples/original_source/src/monoize_routing.rs for the
// Provider/Channel/health domain shapes (MonoizeProvider,
// MonoizeChannel, ChannelHealthState) and on upstream.rs for the
// upstream-call/auth/URL-join semantics, reworked around stdlib
// net/http the way the teacher's internal/handlers/proxy.go and
// internal/providers/registry.go do it (no reqwest/sqlx equivalent
// exists in the corpus's Go stack).
package routing

import (
	"sync"
	"time"

	"github.com/monoize-go/monoize/internal/transform"
)

// Dialect identifies the wire protocol a Provider speaks upstream.
type Dialect string

const (
	DialectResponses      Dialect = "responses"
	DialectChatCompletion Dialect = "chat_completion"
	DialectMessages       Dialect = "messages"
	DialectGemini         Dialect = "gemini"
	DialectGrok           Dialect = "grok"
)

// AuthType selects how a channel's API key is attached to an upstream
// request. Grounded on upstream.rs's ProviderAuthType (Bearer/Header/
// Query) and proxy.go's setAuthHeader gemini special-case.
type AuthType string

const (
	AuthBearer AuthType = "bearer"
	AuthHeader AuthType = "header"
	AuthQuery  AuthType = "query"
)

// ModelEntry describes one logical model a Provider serves. Grounded on
// MonoizeModelEntry { redirect, multiplier }.
type ModelEntry struct {
	Redirect   string
	Multiplier float64
}

// RetryPolicy holds the attempt-loop parameters from spec.md §4.3.3.
type RetryPolicy struct {
	MaxAttempts   int
	BackoffMs     []int
	RetryOn       []FailureClass
	NonRetryCodes []string
	FallbackOn    []FailureClass
}

// DefaultRetryPolicy mirrors MonoizeProvider's default max_retries (-1 =
// use the default attempt count) as a bounded attempt count of 3,
// plus the standard retry-eligible failure classes from spec.md §4.3.3.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BackoffMs:     []int{100, 500, 1500},
		RetryOn:       []FailureClass{FailureNetwork, FailureHTTP408, FailureHTTP429, FailureHTTP5xx},
		NonRetryCodes: nil,
		FallbackOn:    []FailureClass{FailureRetryExhausted, FailureNonRetryable},
	}
}

// Provider owns an ordered set of Channels and a model catalogue.
// Grounded on MonoizeProvider.
type Provider struct {
	ID       string
	Name     string
	Dialect  Dialect
	Models   map[string]ModelEntry
	Channels []*Channel
	Enabled  bool
	Priority int
	Retry    RetryPolicy
	// Transforms are appended after a principal's own rules to build
	// the effective per-request rule list, per spec.md §4.2.2:
	// `principal.transforms ++ provider.transforms`.
	Transforms []transform.Rule

	rrCounter uint64 // per-provider weighted-round-robin cursor, spec.md §5
}

// Channel is a (base_url, api_key) endpoint within a Provider — the
// unit of load balancing and health. Grounded on MonoizeChannel.
type Channel struct {
	ID       string
	Name     string
	BaseURL  string
	APIKey   string
	AuthType AuthType
	// HeaderName/QueryName name the credential field when AuthType is
	// AuthHeader/AuthQuery; default to x-api-key/api_key per spec.md §6.
	HeaderName string
	QueryName  string
	Weight     int
	Enabled    bool

	mu     sync.RWMutex
	health ChannelHealth
}

// ChannelHealth is shared mutable passive+active health state. Mutation
// always goes through Channel.RecordSuccess/RecordFailure/RecordProbe
// so last_success_at/cooldown_until update atomically under one lock,
// per spec.md §5's single-writer discipline. Grounded on
// ChannelHealthState.
type ChannelHealth struct {
	Healthy            bool
	ConsecutiveFailure uint32
	LastSuccessAt      *time.Time
	CooldownUntil      *time.Time
	ProbeSuccessCount  uint32

	// samples is the passive_window_seconds ring used by the windowed
	// rate detector (spec.md §4.3.4); empty whenever that detector is
	// disabled (PassiveHealthConfig.WindowSeconds == 0).
	samples []healthSample
}

// healthSample is one outcome recorded for the windowed rate detector.
type healthSample struct {
	at      time.Time
	failure bool
}

// Snapshot returns a copy of the channel's current health state,
// acquiring only a shared read lock — never held across I/O, per
// spec.md §5.
func (c *Channel) Snapshot() ChannelHealth {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// Status renders the health snapshot as the three-state observability
// string from spec.md §4.3.4.
func (h ChannelHealth) Status(now time.Time) string {
	if h.Healthy {
		return "healthy"
	}
	if h.CooldownUntil != nil && now.Before(*h.CooldownUntil) {
		return "unhealthy"
	}
	return "probing"
}

// Selectable reports whether the channel may be chosen for an attempt:
// enabled, and either already healthy or past its cooldown (probing).
func (c *Channel) Selectable(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	h := c.Snapshot()
	return h.Healthy || h.CooldownUntil == nil || !now.Before(*h.CooldownUntil)
}

// PassiveHealthConfig parameterizes the passive failure/recovery FSM.
type PassiveHealthConfig struct {
	FailureThreshold  uint32
	CooldownSeconds   uint64
	RateLimitCooldown uint64 // shorter cooldown for HTTP 429, spec.md §4.3.4

	// WindowSeconds/MinSamples/FailureRateThreshold parameterize the
	// optional windowed rate detector (spec.md §4.3.4): within the last
	// WindowSeconds, if samples >= MinSamples and failure_rate >=
	// FailureRateThreshold, the channel is forced unhealthy regardless
	// of the consecutive-failure streak. WindowSeconds == 0 disables
	// the detector entirely — it coexists with, and never replaces,
	// the consecutive-failure threshold above.
	WindowSeconds        uint64
	MinSamples           uint32
	FailureRateThreshold float64
}

func DefaultPassiveHealthConfig() PassiveHealthConfig {
	return PassiveHealthConfig{FailureThreshold: 3, CooldownSeconds: 60, RateLimitCooldown: 10}
}

// recordSample appends an outcome to the windowed-detector ring and
// evicts anything older than windowSeconds. Caller holds c.mu.
func (c *Channel) recordSample(now time.Time, failure bool, windowSeconds uint64) {
	if windowSeconds == 0 {
		c.health.samples = nil
		return
	}
	c.health.samples = append(c.health.samples, healthSample{at: now, failure: failure})
	cutoff := now.Add(-time.Duration(windowSeconds) * time.Second)
	i := 0
	for i < len(c.health.samples) && c.health.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.health.samples = c.health.samples[i:]
	}
}

// windowedRateTripped reports whether the windowed rate detector's
// condition currently holds. Caller holds c.mu.
func (c *Channel) windowedRateTripped(cfg PassiveHealthConfig) bool {
	if cfg.WindowSeconds == 0 || cfg.MinSamples == 0 {
		return false
	}
	samples := uint32(len(c.health.samples))
	if samples < cfg.MinSamples {
		return false
	}
	var failures uint32
	for _, s := range c.health.samples {
		if s.failure {
			failures++
		}
	}
	return float64(failures)/float64(samples) >= cfg.FailureRateThreshold
}

// RecordSuccess resets the passive failure state, per spec.md §4.3.4.
func (c *Channel) RecordSuccess(now time.Time, cfg PassiveHealthConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.health.ConsecutiveFailure = 0
	c.health.Healthy = true
	c.health.CooldownUntil = nil
	t := now
	c.health.LastSuccessAt = &t
	c.recordSample(now, false, cfg.WindowSeconds)
}

// RecordFailure increments the consecutive-failure counter and flips
// the channel unhealthy once either the consecutive-failure threshold
// or the windowed rate detector trips — two independent triggers on
// the same ChannelHealth, first one to fire wins. rateLimited selects
// the shorter 429 cooldown when true.
func (c *Channel) RecordFailure(now time.Time, cfg PassiveHealthConfig, rateLimited bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.health.ConsecutiveFailure++
	c.recordSample(now, true, cfg.WindowSeconds)

	tripped := c.health.ConsecutiveFailure >= cfg.FailureThreshold || c.windowedRateTripped(cfg)
	if tripped {
		c.health.Healthy = false
		cooldown := cfg.CooldownSeconds
		if rateLimited && cfg.RateLimitCooldown > 0 {
			cooldown = cfg.RateLimitCooldown
		}
		until := now.Add(time.Duration(cooldown) * time.Second)
		c.health.CooldownUntil = &until
	}
}

// RecordProbe applies an active-probe result from spec.md §4.3.4: a
// success while unhealthy accumulates probe_success_count until it
// reaches threshold, at which point the channel becomes healthy again;
// any failure resets the counter.
func (c *Channel) RecordProbe(success bool, successThreshold uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !success {
		c.health.ProbeSuccessCount = 0
		return
	}
	if c.health.Healthy {
		return
	}
	c.health.ProbeSuccessCount++
	if c.health.ProbeSuccessCount >= successThreshold {
		c.health.Healthy = true
		c.health.ProbeSuccessCount = 0
		c.health.CooldownUntil = nil
	}
}

// NewChannel returns a Channel initialized healthy, matching
// ChannelHealthState::new's default.
func NewChannel(id, name, baseURL, apiKey string) *Channel {
	return &Channel{
		ID: id, Name: name, BaseURL: baseURL, APIKey: apiKey,
		AuthType: AuthBearer, Weight: 1, Enabled: true,
		health: ChannelHealth{Healthy: true},
	}
}
