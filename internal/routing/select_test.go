package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedRoundRobinDistributionWithinTolerance(t *testing.T) {
	a := NewChannel("a", "a", "https://a", "k")
	a.Weight = 1
	b := NewChannel("b", "b", "https://b", "k")
	b.Weight = 3
	p := &Provider{ID: "p", Channels: []*Channel{a, b}, Enabled: true}

	counts := map[string]int{}
	const n = 4000
	now := time.Now()
	for i := 0; i < n; i++ {
		ch := p.SelectChannel(StrategyWeightedRoundRobin, now, nil)
		require.NotNil(t, ch)
		counts[ch.ID]++
	}

	tolerance := 1.0 / float64(n)
	assert.InDelta(t, 0.25, float64(counts["a"])/float64(n), tolerance+0.02)
	assert.InDelta(t, 0.75, float64(counts["b"])/float64(n), tolerance+0.02)
}

func TestFailoverAlwaysPicksFirstHealthyInInsertionOrder(t *testing.T) {
	a := NewChannel("a", "a", "https://a", "k")
	b := NewChannel("b", "b", "https://b", "k")
	p := &Provider{ID: "p", Channels: []*Channel{a, b}, Enabled: true}

	now := time.Now()
	ch := p.SelectChannel(StrategyFailover, now, nil)
	assert.Equal(t, "a", ch.ID)

	cfg := PassiveHealthConfig{FailureThreshold: 1, CooldownSeconds: 60}
	a.RecordFailure(now, cfg, false)
	ch = p.SelectChannel(StrategyFailover, now, nil)
	assert.Equal(t, "b", ch.ID, "must skip the now-unhealthy first channel")
}

func TestSelectChannelExcludesIDs(t *testing.T) {
	a := NewChannel("a", "a", "https://a", "k")
	b := NewChannel("b", "b", "https://b", "k")
	p := &Provider{ID: "p", Channels: []*Channel{a, b}, Enabled: true}

	now := time.Now()
	ch := p.SelectChannel(StrategyFailover, now, map[string]bool{"a": true})
	assert.Equal(t, "b", ch.ID)
}

func TestSelectChannelReturnsNilWhenExhausted(t *testing.T) {
	a := NewChannel("a", "a", "https://a", "k")
	p := &Provider{ID: "p", Channels: []*Channel{a}, Enabled: true}
	ch := p.SelectChannel(StrategyFailover, time.Now(), map[string]bool{"a": true})
	assert.Nil(t, ch)
}
