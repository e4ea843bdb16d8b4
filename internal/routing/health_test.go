package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthFSMMonotonicity(t *testing.T) {
	c := NewChannel("ch1", "primary", "https://api.example.com", "sk-1")
	cfg := PassiveHealthConfig{FailureThreshold: 3, CooldownSeconds: 60}
	now := time.Now()

	for i := 0; i < int(cfg.FailureThreshold)-1; i++ {
		c.RecordFailure(now, cfg, false)
		assert.True(t, c.Snapshot().Healthy, "must stay healthy below threshold")
	}
	c.RecordFailure(now, cfg, false)
	require.False(t, c.Snapshot().Healthy, "must flip unhealthy once consecutive failures reach threshold")

	// A probe success short of the active success threshold must not
	// flip it back healthy.
	c.RecordProbe(true, 2)
	assert.False(t, c.Snapshot().Healthy)
	c.RecordProbe(true, 2)
	assert.True(t, c.Snapshot().Healthy, "must recover once probe_success_count reaches active_success_threshold")
}

func TestPassiveCooldownScenario(t *testing.T) {
	// Scenario S6: three consecutive HTTP 500s flip the channel
	// unhealthy with a 60s cooldown; a probe after the cooldown with
	// threshold 1 flips it healthy again.
	c := NewChannel("ch1", "primary", "https://api.example.com", "sk-1")
	cfg := PassiveHealthConfig{FailureThreshold: 3, CooldownSeconds: 60}
	t0 := time.Now()

	c.RecordFailure(t0, cfg, false)
	c.RecordFailure(t0, cfg, false)
	c.RecordFailure(t0, cfg, false)

	snap := c.Snapshot()
	require.False(t, snap.Healthy)
	require.NotNil(t, snap.CooldownUntil)
	assert.WithinDuration(t, t0.Add(60*time.Second), *snap.CooldownUntil, time.Second)
	assert.Equal(t, "unhealthy", snap.Status(t0.Add(30*time.Second)))
	assert.Equal(t, "probing", snap.Status(t0.Add(61*time.Second)))

	c.RecordProbe(true, 1)
	assert.True(t, c.Snapshot().Healthy)
}

func TestRecordFailureUsesShorterRateLimitCooldown(t *testing.T) {
	c := NewChannel("ch1", "primary", "https://api.example.com", "sk-1")
	cfg := PassiveHealthConfig{FailureThreshold: 1, CooldownSeconds: 60, RateLimitCooldown: 10}
	t0 := time.Now()

	c.RecordFailure(t0, cfg, true)
	snap := c.Snapshot()
	require.NotNil(t, snap.CooldownUntil)
	assert.WithinDuration(t, t0.Add(10*time.Second), *snap.CooldownUntil, time.Second)
}

func TestRecordSuccessResetsFailureState(t *testing.T) {
	c := NewChannel("ch1", "primary", "https://api.example.com", "sk-1")
	cfg := PassiveHealthConfig{FailureThreshold: 3, CooldownSeconds: 60}
	t0 := time.Now()
	c.RecordFailure(t0, cfg, false)
	c.RecordFailure(t0, cfg, false)
	c.RecordSuccess(t0, cfg)

	snap := c.Snapshot()
	assert.True(t, snap.Healthy)
	assert.Equal(t, uint32(0), snap.ConsecutiveFailure)
	assert.Nil(t, snap.CooldownUntil)
	require.NotNil(t, snap.LastSuccessAt)
}

func TestWindowedRateDetectorTripsBelowConsecutiveThreshold(t *testing.T) {
	// Four failures and one success within the window give an 80%
	// failure rate; the consecutive streak (3) stays well below its
	// threshold of 10, but the rate is past the windowed detector's
	// threshold of 0.5 at 5 samples.
	c := NewChannel("ch1", "primary", "https://api.example.com", "sk-1")
	cfg := PassiveHealthConfig{
		FailureThreshold: 10, CooldownSeconds: 60,
		WindowSeconds: 60, MinSamples: 5, FailureRateThreshold: 0.5,
	}
	t0 := time.Now()

	c.RecordFailure(t0, cfg, false)
	c.RecordSuccess(t0, cfg)
	assert.True(t, c.Snapshot().Healthy, "must stay healthy below MinSamples")

	c.RecordFailure(t0, cfg, false)
	c.RecordFailure(t0, cfg, false)
	c.RecordFailure(t0, cfg, false)
	require.False(t, c.Snapshot().Healthy, "windowed rate detector must trip independently of the consecutive-failure threshold")
}

func TestWindowedRateDetectorIgnoresSamplesOutsideWindow(t *testing.T) {
	c := NewChannel("ch1", "primary", "https://api.example.com", "sk-1")
	cfg := PassiveHealthConfig{
		FailureThreshold: 10, CooldownSeconds: 60,
		WindowSeconds: 30, MinSamples: 3, FailureRateThreshold: 0.5,
	}
	t0 := time.Now()

	c.RecordFailure(t0, cfg, false)
	c.RecordFailure(t0, cfg, false)
	// Past the window: these failures must have been evicted by the
	// time the third failure lands, so the detector has only one
	// sample and must not trip.
	c.RecordFailure(t0.Add(31*time.Second), cfg, false)
	assert.True(t, c.Snapshot().Healthy, "failures older than WindowSeconds must not count toward the rate")
}

func TestSelectableReflectsCooldown(t *testing.T) {
	c := NewChannel("ch1", "primary", "https://api.example.com", "sk-1")
	cfg := PassiveHealthConfig{FailureThreshold: 1, CooldownSeconds: 60}
	t0 := time.Now()
	c.RecordFailure(t0, cfg, false)

	assert.False(t, c.Selectable(t0.Add(10*time.Second)))
	assert.True(t, c.Selectable(t0.Add(61*time.Second)), "probing channels are selectable")
}
