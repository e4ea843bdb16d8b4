package routing

import (
	"context"
	"net/http"
	"time"
)

// ActiveProbeConfig parameterizes the periodic active-health task from
// spec.md §4.3.4, grounded on MonoizeRuntimeConfig's
// active_enabled/active_interval_seconds/active_success_threshold/
// active_method defaults.
type ActiveProbeConfig struct {
	Enabled          bool
	Interval         time.Duration
	Timeout          time.Duration
	SuccessThreshold uint32
}

func DefaultActiveProbeConfig() ActiveProbeConfig {
	return ActiveProbeConfig{
		Enabled:          true,
		Interval:         30 * time.Second,
		Timeout:          5 * time.Second,
		SuccessThreshold: 1,
	}
}

// RunActiveProbes runs one ticking loop; on each tick it takes a
// registry snapshot, probes its channels with list_models and feeds
// each result into Channel.RecordProbe. It blocks until ctx is canceled, so callers run
// it as its own goroutine — one logical background task, per spec.md
// §5, distinct from the per-request dispatch tasks. Only channels
// currently unhealthy are probed; healthy channels are skipped to
// avoid needless upstream traffic.
func RunActiveProbes(ctx context.Context, reg *Registry, client *http.Client, cfg ActiveProbeConfig) {
	if !cfg.Enabled {
		return
	}
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeOnce(ctx, reg, client, cfg)
		}
	}
}

func probeOnce(ctx context.Context, reg *Registry, client *http.Client, cfg ActiveProbeConfig) {
	for _, p := range reg.Providers() {
		for _, c := range p.Channels {
			if c.Snapshot().Healthy || !c.Enabled {
				continue
			}
			ok := ProbeListModels(ctx, client, c, cfg.Timeout)
			c.RecordProbe(ok, cfg.SuccessThreshold)
		}
	}
}
