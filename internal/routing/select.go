package routing

import (
	"sync/atomic"
	"time"
)

// Strategy names the channel-selection algorithm, per spec.md §4.3.2.
type Strategy string

const (
	StrategyWeightedRoundRobin Strategy = "weighted_round_robin"
	StrategyFailover           Strategy = "failover"
)

// candidates returns the channels selectable right now, in their
// original (insertion) order.
func candidates(channels []*Channel, now time.Time) []*Channel {
	out := make([]*Channel, 0, len(channels))
	for _, c := range channels {
		if c.Selectable(now) {
			out = append(out, c)
		}
	}
	return out
}

// SelectChannel picks one channel from p according to strategy and the
// exclude set (channels already tried/exhausted in this attempt loop).
// Returns nil if no candidate remains.
func (p *Provider) SelectChannel(strategy Strategy, now time.Time, exclude map[string]bool) *Channel {
	all := candidates(p.Channels, now)
	var eligible []*Channel
	for _, c := range all {
		if !exclude[c.ID] {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	switch strategy {
	case StrategyFailover:
		return eligible[0]
	default:
		return p.weightedPick(eligible)
	}
}

// weightedPick implements deterministic weighted round robin: a single
// atomic rolling counter per provider is advanced by one each call,
// and the channel whose cumulative weight range contains the counter
// modulo sumWeight is returned. Probability of selection is
// proportional to weight; ties (equal weight) resolve by insertion
// order because the cumulative ranges are built in that order.
// Grounded on spec.md §4.3.2 and the single-atomic-counter discipline
// from §5 ("per-provider round-robin counter is a single atomic
// integer").
func (p *Provider) weightedPick(eligible []*Channel) *Channel {
	sum := 0
	for _, c := range eligible {
		w := c.Weight
		if w <= 0 {
			w = 0
		}
		sum += w
	}
	if sum <= 0 {
		return eligible[0]
	}
	offset := int(atomic.AddUint64(&p.rrCounter, 1)-1) % sum
	cursor := 0
	for _, c := range eligible {
		w := c.Weight
		if w <= 0 {
			continue
		}
		cursor += w
		if offset < cursor {
			return c
		}
	}
	return eligible[len(eligible)-1]
}
