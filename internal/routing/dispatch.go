package routing

import (
	"context"
	"net/http"
	"time"

	"github.com/monoize-go/monoize/internal/apperr"
)

// DialectPath returns the upstream request path for a provider's
// dialect, mirroring upstream.rs's call_responses/call_chat_completions
// /call_messages path constants plus the Gemini/Grok equivalents from
// spec.md §6.
func DialectPath(d Dialect, upstreamModel string, streaming bool) string {
	switch d {
	case DialectResponses, DialectGrok:
		return "v1/responses"
	case DialectChatCompletion:
		return "v1/chat/completions"
	case DialectMessages:
		return "v1/messages"
	case DialectGemini:
		method := "generateContent"
		if streaming {
			method = "streamGenerateContent"
		}
		return "v1beta/models/" + upstreamModel + ":" + method
	default:
		return "v1/responses"
	}
}

// DispatchConfig bundles the tunables an attempt loop needs beyond the
// per-provider RetryPolicy: the HTTP client, per-attempt timeout, and
// the passive-health thresholds. Defaults mirror
// MonoizeRuntimeConfig's request_timeout_ms/passive_failure_threshold/
// passive_cooldown_seconds.
type DispatchConfig struct {
	Client         *http.Client
	RequestTimeout time.Duration
	PassiveHealth  PassiveHealthConfig
	Strategy       Strategy
}

func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		Client:         &http.Client{},
		RequestTimeout: 30 * time.Second,
		PassiveHealth:  DefaultPassiveHealthConfig(),
		Strategy:       StrategyWeightedRoundRobin,
	}
}

// Outcome is the final result of a dispatch: either a successful
// upstream response body plus the channel that served it, or a
// terminal error.
type Outcome struct {
	Result     AttemptResult
	Provider   *Provider
	Channel    *Channel
	Resolution Resolution
}

// StreamOutcome is the streaming counterpart of Outcome: the live
// upstream *http.Response (caller owns closing its Body once the SSE
// pump finishes) plus the channel that served it.
type StreamOutcome struct {
	Response   *http.Response
	Provider   *Provider
	Channel    *Channel
	Resolution Resolution
}

// sleepBackoff pauses for ms milliseconds unless ctx is done first.
func sleepBackoff(ctx context.Context, ms int) error {
	if ms <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return nil
}

// Dispatch runs the full resolution + attempt loop from spec.md §4.3:
// resolve the logical model to a provider, select a channel per the
// provider's RetryPolicy/strategy, call upstream, classify the result,
// and on a retry-eligible failure retry within the same provider; on
// RetryExhausted/NonRetryable, fall back to the next provider in
// priority order that serves the model. Running out of attempts or
// channels on any failure other than NonRetryable counts as
// RetryExhausted. The request path comes from the caller's buildPath
// (it depends on the resolved provider's dialect and whether the
// request streams).
func Dispatch(ctx context.Context, reg *Registry, cfg DispatchConfig, logicalModel string, body []byte, buildPath func(d Dialect, upstreamModel string) string) (Outcome, error) {
	res, err := reg.ResolveModel(logicalModel)
	if err != nil {
		return Outcome{}, err
	}

	var lastErr error
	var lastClass FailureClass

	for {
		provider := res.Provider
		policy := provider.Retry
		if policy.MaxAttempts <= 0 {
			policy.MaxAttempts = 1
		}
		exclude := map[string]bool{}
		path := buildPath(provider.Dialect, res.UpstreamModel)

		for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
			now := time.Now()
			ch := provider.SelectChannel(cfg.Strategy, now, exclude)
			if ch == nil {
				lastErr = apperr.New(apperr.CodeNoHealthyChannel, "no healthy channel available")
				lastClass = FailureRetryExhausted
				break
			}

			result := CallUpstream(ctx, cfg.Client, ch, path, body, cfg.RequestTimeout, nil)
			class := Classify(result, policy.NonRetryCodes)

			if class == FailureNone {
				ch.RecordSuccess(now, cfg.PassiveHealth)
				return Outcome{Result: result, Provider: provider, Channel: ch, Resolution: res}, nil
			}

			ch.RecordFailure(now, cfg.PassiveHealth, class == FailureHTTP429)
			lastClass = class
			if result.Err != nil {
				lastErr = result.Err
			} else {
				lastErr = apperr.Newf(classForApperr(class, result.StatusCode), "upstream status %d", result.StatusCode)
			}

			if class == FailureNonRetryable {
				exclude[ch.ID] = true
				break
			}
			if retryEligible(class, policy.RetryOn) {
				ms := 0
				if len(policy.BackoffMs) > 0 {
					idx := attempt
					if idx >= len(policy.BackoffMs) {
						idx = len(policy.BackoffMs) - 1
					}
					ms = policy.BackoffMs[idx]
				}
				if err := sleepBackoff(ctx, ms); err != nil {
					return Outcome{}, err
				}
				continue
			}
			exclude[ch.ID] = true
		}

		if lastClass != FailureNonRetryable {
			lastClass = FailureRetryExhausted
		}
		if !fallbackEligible(lastClass, policy.FallbackOn) {
			return Outcome{}, lastErr
		}

		next, err := reg.NextResolution(logicalModel, provider)
		if err != nil {
			if lastErr != nil {
				return Outcome{}, lastErr
			}
			return Outcome{}, err
		}
		res = next
	}
}

// DispatchStream runs the identical resolve/select/retry/fallback loop
// as Dispatch, but for a streaming request: on success it returns the
// live upstream *http.Response (via CallUpstreamStream) instead of a
// buffered body, so the caller can pump it as an SSE stream without
// delaying time-to-first-token.
func DispatchStream(ctx context.Context, reg *Registry, cfg DispatchConfig, logicalModel string, body []byte, buildPath func(d Dialect, upstreamModel string) string) (StreamOutcome, error) {
	res, err := reg.ResolveModel(logicalModel)
	if err != nil {
		return StreamOutcome{}, err
	}

	var lastErr error
	var lastClass FailureClass

	for {
		provider := res.Provider
		policy := provider.Retry
		if policy.MaxAttempts <= 0 {
			policy.MaxAttempts = 1
		}
		exclude := map[string]bool{}
		path := buildPath(provider.Dialect, res.UpstreamModel)

		for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
			now := time.Now()
			ch := provider.SelectChannel(cfg.Strategy, now, exclude)
			if ch == nil {
				lastErr = apperr.New(apperr.CodeNoHealthyChannel, "no healthy channel available")
				lastClass = FailureRetryExhausted
				break
			}

			resp, result, callErr := CallUpstreamStream(ctx, cfg.Client, ch, path, body, nil)
			if callErr != nil {
				ch.RecordFailure(now, cfg.PassiveHealth, false)
				lastErr = callErr
				lastClass = FailureNetwork
				exclude[ch.ID] = true
				continue
			}

			class := Classify(result, policy.NonRetryCodes)
			if class == FailureNone {
				ch.RecordSuccess(now, cfg.PassiveHealth)
				return StreamOutcome{Response: resp, Provider: provider, Channel: ch, Resolution: res}, nil
			}

			ch.RecordFailure(now, cfg.PassiveHealth, class == FailureHTTP429)
			lastClass = class
			lastErr = apperr.Newf(classForApperr(class, result.StatusCode), "upstream status %d", result.StatusCode)

			if class == FailureNonRetryable {
				exclude[ch.ID] = true
				break
			}
			if retryEligible(class, policy.RetryOn) {
				ms := 0
				if len(policy.BackoffMs) > 0 {
					idx := attempt
					if idx >= len(policy.BackoffMs) {
						idx = len(policy.BackoffMs) - 1
					}
					ms = policy.BackoffMs[idx]
				}
				if err := sleepBackoff(ctx, ms); err != nil {
					return StreamOutcome{}, err
				}
				continue
			}
			exclude[ch.ID] = true
		}

		if lastClass != FailureNonRetryable {
			lastClass = FailureRetryExhausted
		}
		if !fallbackEligible(lastClass, policy.FallbackOn) {
			return StreamOutcome{}, lastErr
		}

		next, err := reg.NextResolution(logicalModel, provider)
		if err != nil {
			if lastErr != nil {
				return StreamOutcome{}, lastErr
			}
			return StreamOutcome{}, err
		}
		res = next
	}
}
