package routing

import (
	"net/http"

	"github.com/monoize-go/monoize/internal/apperr"
)

// FailureClass categorizes the outcome of an upstream attempt for the
// purposes of the retry/fallback decision in spec.md §4.3.3.
type FailureClass string

const (
	FailureNone           FailureClass = ""
	FailureNetwork        FailureClass = "network"
	FailureHTTP408        FailureClass = "http_408"
	FailureHTTP429        FailureClass = "http_429"
	FailureHTTP5xx        FailureClass = "http_5xx"
	FailureRetryExhausted FailureClass = "retry_exhausted"
	FailureNonRetryable   FailureClass = "non_retryable"
)

// AttemptResult is what one call to an upstream channel produced.
type AttemptResult struct {
	StatusCode int
	Body       []byte
	ErrorCode  string // error.code extracted from a non-2xx body, if any
	Err        error  // transport-level error (timeout, DNS, connection refused, ...)
}

// Classify turns a raw attempt outcome into a FailureClass, or
// FailureNone on success. Grounded on upstream.rs's UpstreamErrorKind
// split (Network vs Http) plus spec.md §4.3.3's non_retry_codes
// short-circuit.
func Classify(res AttemptResult, nonRetryCodes []string) FailureClass {
	if res.Err != nil {
		return FailureNetwork
	}
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return FailureNone
	}
	for _, code := range nonRetryCodes {
		if res.ErrorCode != "" && res.ErrorCode == code {
			return FailureNonRetryable
		}
	}
	switch {
	case res.StatusCode == http.StatusRequestTimeout:
		return FailureHTTP408
	case res.StatusCode == http.StatusTooManyRequests:
		return FailureHTTP429
	case res.StatusCode >= 500:
		return FailureHTTP5xx
	default:
		return FailureNonRetryable
	}
}

// classForApperr maps a classified failure to the stable error code
// surfaced to clients when every attempt across every provider is
// exhausted.
func classForApperr(class FailureClass, statusCode int) apperr.Code {
	switch class {
	case FailureNetwork:
		return apperr.CodeUpstreamNetwork
	case FailureHTTP408, FailureHTTP429:
		return apperr.CodeUpstreamStatus4xx
	case FailureHTTP5xx:
		return apperr.CodeUpstreamStatus5xx
	default:
		if statusCode >= 500 {
			return apperr.CodeUpstreamStatus5xx
		}
		return apperr.CodeUpstreamStatus4xx
	}
}

// retryEligible reports whether class appears in the policy's RetryOn
// list.
func retryEligible(class FailureClass, retryOn []FailureClass) bool {
	for _, c := range retryOn {
		if c == class {
			return true
		}
	}
	return false
}

// fallbackEligible reports whether class appears in the policy's
// FallbackOn list.
func fallbackEligible(class FailureClass, fallbackOn []FailureClass) bool {
	for _, c := range fallbackOn {
		if c == class {
			return true
		}
	}
	return false
}
