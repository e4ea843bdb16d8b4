package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// BlockRule short-circuits a request before it reaches routing,
// returning a canned response instead. Generalizes the teacher's two
// single-purpose middlewares (StatsigBlockerMiddleware,
// MetricsBlockerMiddleware), which each hardcoded one host/path pair
// and one canned response — here the same mechanism serves any
// "answer known non-API probe traffic without dispatching it" rule.
type BlockRule struct {
	Name         string
	HostContains string
	PathPrefixes []string
	Status       int
	Headers      map[string]string
	Body         string
}

func (r BlockRule) matches(host, path string) bool {
	if r.HostContains != "" && !strings.Contains(host, r.HostContains) {
		return false
	}
	if len(r.PathPrefixes) == 0 {
		return r.HostContains != ""
	}
	for _, prefix := range r.PathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// DefaultBlockRules reproduces the teacher's two hardcoded blockers
// (Claude Code's Statsig telemetry and its Anthropic metrics
// endpoint) as data, since clients speaking the Anthropic Messages
// dialect through this proxy are commonly Claude Code itself.
func DefaultBlockRules() []BlockRule {
	return []BlockRule{
		{
			Name:         "statsig-telemetry",
			HostContains: "statsig.anthropic.com",
			PathPrefixes: []string{"/v1/initialize", "/v1/log_event", "/v1/rgstr", "/statsig", "/telemetry", "/analytics"},
			Status:       http.StatusAccepted,
			Headers: map[string]string{
				"Content-Type":                     "application/json",
				"X-Content-Type-Options":           "nosniff",
				"Permissions-Policy":               "interest-cohort=()",
				"X-Frame-Options":                  "SAMEORIGIN",
				"Access-Control-Allow-Credentials": "true",
				"Access-Control-Allow-Origin":      "*",
			},
			Body: `{"success":true}`,
		},
		{
			Name:         "claude-code-metrics",
			HostContains: "api.anthropic.com",
			PathPrefixes: []string{"/api/claude_code/metrics", "/claude_code/metrics"},
			Status:       http.StatusOK,
			Headers: map[string]string{
				"Content-Type": "application/json",
			},
			Body: `{"accepted_count":0,"rejected_count":0}`,
		},
	}
}

// BlockedPathMiddleware answers requests matching any configured
// BlockRule with that rule's canned response instead of forwarding
// them further down the chain.
type BlockedPathMiddleware struct {
	rules  []BlockRule
	logger *slog.Logger
}

func NewBlockedPathMiddleware(logger *slog.Logger, rules ...BlockRule) Middleware {
	bp := &BlockedPathMiddleware{rules: rules, logger: logger}
	return bp.middleware
}

func (bp *BlockedPathMiddleware) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if host == "" {
			host = r.Header.Get("Host")
		}

		for _, rule := range bp.rules {
			if rule.matches(host, r.URL.Path) {
				bp.respond(w, rule)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (bp *BlockedPathMiddleware) respond(w http.ResponseWriter, rule BlockRule) {
	for k, v := range rule.Headers {
		w.Header().Set(k, v)
	}
	status := rule.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if rule.Body != "" {
		w.Write([]byte(rule.Body))
	}
}
