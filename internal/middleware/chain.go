package middleware

import (
	"log/slog"
	"net/http"

	"github.com/monoize-go/monoize/internal/core"
)

// Middleware wraps a handler with cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Chain is an ordered sequence of Middleware.
type Chain struct {
	middlewares []Middleware
}

// New creates a new middleware chain.
func New(middlewares ...Middleware) Chain {
	return Chain{middlewares: middlewares}
}

// Then adds more middleware to the chain.
func (c Chain) Then(middlewares ...Middleware) Chain {
	return Chain{middlewares: append(c.middlewares, middlewares...)}
}

// Handler applies all middleware in the chain to handler, outermost first.
func (c Chain) Handler(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}

// Set bundles the proxy's standard middleware for composition across
// the ingress endpoints.
type Set struct {
	BlockedPaths Middleware
	Logging      Middleware
	Auth         Middleware
}

// NewSet wires a Set from an Authenticator and logger, grounded on the
// teacher's NewMiddlewareSet.
func NewSet(authenticator core.Authenticator, logger *slog.Logger, blockRules ...BlockRule) Set {
	return Set{
		BlockedPaths: NewBlockedPathMiddleware(logger, blockRules...),
		Logging:      NewLoggingMiddleware(logger),
		Auth:         NewAuthMiddleware(authenticator, logger),
	}
}

// DefaultChain is the standard chain for authenticated API endpoints.
func (s Set) DefaultChain() Chain {
	return New(s.BlockedPaths, s.Logging, s.Auth)
}

// HealthChain is for unauthenticated health/status endpoints.
func (s Set) HealthChain() Chain {
	return New(s.BlockedPaths, s.Logging)
}

// PublicChain is for unauthenticated endpoints that skip request
// logging (e.g. the probe paths blocklist itself).
func (s Set) PublicChain() Chain {
	return New(s.BlockedPaths)
}
