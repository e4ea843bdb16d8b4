package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monoize-go/monoize/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	auth := core.NewBearerAuthenticator()
	mw := NewAuthMiddleware(auth, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	rec := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareAttachesPrincipal(t *testing.T) {
	auth := core.NewBearerAuthenticator()
	auth.Register("sk-test-0123456789", &core.Principal{TenantID: "t1"})
	mw := NewAuthMiddleware(auth, testLogger())

	var gotTenant string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		gotTenant = p.TenantID
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	req.Header.Set("Authorization", "Bearer sk-test-0123456789")
	rec := httptest.NewRecorder()

	mw(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", gotTenant)
}

func TestAuthMiddlewareAcceptsXAPIKeyHeader(t *testing.T) {
	auth := core.NewBearerAuthenticator()
	auth.Register("sk-test-0123456789", &core.Principal{TenantID: "t1"})
	mw := NewAuthMiddleware(auth, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	req.Header.Set("x-api-key", "sk-test-0123456789")
	rec := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBlockedPathMiddlewareShortCircuitsMatchingRule(t *testing.T) {
	mw := NewBlockedPathMiddleware(testLogger(), DefaultBlockRules()...)

	req := httptest.NewRequest(http.MethodPost, "/v1/log_event", nil)
	req.Host = "statsig.anthropic.com"
	rec := httptest.NewRecorder()

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	mw(next).ServeHTTP(rec, req)

	assert.False(t, called, "blocked request must not reach next handler")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestBlockedPathMiddlewarePassesThroughUnmatchedRequests(t *testing.T) {
	mw := NewBlockedPathMiddleware(testLogger(), DefaultBlockRules()...)

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	req.Host = "proxy.example.com"
	rec := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	chain := New(trace("a"), trace("b")).Then(trace("c"))
	chain.Handler(okHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestLoggingMiddlewareCapturesStatus(t *testing.T) {
	mw := NewLoggingMiddleware(testLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
