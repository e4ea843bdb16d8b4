package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func buildPath(d Dialect, upstreamModel string) string {
	return DialectPath(d, upstreamModel, false)
}

func TestDispatchSucceedsOnFirstHealthyChannel(t *testing.T) {
	up := newTestServer(t, 200, `{"id":"resp_1"}`)
	ch := NewChannel("ch1", "primary", up.URL, "sk-1")
	p := &Provider{
		ID: "p", Enabled: true, Dialect: DialectMessages, Retry: DefaultRetryPolicy(),
		Models:   map[string]ModelEntry{"claude-3-5-sonnet": {}},
		Channels: []*Channel{ch},
	}
	reg := NewRegistry()
	reg.SetProviders([]*Provider{p})

	cfg := DefaultDispatchConfig()
	outcome, err := Dispatch(context.Background(), reg, cfg, "claude-3-5-sonnet", []byte(`{}`), buildPath)
	require.NoError(t, err)
	assert.Equal(t, 200, outcome.Result.StatusCode)
	assert.Equal(t, "ch1", outcome.Channel.ID)
	assert.True(t, ch.Snapshot().Healthy)
}

func TestDispatchFailoverScenarioS5(t *testing.T) {
	// Provider A's only channel is already unhealthy (outside its
	// cooldown window is irrelevant — it's excluded purely because
	// health.Healthy is false and cooldown hasn't elapsed). Provider B
	// is healthy and serves the same logical model at lower priority.
	// The request must succeed via B with the logical model unchanged.
	down := newTestServer(t, 500, `{"error":{"message":"down"}}`)
	up := newTestServer(t, 200, `{"id":"resp_ok"}`)

	chA := NewChannel("chA", "a", down.URL, "sk-a")
	now := time.Now()
	chA.RecordFailure(now, PassiveHealthConfig{FailureThreshold: 1, CooldownSeconds: 60}, false)
	require.False(t, chA.Snapshot().Healthy)

	chB := NewChannel("chB", "b", up.URL, "sk-b")

	retry := DefaultRetryPolicy()
	retry.MaxAttempts = 1
	providerA := &Provider{
		ID: "A", Priority: 0, Enabled: true, Dialect: DialectMessages, Retry: retry,
		Models:   map[string]ModelEntry{"claude-3-5-sonnet": {}},
		Channels: []*Channel{chA},
	}
	providerB := &Provider{
		ID: "B", Priority: 1, Enabled: true, Dialect: DialectMessages, Retry: retry,
		Models:   map[string]ModelEntry{"claude-3-5-sonnet": {}},
		Channels: []*Channel{chB},
	}
	reg := NewRegistry()
	reg.SetProviders([]*Provider{providerA, providerB})

	cfg := DefaultDispatchConfig()
	outcome, err := Dispatch(context.Background(), reg, cfg, "claude-3-5-sonnet", []byte(`{}`), buildPath)
	require.NoError(t, err)
	assert.Equal(t, "B", outcome.Provider.ID)
	assert.Equal(t, "chB", outcome.Channel.ID)
	assert.Equal(t, 200, outcome.Result.StatusCode)
}

func TestDispatchRetriesWithinProviderOnHTTP5xxThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(500)
			w.Write([]byte(`{"error":{"message":"transient"}}`))
			return
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"id":"resp_ok"}`))
	}))
	t.Cleanup(srv.Close)

	ch := NewChannel("ch1", "primary", srv.URL, "sk-1")
	retry := DefaultRetryPolicy()
	retry.MaxAttempts = 3
	retry.BackoffMs = []int{1, 1, 1}
	p := &Provider{
		ID: "p", Enabled: true, Dialect: DialectMessages, Retry: retry,
		Models:   map[string]ModelEntry{"m": {}},
		Channels: []*Channel{ch},
	}
	reg := NewRegistry()
	reg.SetProviders([]*Provider{p})

	cfg := DefaultDispatchConfig()
	outcome, err := Dispatch(context.Background(), reg, cfg, "m", []byte(`{}`), buildPath)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 200, outcome.Result.StatusCode)
}

func TestDispatchNonRetryableErrorCodeShortCircuits(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(400)
		w.Write([]byte(`{"error":{"code":"invalid_api_key","message":"bad key"}}`))
	}))
	t.Cleanup(srv.Close)

	ch := NewChannel("ch1", "primary", srv.URL, "sk-1")
	retry := DefaultRetryPolicy()
	retry.MaxAttempts = 3
	retry.NonRetryCodes = []string{"invalid_api_key"}
	retry.FallbackOn = nil
	p := &Provider{
		ID: "p", Enabled: true, Dialect: DialectMessages, Retry: retry,
		Models:   map[string]ModelEntry{"m": {}},
		Channels: []*Channel{ch},
	}
	reg := NewRegistry()
	reg.SetProviders([]*Provider{p})

	cfg := DefaultDispatchConfig()
	_, err := Dispatch(context.Background(), reg, cfg, "m", []byte(`{}`), buildPath)
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "a non_retry_codes match must short-circuit on the first attempt")
}

func TestDispatchNoHealthyChannelErrors(t *testing.T) {
	ch := NewChannel("ch1", "primary", "https://example.invalid", "sk-1")
	ch.Enabled = false
	p := &Provider{
		ID: "p", Enabled: true, Dialect: DialectMessages, Retry: DefaultRetryPolicy(),
		Models:   map[string]ModelEntry{"m": {}},
		Channels: []*Channel{ch},
	}
	reg := NewRegistry()
	reg.SetProviders([]*Provider{p})

	cfg := DefaultDispatchConfig()
	_, err := Dispatch(context.Background(), reg, cfg, "m", []byte(`{}`), buildPath)
	require.Error(t, err)
}

func TestDispatchStreamReturnsLiveResponseOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(200)
		w.Write([]byte("data: {\"id\":\"chunk1\"}\n\n"))
	}))
	t.Cleanup(srv.Close)

	ch := NewChannel("ch1", "primary", srv.URL, "sk-1")
	p := &Provider{
		ID: "p", Enabled: true, Dialect: DialectMessages, Retry: DefaultRetryPolicy(),
		Models:   map[string]ModelEntry{"m": {}},
		Channels: []*Channel{ch},
	}
	reg := NewRegistry()
	reg.SetProviders([]*Provider{p})

	cfg := DefaultDispatchConfig()
	outcome, err := DispatchStream(context.Background(), reg, cfg, "m", []byte(`{}`), buildPath)
	require.NoError(t, err)
	defer outcome.Response.Body.Close()
	assert.Equal(t, 200, outcome.Response.StatusCode)
	assert.Equal(t, "ch1", outcome.Channel.ID)
}

func TestDispatchStreamFallsBackOnNonRetryableUpstreamStatus(t *testing.T) {
	down := newTestServer(t, 400, `{"error":{"code":"invalid_api_key"}}`)
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("data: {\"id\":\"chunk1\"}\n\n"))
	}))
	t.Cleanup(up.Close)

	retry := DefaultRetryPolicy()
	retry.MaxAttempts = 1
	chA := NewChannel("chA", "a", down.URL, "sk-a")
	chB := NewChannel("chB", "b", up.URL, "sk-b")
	providerA := &Provider{
		ID: "A", Priority: 0, Enabled: true, Dialect: DialectMessages, Retry: retry,
		Models: map[string]ModelEntry{"m": {}}, Channels: []*Channel{chA},
	}
	providerB := &Provider{
		ID: "B", Priority: 1, Enabled: true, Dialect: DialectMessages, Retry: retry,
		Models: map[string]ModelEntry{"m": {}}, Channels: []*Channel{chB},
	}
	reg := NewRegistry()
	reg.SetProviders([]*Provider{providerA, providerB})

	cfg := DefaultDispatchConfig()
	outcome, err := DispatchStream(context.Background(), reg, cfg, "m", []byte(`{}`), buildPath)
	require.NoError(t, err)
	defer outcome.Response.Body.Close()
	assert.Equal(t, "B", outcome.Provider.ID)
}
