package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// JoinUpstreamURL joins a channel's base_url with a request path,
// avoiding a doubled /v1/v1/... when the base already ends in /v1.
// Grounded verbatim on upstream.rs::join_url.
func JoinUpstreamURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	path = strings.TrimLeft(path, "/")
	if strings.HasSuffix(base, "/v1") {
		if path == "v1" {
			path = ""
		} else if rest, ok := strings.CutPrefix(path, "v1/"); ok {
			path = rest
		}
	}
	if path == "" {
		return base
	}
	return base + "/" + path
}

// ApplyAuth attaches a channel's credential to req according to its
// AuthType. Grounded on upstream.rs::apply_auth's three-way
// Bearer/Header/Query split, generalizing beyond proxy.go's narrower
// hardcoded 2-way switch.
func ApplyAuth(req *http.Request, c *Channel) error {
	switch c.AuthType {
	case AuthBearer, "":
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	case AuthHeader:
		name := c.HeaderName
		if name == "" {
			name = "x-api-key"
		}
		req.Header.Set(name, c.APIKey)
	case AuthQuery:
		name := c.QueryName
		if name == "" {
			name = "api_key"
		}
		q := req.URL.Query()
		q.Set(name, c.APIKey)
		req.URL.RawQuery = q.Encode()
	default:
		return fmt.Errorf("unknown auth type %q", c.AuthType)
	}
	return nil
}

// extractErrorCode digs error.code out of a non-2xx response body, per
// upstream.rs::extract_error_code.
func extractErrorCode(body []byte) string {
	var v map[string]any
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	errObj, ok := v["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}

// CallUpstream issues one HTTP POST against c at path, grounded on
// upstream.rs::call_upstream_raw_with_timeout_and_headers. It never
// returns an error for a non-2xx HTTP response — that is reported
// through the returned AttemptResult so the attempt loop can classify
// it; Err is reserved for transport failures (timeout, DNS, connection
// refused, context cancellation).
func CallUpstream(ctx context.Context, client *http.Client, c *Channel, path string, body []byte, timeout time.Duration, extraHeaders map[string]string) AttemptResult {
	reqURL := JoinUpstreamURL(c.BaseURL, path)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return AttemptResult{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := ApplyAuth(httpReq, c); err != nil {
		return AttemptResult{Err: err}
	}
	for k, v := range extraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return AttemptResult{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return AttemptResult{StatusCode: resp.StatusCode, Err: err}
	}

	result := AttemptResult{StatusCode: resp.StatusCode, Body: respBody}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.ErrorCode = extractErrorCode(respBody)
	}
	return result
}

// CallUpstreamStream issues one HTTP POST against c at path and, on a
// 2xx response, returns the live *http.Response for the caller to pump
// as an SSE stream — unlike CallUpstream it never buffers a successful
// body, so time-to-first-token isn't delayed by a full read. A non-2xx
// response is read in full (error bodies are small) and classified
// exactly as CallUpstream's result, with a nil *http.Response. No extra
// per-attempt deadline is layered onto ctx here: the teacher's
// handleStreamingResponse has none either, relying solely on the
// client request's own context for cancellation (spec.md §4.5's
// "dropping the client task cancels upstream I/O").
func CallUpstreamStream(ctx context.Context, client *http.Client, c *Channel, path string, body []byte, extraHeaders map[string]string) (*http.Response, AttemptResult, error) {
	reqURL := JoinUpstreamURL(c.BaseURL, path)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, AttemptResult{Err: err}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if err := ApplyAuth(httpReq, c); err != nil {
		return nil, AttemptResult{Err: err}, err
	}
	for k, v := range extraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, AttemptResult{Err: err}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, AttemptResult{StatusCode: resp.StatusCode, Err: readErr}, nil
		}
		return nil, AttemptResult{StatusCode: resp.StatusCode, Body: respBody, ErrorCode: extractErrorCode(respBody)}, nil
	}

	return resp, AttemptResult{StatusCode: resp.StatusCode}, nil
}

// ProbeListModels implements the active health probe from spec.md
// §4.3.4, grounded on monoize_routing.rs::probe_channel_list_models: a
// GET against {base_url}/v1/models with the channel's auth, returning
// true only on a 2xx response.
func ProbeListModels(ctx context.Context, client *http.Client, c *Channel, timeout time.Duration) bool {
	reqURL := JoinUpstreamURL(c.BaseURL, "v1/models")
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false
	}
	if err := ApplyAuth(httpReq, c); err != nil {
		return false
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
