package streaming

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/monoize-go/monoize/internal/routing"
	"github.com/monoize-go/monoize/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeUpstreamResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestPumpDecodesResponsesEncodesAnthropic(t *testing.T) {
	upstream := strings.Join([]string{
		`data: {"type":"response.created","response":{"id":"resp_1","model":"gpt-4o"}}`,
		"",
		`data: {"type":"response.output_item.added","output_index":0,"item":{"type":"message"}}`,
		"",
		`data: {"type":"response.output_text.delta","output_index":0,"delta":"hi"}`,
		"",
		`data: {"type":"response.output_item.done","output_index":0}`,
		"",
		`data: {"type":"response.completed","response":{"status":"completed","usage":{"input_tokens":1,"output_tokens":1}}}`,
		"",
		"data: [DONE]",
		"",
	}, "\n")

	rec := httptest.NewRecorder()
	reg := transform.NewRegistry()
	err := Pump(context.Background(), rec, fakeUpstreamResponse(upstream), routing.DialectResponses, routing.DialectMessages, nil, nil, "claude-3-5-sonnet", reg, "resp_1", "claude-3-5-sonnet")
	require.NoError(t, err)

	out := rec.Body.String()
	assert.Contains(t, out, "event: message_start")
	assert.Contains(t, out, `"text_delta"`)
	assert.Contains(t, out, "event: message_stop")
	assert.Contains(t, out, "data: [DONE]")
}

func TestPumpMalformedFrameEmitsErrorAndStops(t *testing.T) {
	upstream := "data: {not json}\n\ndata: [DONE]\n\n"
	rec := httptest.NewRecorder()
	reg := transform.NewRegistry()
	err := Pump(context.Background(), rec, fakeUpstreamResponse(upstream), routing.DialectResponses, routing.DialectMessages, nil, nil, "m", reg, "resp_1", "m")
	require.Error(t, err)

	out := rec.Body.String()
	assert.Contains(t, out, `"error"`)
	assert.NotContains(t, out, "[DONE]", "a malformed frame must terminate the stream, not continue past it")
}

func TestPumpUnknownDialectErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	reg := transform.NewRegistry()
	err := Pump(context.Background(), rec, fakeUpstreamResponse(""), routing.Dialect("bogus"), routing.DialectMessages, nil, nil, "m", reg, "id", "m")
	require.Error(t, err)
}

func TestScannerHandlesDoneWithoutTrailingNewline(t *testing.T) {
	// sanity check bufio.Scanner line semantics used by Pump
	s := bufio.NewScanner(strings.NewReader("data: [DONE]"))
	require.True(t, s.Scan())
	assert.Equal(t, "data: [DONE]", s.Text())
}
