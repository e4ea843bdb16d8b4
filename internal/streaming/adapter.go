// Package streaming implements the SSE adapter from spec.md §4.4: it
// parses an upstream byte stream as SSE frames in the upstream
// dialect, decodes each frame to urp.StreamEvent, runs the
// response-phase transform pipeline over every event, and re-encodes
// the result into the client's dialect. Grounded on the teacher's
// internal/handlers/proxy.go handleStreamingResponse (bufio.Scanner
// SSE line loop, "data: [DONE]" handling, gzip/brotli decompression,
// per-line flush), generalized from "transform this one provider's
// chunk shape" into "decode upstream dialect -> URP -> encode client
// dialect" via the dialect-specific codec packages.
package streaming

import "github.com/monoize-go/monoize/internal/urp"

// DecodeState turns upstream dialect SSE payloads into URP stream
// events. Implemented by every codec dialect's own *DecodeState.
type DecodeState interface {
	DecodeStreamChunk(raw map[string]any) []urp.StreamEvent
}

// EncodeState turns URP stream events into client dialect SSE
// payloads. Implemented by every codec dialect's own *EncodeState.
type EncodeState interface {
	EncodeStreamEvent(event urp.StreamEvent, id, model string) []map[string]any
}

// Adapter binds a dialect to its stream state constructors and SSE
// framing convention.
type Adapter struct {
	NewDecodeState func() DecodeState
	NewEncodeState func() EncodeState
	// NamedEvents is true for dialects whose wire convention pairs a
	// "data: " line with a preceding "event: <type>" line (Anthropic's
	// Messages API, OpenAI's Responses API). Dialects without a
	// top-level discriminator field skip the event: line.
	NamedEvents bool
}
