// Package grok implements the xAI Grok dialect. Grok's wire format is
// treated as identical to OpenAI Responses for both directions — the
// original decode/grok.rs and encode/grok.rs are pure delegations to
// their openai_responses counterparts, and this package mirrors that.
package grok

import (
	"github.com/monoize-go/monoize/internal/codec/openairesponses"
	"github.com/monoize-go/monoize/internal/urp"
)

func DecodeRequest(raw map[string]any) (*urp.Request, error) {
	return openairesponses.DecodeRequest(raw)
}

func DecodeResponse(raw map[string]any) (*urp.Response, error) {
	return openairesponses.DecodeResponse(raw)
}

func EncodeRequest(req *urp.Request, upstreamModel string) map[string]any {
	return openairesponses.EncodeRequest(req, upstreamModel)
}

func EncodeResponse(resp *urp.Response, logicalModel string) map[string]any {
	return openairesponses.EncodeResponse(resp, logicalModel)
}

func NewDecodeState() *openairesponses.DecodeState { return openairesponses.NewDecodeState() }
func NewEncodeState() *openairesponses.EncodeState { return openairesponses.NewEncodeState() }
