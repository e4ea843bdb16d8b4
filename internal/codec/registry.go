package codec

import (
	"github.com/monoize-go/monoize/internal/codec/anthropic"
	"github.com/monoize-go/monoize/internal/codec/gemini"
	"github.com/monoize-go/monoize/internal/codec/grok"
	"github.com/monoize-go/monoize/internal/codec/openaichat"
	"github.com/monoize-go/monoize/internal/codec/openairesponses"
	"github.com/monoize-go/monoize/internal/routing"
	"github.com/monoize-go/monoize/internal/urp"
)

// Dialect bundles one wire dialect's non-streaming decode/encode pair,
// the ingress-side counterpart of streaming.Adapter. Built once at
// process init, read-only thereafter.
type Dialect struct {
	DecodeRequest  func(raw map[string]any) (*urp.Request, error)
	EncodeRequest  func(req *urp.Request, upstreamModel string) map[string]any
	DecodeResponse func(raw map[string]any) (*urp.Response, error)
	EncodeResponse func(resp *urp.Response, logicalModel string) map[string]any
}

// Dialects maps each routing.Dialect to its codec, so ingress handlers
// need only know the dialect a request arrived in and the dialect a
// provider speaks upstream.
var Dialects = map[routing.Dialect]Dialect{
	routing.DialectResponses: {
		DecodeRequest:  openairesponses.DecodeRequest,
		EncodeRequest:  openairesponses.EncodeRequest,
		DecodeResponse: openairesponses.DecodeResponse,
		EncodeResponse: openairesponses.EncodeResponse,
	},
	routing.DialectChatCompletion: {
		DecodeRequest:  openaichat.DecodeRequest,
		EncodeRequest:  openaichat.EncodeRequest,
		DecodeResponse: openaichat.DecodeResponse,
		EncodeResponse: openaichat.EncodeResponse,
	},
	routing.DialectMessages: {
		DecodeRequest:  anthropic.DecodeRequest,
		EncodeRequest:  anthropic.EncodeRequest,
		DecodeResponse: anthropic.DecodeResponse,
		EncodeResponse: anthropic.EncodeResponse,
	},
	routing.DialectGemini: {
		DecodeRequest:  gemini.DecodeRequest,
		EncodeRequest:  gemini.EncodeRequest,
		DecodeResponse: gemini.DecodeResponse,
		EncodeResponse: gemini.EncodeResponse,
	},
	routing.DialectGrok: {
		DecodeRequest:  grok.DecodeRequest,
		EncodeRequest:  grok.EncodeRequest,
		DecodeResponse: grok.DecodeResponse,
		EncodeResponse: grok.EncodeResponse,
	},
}
