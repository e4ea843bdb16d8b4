package streaming

import (
	"github.com/monoize-go/monoize/internal/codec/anthropic"
	"github.com/monoize-go/monoize/internal/codec/gemini"
	"github.com/monoize-go/monoize/internal/codec/grok"
	"github.com/monoize-go/monoize/internal/codec/openaichat"
	"github.com/monoize-go/monoize/internal/codec/openairesponses"
	"github.com/monoize-go/monoize/internal/routing"
)

// Adapters maps each wire dialect to its streaming Adapter. Built once
// at process init, read-only thereafter — mirrors spec.md §5's "no
// global mutable state beyond registry and health store".
var Adapters = map[routing.Dialect]Adapter{
	routing.DialectResponses: {
		NewDecodeState: func() DecodeState { return openairesponses.NewDecodeState() },
		NewEncodeState: func() EncodeState { return openairesponses.NewEncodeState() },
		NamedEvents:    true,
	},
	routing.DialectChatCompletion: {
		NewDecodeState: func() DecodeState { return openaichat.NewDecodeState() },
		NewEncodeState: func() EncodeState { return openaichat.NewEncodeState() },
		NamedEvents:    false,
	},
	routing.DialectMessages: {
		NewDecodeState: func() DecodeState { return anthropic.NewDecodeState() },
		NewEncodeState: func() EncodeState { return anthropic.NewEncodeState() },
		NamedEvents:    true,
	},
	routing.DialectGemini: {
		NewDecodeState: func() DecodeState { return gemini.NewDecodeState() },
		NewEncodeState: func() EncodeState { return gemini.NewEncodeState() },
		NamedEvents:    false,
	},
	routing.DialectGrok: {
		NewDecodeState: func() DecodeState { return grok.NewDecodeState() },
		NewEncodeState: func() EncodeState { return grok.NewEncodeState() },
		NamedEvents:    true,
	},
}
