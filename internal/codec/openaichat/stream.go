package openaichat

import "github.com/monoize-go/monoize/internal/urp"

// DecodeState tracks per-stream bookkeeping for chat.completion.chunk
// SSE payloads: a chunk never announces a part boundary explicitly, so
// the first delta that introduces a given tool-call index or content
// kind implicitly opens it here. No streaming-specific Rust source was
// retrievable; this is grounded on the publicly documented
// chat.completion.chunk delta shape (delta.content/delta.tool_calls
// [].function.arguments/delta.reasoning), by analogy to the
// non-streaming message shapes in decode.go.
type DecodeState struct {
	started     bool
	textOpen    bool
	reasonOpen  bool
	toolIndex   map[float64]uint32
	nextIndex   uint32
}

func NewDecodeState() *DecodeState {
	// Part indices 0 and 1 are the reasoning and text parts; tool calls
	// are allocated after them.
	return &DecodeState{toolIndex: map[float64]uint32{}, nextIndex: 2}
}

func (s *DecodeState) alloc() uint32 {
	idx := s.nextIndex
	s.nextIndex++
	return idx
}

// DecodeStreamChunk decodes one parsed chat.completion.chunk object.
func (s *DecodeState) DecodeStreamChunk(raw map[string]any) []urp.StreamEvent {
	var events []urp.StreamEvent
	if !s.started {
		s.started = true
		id, _ := raw["id"].(string)
		model, _ := raw["model"].(string)
		events = append(events, urp.ResponseStart{ID: id, Model: model, ExtraBody: urp.ExtraBody{}})
	}

	choices, _ := raw["choices"].([]any)
	if len(choices) == 0 {
		return events
	}
	choice, _ := choices[0].(map[string]any)
	delta, _ := choice["delta"].(map[string]any)

	if reasoning, ok := delta["reasoning"].(string); ok && reasoning != "" {
		if !s.reasonOpen {
			s.reasonOpen = true
			events = append(events, urp.PartStart{PartIndex: 0, Part: urp.PartHeader{Kind: urp.PartHeaderReasoning}, ExtraBody: urp.ExtraBody{}})
		}
		events = append(events, urp.Delta{PartIndex: 0, Delta: urp.PartDelta{Kind: urp.PartDeltaReasoning, Content: reasoning}, ExtraBody: urp.ExtraBody{}})
	}

	if content, ok := delta["content"].(string); ok && content != "" {
		if !s.textOpen {
			s.textOpen = true
			events = append(events, urp.PartStart{PartIndex: 1, Part: urp.PartHeader{Kind: urp.PartHeaderText}, ExtraBody: urp.ExtraBody{}})
		}
		events = append(events, urp.Delta{PartIndex: 1, Delta: urp.PartDelta{Kind: urp.PartDeltaText, Content: content}, ExtraBody: urp.ExtraBody{}})
	}

	if toolCalls, ok := delta["tool_calls"].([]any); ok {
		for _, tc := range toolCalls {
			tcObj, ok := tc.(map[string]any)
			if !ok {
				continue
			}
			rawIdx, _ := tcObj["index"].(float64)
			idx, exists := s.toolIndex[rawIdx]
			fn, _ := tcObj["function"].(map[string]any)
			if !exists {
				idx = s.alloc()
				s.toolIndex[rawIdx] = idx
				callID, _ := tcObj["id"].(string)
				name, _ := fn["name"].(string)
				events = append(events, urp.PartStart{PartIndex: idx, Part: urp.PartHeader{Kind: urp.PartHeaderToolCall, CallID: callID, Name: name}, ExtraBody: urp.ExtraBody{}})
			}
			if args, ok := fn["arguments"].(string); ok && args != "" {
				events = append(events, urp.Delta{PartIndex: idx, Delta: urp.PartDelta{Kind: urp.PartDeltaToolCallArguments, Arguments: args}, ExtraBody: urp.ExtraBody{}})
			}
		}
	}

	if reason, ok := choice["finish_reason"].(string); ok && reason != "" {
		r := finishReasonFromChat(reason)
		var usage *urp.Usage
		if u, ok := raw["usage"].(map[string]any); ok {
			usage = decodeUsage(u)
		}
		events = append(events, urp.ResponseDone{FinishReason: &r, Usage: usage, ExtraBody: urp.ExtraBody{}})
	}

	return events
}

// EncodeState mirrors DecodeState for rendering URP stream events back
// into chat.completion.chunk payloads.
type EncodeState struct {
	kind map[uint32]urp.PartHeaderKind
	call map[uint32]string
	name map[uint32]string
}

func NewEncodeState() *EncodeState {
	return &EncodeState{kind: map[uint32]urp.PartHeaderKind{}, call: map[uint32]string{}, name: map[uint32]string{}}
}

func (s *EncodeState) EncodeStreamEvent(event urp.StreamEvent, id, model string) []map[string]any {
	chunk := func(delta map[string]any, finishReason any) map[string]any {
		return map[string]any{
			"id":      id,
			"object":  "chat.completion.chunk",
			"model":   model,
			"choices": []any{map[string]any{"index": 0, "delta": delta, "finish_reason": finishReason}},
		}
	}

	switch e := event.(type) {
	case urp.ResponseStart:
		return []map[string]any{chunk(map[string]any{"role": "assistant"}, nil)}
	case urp.PartStart:
		s.kind[e.PartIndex] = e.Part.Kind
		s.call[e.PartIndex] = e.Part.CallID
		s.name[e.PartIndex] = e.Part.Name
		if e.Part.Kind != urp.PartHeaderToolCall {
			return nil
		}
		return []map[string]any{chunk(map[string]any{
			"tool_calls": []any{map[string]any{
				"index": e.PartIndex, "id": e.Part.CallID, "type": "function",
				"function": map[string]any{"name": e.Part.Name, "arguments": ""},
			}},
		}, nil)}
	case urp.Delta:
		switch e.Delta.Kind {
		case urp.PartDeltaText:
			return []map[string]any{chunk(map[string]any{"content": e.Delta.Content}, nil)}
		case urp.PartDeltaReasoning:
			return []map[string]any{chunk(map[string]any{"reasoning": e.Delta.Content}, nil)}
		case urp.PartDeltaToolCallArguments:
			return []map[string]any{chunk(map[string]any{
				"tool_calls": []any{map[string]any{
					"index": e.PartIndex, "function": map[string]any{"arguments": e.Delta.Arguments},
				}},
			}, nil)}
		default:
			return nil
		}
	case urp.PartDone:
		return nil
	case urp.ResponseDone:
		finish := "stop"
		if e.FinishReason != nil {
			finish = finishReasonToChat(*e.FinishReason)
		}
		out := chunk(map[string]any{}, finish)
		if e.Usage != nil {
			var reasoningTokens, cachedTokens uint64
			if e.Usage.ReasoningTokens != nil {
				reasoningTokens = *e.Usage.ReasoningTokens
			}
			if e.Usage.CachedTokens != nil {
				cachedTokens = *e.Usage.CachedTokens
			}
			out["usage"] = map[string]any{
				"prompt_tokens":     e.Usage.PromptTokens,
				"completion_tokens": e.Usage.CompletionTokens,
				"total_tokens":      e.Usage.PromptTokens + e.Usage.CompletionTokens,
				"completion_tokens_details": map[string]any{"reasoning_tokens": reasoningTokens},
				"prompt_tokens_details":     map[string]any{"cached_tokens": cachedTokens},
			}
		}
		return []map[string]any{out}
	case urp.Error:
		errObj := map[string]any{"message": e.Message, "type": "api_error"}
		if e.Code != nil {
			errObj["code"] = *e.Code
		}
		return []map[string]any{{"error": errObj}}
	default:
		return nil
	}
}
