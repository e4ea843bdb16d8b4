package anthropic

import "github.com/monoize-go/monoize/internal/urp"

// DecodeState tracks per-stream bookkeeping for turning Messages API SSE
// events (message_start/content_block_start/content_block_delta/
// content_block_stop/message_delta/message_stop) into URP stream events.
type DecodeState struct {
	started bool
}

func NewDecodeState() *DecodeState { return &DecodeState{} }

// DecodeStreamChunk turns one parsed Messages API SSE payload into zero
// or more URP stream events, by analogy to the non-streaming content
// block shapes in decode.go (no streaming-specific Rust source was
// retrievable; this mirrors Anthropic's publicly documented event
// taxonomy).
func (s *DecodeState) DecodeStreamChunk(raw map[string]any) []urp.StreamEvent {
	eventType, _ := raw["type"].(string)
	switch eventType {
	case "message_start":
		if s.started {
			return nil
		}
		s.started = true
		msg, _ := raw["message"].(map[string]any)
		id, _ := msg["id"].(string)
		model, _ := msg["model"].(string)
		return []urp.StreamEvent{urp.ResponseStart{ID: id, Model: model, ExtraBody: urp.ExtraBody{}}}

	case "content_block_start":
		idx, _ := raw["index"].(float64)
		block, _ := raw["content_block"].(map[string]any)
		blockType, _ := block["type"].(string)
		header := urp.PartHeader{Kind: urp.PartHeaderText}
		switch blockType {
		case "thinking":
			header.Kind = urp.PartHeaderReasoning
		case "tool_use":
			header.Kind = urp.PartHeaderToolCall
			header.CallID, _ = block["id"].(string)
			header.Name, _ = block["name"].(string)
		}
		return []urp.StreamEvent{urp.PartStart{PartIndex: uint32(idx), Part: header, ExtraBody: urp.ExtraBody{}}}

	case "content_block_delta":
		idx, _ := raw["index"].(float64)
		delta, _ := raw["delta"].(map[string]any)
		deltaType, _ := delta["type"].(string)
		switch deltaType {
		case "text_delta":
			text, _ := delta["text"].(string)
			return []urp.StreamEvent{urp.Delta{PartIndex: uint32(idx), Delta: urp.PartDelta{Kind: urp.PartDeltaText, Content: text}, ExtraBody: urp.ExtraBody{}}}
		case "thinking_delta":
			text, _ := delta["thinking"].(string)
			return []urp.StreamEvent{urp.Delta{PartIndex: uint32(idx), Delta: urp.PartDelta{Kind: urp.PartDeltaReasoning, Content: text}, ExtraBody: urp.ExtraBody{}}}
		case "signature_delta":
			sig, _ := delta["signature"].(string)
			return []urp.StreamEvent{urp.Delta{PartIndex: uint32(idx), Delta: urp.PartDelta{Kind: urp.PartDeltaReasoningEncrypted, Data: sig}, ExtraBody: urp.ExtraBody{}}}
		case "input_json_delta":
			partial, _ := delta["partial_json"].(string)
			return []urp.StreamEvent{urp.Delta{PartIndex: uint32(idx), Delta: urp.PartDelta{Kind: urp.PartDeltaToolCallArguments, Arguments: partial}, ExtraBody: urp.ExtraBody{}}}
		default:
			return nil
		}

	case "content_block_stop":
		idx, _ := raw["index"].(float64)
		return []urp.StreamEvent{urp.PartDone{PartIndex: uint32(idx), ExtraBody: urp.ExtraBody{}}}

	case "message_delta":
		delta, _ := raw["delta"].(map[string]any)
		stopReason, _ := delta["stop_reason"].(string)
		reason := stopReasonToFinish(stopReason)
		var usage *urp.Usage
		if u, ok := raw["usage"].(map[string]any); ok {
			usage = decodeUsage(u)
		}
		return []urp.StreamEvent{urp.ResponseDone{FinishReason: &reason, Usage: usage, ExtraBody: urp.ExtraBody{}}}

	case "message_stop":
		return nil

	case "error":
		errObj, _ := raw["error"].(map[string]any)
		msg, _ := errObj["message"].(string)
		var code *string
		if c, ok := errObj["type"].(string); ok {
			code = &c
		}
		return []urp.StreamEvent{urp.Error{Code: code, Message: msg, ExtraBody: urp.ExtraBody{}}}

	default:
		return nil
	}
}

// EncodeState mirrors DecodeState for rendering URP stream events back
// into Messages API SSE payloads.
type EncodeState struct{}

func NewEncodeState() *EncodeState { return &EncodeState{} }

func (s *EncodeState) EncodeStreamEvent(event urp.StreamEvent, id, model string) []map[string]any {
	switch e := event.(type) {
	case urp.ResponseStart:
		return []map[string]any{{
			"type": "message_start",
			"message": map[string]any{
				"id": e.ID, "type": "message", "role": "assistant", "model": e.Model,
				"content": []any{}, "stop_reason": nil,
				"usage": map[string]any{"input_tokens": 0, "output_tokens": 0},
			},
		}}
	case urp.PartStart:
		block := map[string]any{"type": "text", "text": ""}
		switch e.Part.Kind {
		case urp.PartHeaderReasoning:
			block = map[string]any{"type": "thinking", "thinking": ""}
		case urp.PartHeaderToolCall:
			block = map[string]any{"type": "tool_use", "id": e.Part.CallID, "name": e.Part.Name, "input": map[string]any{}}
		}
		return []map[string]any{{"type": "content_block_start", "index": e.PartIndex, "content_block": block}}
	case urp.Delta:
		var delta map[string]any
		switch e.Delta.Kind {
		case urp.PartDeltaText:
			delta = map[string]any{"type": "text_delta", "text": e.Delta.Content}
		case urp.PartDeltaReasoning:
			delta = map[string]any{"type": "thinking_delta", "thinking": e.Delta.Content}
		case urp.PartDeltaReasoningEncrypted:
			sig, _ := e.Delta.Data.(string)
			delta = map[string]any{"type": "signature_delta", "signature": sig}
		case urp.PartDeltaToolCallArguments:
			delta = map[string]any{"type": "input_json_delta", "partial_json": e.Delta.Arguments}
		default:
			return nil
		}
		return []map[string]any{{"type": "content_block_delta", "index": e.PartIndex, "delta": delta}}
	case urp.PartDone:
		return []map[string]any{{"type": "content_block_stop", "index": e.PartIndex}}
	case urp.ResponseDone:
		events := []map[string]any{{
			"type":  "message_delta",
			"delta": map[string]any{"stop_reason": finishReasonToStopReason(e.FinishReason)},
			"usage": usageOrZero(e.Usage),
		}}
		events = append(events, map[string]any{"type": "message_stop"})
		return events
	case urp.Error:
		errObj := map[string]any{"type": "api_error", "message": e.Message}
		if e.Code != nil {
			errObj["type"] = *e.Code
		}
		return []map[string]any{{"type": "error", "error": errObj}}
	default:
		return nil
	}
}

func usageOrZero(u *urp.Usage) map[string]any {
	if u == nil {
		return map[string]any{"output_tokens": 0}
	}
	out := map[string]any{"input_tokens": u.PromptTokens, "output_tokens": u.CompletionTokens}
	if u.CachedTokens != nil {
		out["cache_read_input_tokens"] = *u.CachedTokens
	}
	return out
}
