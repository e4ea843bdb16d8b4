package openairesponses

import (
	"github.com/monoize-go/monoize/internal/urp"
)

// DecodeState tracks per-stream bookkeeping needed to turn a sequence of
// Responses API SSE chunks into URP stream events: which output_index
// maps to which part kind, and whether ResponseStart has fired yet.
type DecodeState struct {
	started    bool
	itemKind   map[float64]urp.PartHeaderKind
	callID     map[float64]string
	callName   map[float64]string
}

// NewDecodeState returns a fresh per-stream decode state.
func NewDecodeState() *DecodeState {
	return &DecodeState{itemKind: map[float64]urp.PartHeaderKind{}, callID: map[float64]string{}, callName: map[float64]string{}}
}

// DecodeStreamChunk turns one parsed Responses API SSE `data:` payload
// into zero or more URP stream events. Grounded on the public Responses
// streaming event taxonomy (response.created/output_item.added/
// output_text.delta/function_call_arguments.delta/output_item.done/
// completed/failed), by analogy to the non-streaming item shapes in
// decode.go since no streaming-specific Rust source was retrievable.
func (s *DecodeState) DecodeStreamChunk(raw map[string]any) []urp.StreamEvent {
	eventType, _ := raw["type"].(string)
	switch eventType {
	case "response.created", "response.in_progress":
		if s.started {
			return nil
		}
		s.started = true
		resp, _ := raw["response"].(map[string]any)
		id, _ := resp["id"].(string)
		model, _ := resp["model"].(string)
		return []urp.StreamEvent{urp.ResponseStart{ID: id, Model: model, ExtraBody: urp.ExtraBody{}}}

	case "response.output_item.added":
		idx, _ := raw["output_index"].(float64)
		item, _ := raw["item"].(map[string]any)
		itemType, _ := item["type"].(string)
		header := urp.PartHeader{Kind: urp.PartHeaderText}
		switch itemType {
		case "function_call":
			header.Kind = urp.PartHeaderToolCall
			header.CallID, _ = item["call_id"].(string)
			header.Name, _ = item["name"].(string)
			s.callID[idx] = header.CallID
			s.callName[idx] = header.Name
		case "reasoning":
			header.Kind = urp.PartHeaderReasoning
		}
		s.itemKind[idx] = header.Kind
		return []urp.StreamEvent{urp.PartStart{PartIndex: uint32(idx), Part: header, ExtraBody: urp.ExtraBody{}}}

	case "response.output_text.delta":
		idx, _ := raw["output_index"].(float64)
		delta, _ := raw["delta"].(string)
		return []urp.StreamEvent{urp.Delta{
			PartIndex: uint32(idx),
			Delta:     urp.PartDelta{Kind: urp.PartDeltaText, Content: delta},
			ExtraBody: urp.ExtraBody{},
		}}

	case "response.reasoning_summary_text.delta", "response.reasoning_text.delta":
		idx, _ := raw["output_index"].(float64)
		delta, _ := raw["delta"].(string)
		return []urp.StreamEvent{urp.Delta{
			PartIndex: uint32(idx),
			Delta:     urp.PartDelta{Kind: urp.PartDeltaReasoning, Content: delta},
			ExtraBody: urp.ExtraBody{},
		}}

	case "response.function_call_arguments.delta":
		idx, _ := raw["output_index"].(float64)
		delta, _ := raw["delta"].(string)
		return []urp.StreamEvent{urp.Delta{
			PartIndex: uint32(idx),
			Delta:     urp.PartDelta{Kind: urp.PartDeltaToolCallArguments, Arguments: delta},
			ExtraBody: urp.ExtraBody{},
		}}

	case "response.output_item.done":
		idx, _ := raw["output_index"].(float64)
		return []urp.StreamEvent{urp.PartDone{PartIndex: uint32(idx), ExtraBody: urp.ExtraBody{}}}

	case "response.completed", "response.incomplete":
		resp, _ := raw["response"].(map[string]any)
		status, _ := resp["status"].(string)
		var reason urp.FinishReason
		switch status {
		case "incomplete":
			reason = urp.FinishLength
		default:
			reason = urp.FinishStop
		}
		var usage *urp.Usage
		if u, ok := resp["usage"].(map[string]any); ok {
			usage = parseUsage(u)
		}
		return []urp.StreamEvent{urp.ResponseDone{FinishReason: &reason, Usage: usage, ExtraBody: urp.ExtraBody{}}}

	case "response.failed", "error":
		resp, _ := raw["response"].(map[string]any)
		errObj, _ := resp["error"].(map[string]any)
		if errObj == nil {
			errObj, _ = raw["error"].(map[string]any)
		}
		msg, _ := errObj["message"].(string)
		var code *string
		if c, ok := errObj["code"].(string); ok {
			code = &c
		}
		return []urp.StreamEvent{urp.Error{Code: code, Message: msg, ExtraBody: urp.ExtraBody{}}}

	default:
		return nil
	}
}

// EncodeState mirrors DecodeState for the reverse direction: assigning
// stable item ids/types per PartIndex so later deltas/done events can
// reference the same item.
type EncodeState struct {
	kind   map[uint32]urp.PartHeaderKind
	callID map[uint32]string
	name   map[uint32]string
	seq    int
}

// NewEncodeState returns a fresh per-stream encode state.
func NewEncodeState() *EncodeState {
	return &EncodeState{kind: map[uint32]urp.PartHeaderKind{}, callID: map[uint32]string{}, name: map[uint32]string{}}
}

// EncodeStreamEvent renders one URP stream event as zero or more
// Responses API SSE payload objects.
func (s *EncodeState) EncodeStreamEvent(event urp.StreamEvent, id, model string) []map[string]any {
	switch e := event.(type) {
	case urp.ResponseStart:
		return []map[string]any{{
			"type":     "response.created",
			"response": map[string]any{"id": e.ID, "model": e.Model, "status": "in_progress"},
		}}
	case urp.PartStart:
		s.kind[e.PartIndex] = e.Part.Kind
		itemType := "message"
		item := map[string]any{"type": itemType}
		switch e.Part.Kind {
		case urp.PartHeaderToolCall:
			itemType = "function_call"
			item = map[string]any{"type": itemType, "call_id": e.Part.CallID, "name": e.Part.Name}
			s.callID[e.PartIndex] = e.Part.CallID
			s.name[e.PartIndex] = e.Part.Name
		case urp.PartHeaderReasoning, urp.PartHeaderReasoningEncrypted:
			itemType = "reasoning"
			item = map[string]any{"type": itemType}
		}
		return []map[string]any{{
			"type":         "response.output_item.added",
			"output_index": e.PartIndex,
			"item":         item,
		}}
	case urp.Delta:
		switch e.Delta.Kind {
		case urp.PartDeltaText:
			return []map[string]any{{
				"type":         "response.output_text.delta",
				"output_index": e.PartIndex,
				"delta":        e.Delta.Content,
			}}
		case urp.PartDeltaReasoning:
			return []map[string]any{{
				"type":         "response.reasoning_text.delta",
				"output_index": e.PartIndex,
				"delta":        e.Delta.Content,
			}}
		case urp.PartDeltaToolCallArguments:
			return []map[string]any{{
				"type":         "response.function_call_arguments.delta",
				"output_index": e.PartIndex,
				"delta":        e.Delta.Arguments,
			}}
		default:
			return nil
		}
	case urp.PartDone:
		return []map[string]any{{
			"type":         "response.output_item.done",
			"output_index": e.PartIndex,
		}}
	case urp.ResponseDone:
		status := "completed"
		if e.FinishReason != nil && *e.FinishReason == urp.FinishLength {
			status = "incomplete"
		}
		resp := map[string]any{"id": id, "model": model, "status": status}
		if e.Usage != nil {
			resp["usage"] = map[string]any{
				"input_tokens":  e.Usage.PromptTokens,
				"output_tokens": e.Usage.CompletionTokens,
			}
		}
		return []map[string]any{{"type": "response.completed", "response": resp}}
	case urp.Error:
		errObj := map[string]any{"message": e.Message}
		if e.Code != nil {
			errObj["code"] = *e.Code
		}
		return []map[string]any{{"type": "error", "error": errObj}}
	default:
		return nil
	}
}
