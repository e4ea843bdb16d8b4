package gemini

import (
	"github.com/monoize-go/monoize/internal/codec"
	"github.com/monoize-go/monoize/internal/urp"
)

// DecodeState reconstructs URP part-start/delta/done events from
// Gemini's streamGenerateContent shape, which (unlike the OpenAI/
// Anthropic event taxonomies) repeats the full candidate shape on every
// chunk with only the new part content appended. No streaming-specific
// Rust source was retrievable for this dialect; this mirrors Gemini's
// publicly documented incremental-parts behavior: the first time a part
// kind (text/reasoning/a given tool call) appears it opens a new part
// index, and further occurrences of the same kind append as deltas to
// that index.
type DecodeState struct {
	started     bool
	nextIndex   uint32
	textIndex   *uint32
	reasonIndex *uint32
	callIndex   map[string]uint32
}

func NewDecodeState() *DecodeState {
	return &DecodeState{callIndex: map[string]uint32{}}
}

// DecodeStreamChunk decodes one parsed streamGenerateContent chunk.
func (s *DecodeState) DecodeStreamChunk(raw map[string]any) []urp.StreamEvent {
	var events []urp.StreamEvent
	if !s.started {
		s.started = true
		model, _ := raw["modelVersion"].(string)
		events = append(events, urp.ResponseStart{Model: model, ExtraBody: urp.ExtraBody{}})
	}

	candidates, _ := raw["candidates"].([]any)
	if len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			content, _ := candidate["content"].(map[string]any)
			rawParts, _ := content["parts"].([]any)
			for _, rp := range rawParts {
				pobj, ok := rp.(map[string]any)
				if !ok {
					continue
				}
				events = append(events, s.decodePartChunk(pobj)...)
			}
			if reason, ok := candidate["finishReason"].(string); ok && reason != "" {
				r := finishReasonFromGemini(reason)
				var usage *urp.Usage
				if u, ok := raw["usageMetadata"].(map[string]any); ok {
					usage = decodeUsageMetadata(u)
				}
				events = append(events, urp.ResponseDone{FinishReason: &r, Usage: usage, ExtraBody: urp.ExtraBody{}})
			}
		}
	}
	return events
}

func (s *DecodeState) decodePartChunk(obj map[string]any) []urp.StreamEvent {
	var events []urp.StreamEvent

	if text, ok := obj["text"].(string); ok {
		thought, _ := obj["thought"].(bool)
		if thought {
			events = append(events, s.openOrDelta(&s.reasonIndex, urp.PartHeaderReasoning, urp.PartDelta{Kind: urp.PartDeltaReasoning, Content: text})...)
		} else {
			events = append(events, s.openOrDelta(&s.textIndex, urp.PartHeaderText, urp.PartDelta{Kind: urp.PartDeltaText, Content: text})...)
		}
	}
	if sig, ok := obj["thoughtSignature"]; ok {
		events = append(events, s.openOrDelta(&s.reasonIndex, urp.PartHeaderReasoning, urp.PartDelta{Kind: urp.PartDeltaReasoningEncrypted, Data: sig})...)
	}
	if fc, ok := obj["functionCall"].(map[string]any); ok {
		name, _ := fc["name"].(string)
		callID, _ := fc["id"].(string)
		if callID == "" {
			callID = name
		}
		idx, exists := s.callIndex[callID]
		if !exists {
			idx = s.alloc()
			s.callIndex[callID] = idx
			events = append(events, urp.PartStart{PartIndex: idx, Part: urp.PartHeader{Kind: urp.PartHeaderToolCall, CallID: callID, Name: name}, ExtraBody: urp.ExtraBody{}})
		}
		events = append(events, urp.Delta{PartIndex: idx, Delta: urp.PartDelta{Kind: urp.PartDeltaToolCallArguments, Arguments: encodeArgs(fc["args"])}, ExtraBody: urp.ExtraBody{}})
	}

	return events
}

func (s *DecodeState) alloc() uint32 {
	idx := s.nextIndex
	s.nextIndex++
	return idx
}

func (s *DecodeState) openOrDelta(slot **uint32, kind urp.PartHeaderKind, delta urp.PartDelta) []urp.StreamEvent {
	var events []urp.StreamEvent
	if *slot == nil {
		idx := s.alloc()
		*slot = &idx
		events = append(events, urp.PartStart{PartIndex: idx, Part: urp.PartHeader{Kind: kind}, ExtraBody: urp.ExtraBody{}})
	}
	events = append(events, urp.Delta{PartIndex: **slot, Delta: delta, ExtraBody: urp.ExtraBody{}})
	return events
}

func encodeArgs(v any) string {
	return codec.EncodeJSONArguments(v)
}

// EncodeState renders URP stream events back into Gemini's
// streamGenerateContent chunk shape — each emitted chunk is a
// self-contained candidate update, matching non-streaming
// EncodeResponse's part shapes.
type EncodeState struct {
	kinds map[uint32]urp.PartHeaderKind
	calls map[uint32]string
	names map[uint32]string
}

func NewEncodeState() *EncodeState {
	return &EncodeState{kinds: map[uint32]urp.PartHeaderKind{}, calls: map[uint32]string{}, names: map[uint32]string{}}
}

func (s *EncodeState) EncodeStreamEvent(event urp.StreamEvent, id, model string) []map[string]any {
	switch e := event.(type) {
	case urp.ResponseStart:
		return nil
	case urp.PartStart:
		s.kinds[e.PartIndex] = e.Part.Kind
		s.calls[e.PartIndex] = e.Part.CallID
		s.names[e.PartIndex] = e.Part.Name
		return nil
	case urp.Delta:
		var part map[string]any
		switch e.Delta.Kind {
		case urp.PartDeltaText:
			part = map[string]any{"text": e.Delta.Content}
		case urp.PartDeltaReasoning:
			part = map[string]any{"text": e.Delta.Content, "thought": true}
		case urp.PartDeltaReasoningEncrypted:
			part = map[string]any{"thoughtSignature": e.Delta.Data}
		case urp.PartDeltaToolCallArguments:
			part = map[string]any{"functionCall": map[string]any{
				"id": s.calls[e.PartIndex], "name": s.names[e.PartIndex], "args": codec.DecodeJSONArguments(e.Delta.Arguments),
			}}
		default:
			return nil
		}
		return []map[string]any{{
			"candidates": []any{map[string]any{
				"index":   0,
				"content": map[string]any{"role": "model", "parts": []any{part}},
			}},
			"modelVersion": model,
		}}
	case urp.PartDone:
		return nil
	case urp.ResponseDone:
		chunk := map[string]any{
			"candidates": []any{map[string]any{
				"index":        0,
				"content":      map[string]any{"role": "model", "parts": []any{}},
				"finishReason": finishReasonToGemini(e.FinishReason),
			}},
			"modelVersion": model,
		}
		if e.Usage != nil {
			chunk["usageMetadata"] = map[string]any{
				"promptTokenCount":     e.Usage.PromptTokens,
				"candidatesTokenCount": e.Usage.CompletionTokens,
			}
		}
		return []map[string]any{chunk}
	case urp.Error:
		return []map[string]any{{"error": map[string]any{"message": e.Message}}}
	default:
		return nil
	}
}
