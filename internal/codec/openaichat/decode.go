package openaichat

import (
	"github.com/monoize-go/monoize/internal/apperr"
	"github.com/monoize-go/monoize/internal/codec"
	"github.com/monoize-go/monoize/internal/urp"
)

// DecodeRequest decodes a chat.completions request body into a
// urp.Request. No Rust decode source exists for this dialect (only the
// encode half was retrievable); this is inferred from the public
// Chat Completions message shape (string-or-array content,
// tool_calls[].function, tool_call_id) by analogy to the
// openairesponses/anthropic decoders.
func DecodeRequest(raw map[string]any) (*urp.Request, error) {
	model, _ := raw["model"].(string)
	if model == "" {
		return nil, apperr.New(apperr.CodeInvalidRequest, "missing model")
	}
	req := &urp.Request{Model: model}

	rawMessages := codec.AsArray(raw["messages"])
	var messages []urp.Message
	for _, rm := range rawMessages {
		obj := codec.AsObject(rm)
		if obj == nil {
			continue
		}
		messages = append(messages, decodeMessage(obj)...)
	}
	req.Messages = messages

	if stream, ok := raw["stream"].(bool); ok {
		req.Stream = &stream
	}
	if temp, ok := raw["temperature"].(float64); ok {
		req.Temperature = &temp
	}
	if topP, ok := raw["top_p"].(float64); ok {
		req.TopP = &topP
	}
	if maxTokens, ok := raw["max_completion_tokens"].(float64); ok {
		v := uint64(maxTokens)
		req.MaxOutputTokens = &v
	} else if maxTokens, ok := raw["max_tokens"].(float64); ok {
		v := uint64(maxTokens)
		req.MaxOutputTokens = &v
	}
	if effort, ok := raw["reasoning_effort"].(string); ok && effort != "" {
		req.Reasoning = &urp.ReasoningConfig{Effort: &effort, ExtraBody: urp.ExtraBody{}}
	}
	if rawTools := codec.AsArray(raw["tools"]); rawTools != nil {
		for _, rt := range rawTools {
			tobj := codec.AsObject(rt)
			if tobj == nil {
				continue
			}
			if td, ok := codec.ParseToolDefinition(tobj); ok {
				req.Tools = append(req.Tools, td)
			}
		}
	}
	if tc, ok := raw["tool_choice"]; ok {
		req.ToolChoice = decodeToolChoice(tc)
	}
	if rf := codec.AsObject(raw["response_format"]); rf != nil {
		req.ResponseFormat = decodeResponseFormat(rf)
	}
	if user, ok := raw["user"].(string); ok {
		req.User = &user
	}

	known := []string{
		"model", "messages", "stream", "temperature", "top_p", "max_completion_tokens",
		"max_tokens", "reasoning_effort", "tools", "tool_choice", "response_format", "user",
	}
	req.ExtraBody = codec.SplitExtra(raw, known...)
	return req, nil
}

func decodeMessage(obj map[string]any) []urp.Message {
	role := decodeRole(obj["role"])

	if role == urp.RoleTool {
		callID, _ := obj["tool_call_id"].(string)
		content := codec.ValueToText(obj["content"])
		msg := urp.TextMessage(urp.RoleTool, content)
		msg.Parts = append(msg.Parts, &urp.ToolResultPart{CallID: callID, ExtraBody: urp.ExtraBody{}})
		msg.ExtraBody = codec.SplitExtra(obj, "role", "content", "tool_call_id")
		return []urp.Message{msg}
	}

	msg := urp.NewMessage(role)
	switch content := obj["content"].(type) {
	case string:
		if content != "" {
			msg.Parts = append(msg.Parts, &urp.TextPart{Content: content, ExtraBody: urp.ExtraBody{}})
		}
	case []any:
		for _, rb := range content {
			block := codec.AsObject(rb)
			if block == nil {
				continue
			}
			msg.Parts = append(msg.Parts, decodeContentBlock(block)...)
		}
	}

	if refusal, ok := obj["refusal"].(string); ok && refusal != "" {
		msg.Parts = append(msg.Parts, &urp.RefusalPart{Content: refusal, ExtraBody: urp.ExtraBody{}})
	}

	if toolCalls := codec.AsArray(obj["tool_calls"]); toolCalls != nil {
		for _, tc := range toolCalls {
			tcObj := codec.AsObject(tc)
			if tcObj == nil {
				continue
			}
			callID, _ := tcObj["id"].(string)
			fn := codec.AsObject(tcObj["function"])
			name, _ := fn["name"].(string)
			args, ok := fn["arguments"].(string)
			if !ok {
				args = codec.EncodeJSONArguments(fn["arguments"])
			}
			msg.Parts = append(msg.Parts, &urp.ToolCallPart{
				CallID: callID, Name: name, Arguments: args,
				ExtraBody: codec.SplitExtra(tcObj, "id", "type", "function"),
			})
		}
	}

	msg.ExtraBody = codec.SplitExtra(obj, "role", "content", "refusal", "tool_calls", "name")
	return []urp.Message{msg}
}

func decodeContentBlock(block map[string]any) []urp.Part {
	blockType, _ := block["type"].(string)
	switch blockType {
	case "text":
		text, _ := block["text"].(string)
		return []urp.Part{&urp.TextPart{Content: text, ExtraBody: codec.SplitExtra(block, "type", "text")}}
	case "image_url":
		if p, ok := codec.ParseImagePartFromObj(block); ok {
			return []urp.Part{p}
		}
	}
	if p, ok := codec.ParseImagePartFromObj(block); ok {
		return []urp.Part{p}
	}
	if p, ok := codec.ParseFilePartFromObj(block); ok {
		return []urp.Part{p}
	}
	return []urp.Part{&urp.TextPart{Content: codec.ValueToText(block), ExtraBody: urp.ExtraBody{}}}
}

func decodeRole(v any) urp.Role {
	s, _ := v.(string)
	switch s {
	case "system":
		return urp.RoleSystem
	case "developer":
		return urp.RoleDeveloper
	case "assistant":
		return urp.RoleAssistant
	case "tool":
		return urp.RoleTool
	default:
		return urp.RoleUser
	}
}

func decodeToolChoice(v any) *urp.ToolChoice {
	if s, ok := v.(string); ok {
		return &urp.ToolChoice{Mode: s}
	}
	if obj := codec.AsObject(v); obj != nil {
		return &urp.ToolChoice{Specific: obj}
	}
	return nil
}

func decodeResponseFormat(obj map[string]any) *urp.ResponseFormat {
	kind, _ := obj["type"].(string)
	switch kind {
	case "json_object":
		return &urp.ResponseFormat{Kind: urp.ResponseFormatJSONObject}
	case "json_schema":
		schemaObj := codec.AsObject(obj["json_schema"])
		if schemaObj == nil {
			return &urp.ResponseFormat{Kind: urp.ResponseFormatJSONSchema, JSONSchema: &urp.JSONSchemaDefinition{}}
		}
		name, _ := schemaObj["name"].(string)
		js := &urp.JSONSchemaDefinition{
			Name:      name,
			Schema:    schemaObj["schema"],
			ExtraBody: codec.SplitExtra(schemaObj, "name", "schema", "description", "strict"),
		}
		if desc, ok := schemaObj["description"].(string); ok {
			js.Description = &desc
		}
		if strict, ok := schemaObj["strict"].(bool); ok {
			js.Strict = &strict
		}
		return &urp.ResponseFormat{Kind: urp.ResponseFormatJSONSchema, JSONSchema: js}
	default:
		return &urp.ResponseFormat{Kind: urp.ResponseFormatText}
	}
}

// DecodeResponse decodes a non-streaming chat.completion response body.
// Inferred from the public Chat Completions response shape by analogy
// to DecodeRequest's message decoding; no Rust decode source exists.
func DecodeResponse(raw map[string]any) (*urp.Response, error) {
	resp := &urp.Response{}
	if id, ok := raw["id"].(string); ok {
		resp.ID = id
	}
	if model, ok := raw["model"].(string); ok {
		resp.Model = model
	}

	choices := codec.AsArray(raw["choices"])
	if len(choices) == 0 {
		return nil, apperr.New(apperr.CodeUpstreamStatus5xx, "chat completion response has no choices")
	}
	choice := codec.AsObject(choices[0])
	msgObj := codec.AsObject(choice["message"])
	decoded := decodeMessage(msgObj)
	if len(decoded) > 0 {
		resp.Message = decoded[0]
		resp.Message.Role = urp.RoleAssistant
	}

	finishReason, _ := choice["finish_reason"].(string)
	reason := finishReasonFromChat(finishReason)
	resp.FinishReason = &reason

	if usage := codec.AsObject(raw["usage"]); usage != nil {
		resp.Usage = decodeUsage(usage)
	}

	resp.ExtraBody = codec.SplitExtra(raw, "id", "object", "created", "model", "choices", "usage")
	return resp, nil
}

func finishReasonFromChat(reason string) urp.FinishReason {
	switch reason {
	case "length":
		return urp.FinishLength
	case "tool_calls":
		return urp.FinishToolCalls
	case "content_filter":
		return urp.FinishContentFilter
	case "stop":
		return urp.FinishStop
	default:
		return urp.FinishOther
	}
}

func decodeUsage(raw map[string]any) *urp.Usage {
	u := &urp.Usage{}
	if v, ok := raw["prompt_tokens"].(float64); ok {
		u.PromptTokens = uint64(v)
	}
	if v, ok := raw["completion_tokens"].(float64); ok {
		u.CompletionTokens = uint64(v)
	}
	if details := codec.AsObject(raw["completion_tokens_details"]); details != nil {
		if v, ok := details["reasoning_tokens"].(float64); ok {
			rt := uint64(v)
			u.ReasoningTokens = &rt
		}
	}
	if details := codec.AsObject(raw["prompt_tokens_details"]); details != nil {
		if v, ok := details["cached_tokens"].(float64); ok {
			ct := uint64(v)
			u.CachedTokens = &ct
		}
	}
	u.ExtraBody = codec.SplitExtra(raw, "prompt_tokens", "completion_tokens", "total_tokens",
		"completion_tokens_details", "prompt_tokens_details")
	return u
}
