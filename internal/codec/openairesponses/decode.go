// Package openairesponses implements the OpenAI Responses API dialect:
// decode/encode of /v1/responses request and response bodies, plus
// their streamed SSE event shapes.
package openairesponses

import (
	"github.com/monoize-go/monoize/internal/apperr"
	"github.com/monoize-go/monoize/internal/codec"
	"github.com/monoize-go/monoize/internal/urp"
)

// DecodeRequest decodes a Responses API request body into a urp.Request.
// Grounded on decode/openai_responses.rs `decode_request`.
func DecodeRequest(raw map[string]any) (*urp.Request, error) {
	model, _ := raw["model"].(string)
	if model == "" {
		return nil, apperr.New(apperr.CodeInvalidRequest, "missing model")
	}

	req := &urp.Request{Model: model}

	var messages []urp.Message
	if instructions, ok := raw["instructions"].(string); ok && instructions != "" {
		messages = append(messages, urp.TextMessage(urp.RoleDeveloper, instructions))
	}

	items, err := decodeInput(raw["input"])
	if err != nil {
		return nil, err
	}
	messages = append(messages, items...)
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
	if maxTokens, ok := raw["max_output_tokens"].(float64); ok {
		v := uint64(maxTokens)
		req.MaxOutputTokens = &v
	}
	if user, ok := raw["user"].(string); ok {
		req.User = &user
	}
	if reasoning, ok := raw["reasoning"].(map[string]any); ok {
		cfg := &urp.ReasoningConfig{ExtraBody: codec.SplitExtra(reasoning, "effort")}
		if effort, ok := reasoning["effort"].(string); ok {
			cfg.Effort = &effort
		}
		req.Reasoning = cfg
	}
	if tools, ok := raw["tools"].([]any); ok {
		for _, t := range tools {
			obj, ok := t.(map[string]any)
			if !ok {
				continue
			}
			if def, ok := codec.ParseToolDefinition(obj); ok {
				req.Tools = append(req.Tools, def)
			}
		}
	}
	if tc, ok := raw["tool_choice"]; ok {
		req.ToolChoice = decodeToolChoice(tc)
	}
	if rf, ok := raw["response_format"]; ok {
		req.ResponseFormat = parseResponseFormat(rf)
	} else if text := codec.AsObject(raw["text"]); text != nil {
		if format, ok := text["format"]; ok {
			req.ResponseFormat = parseResponseFormat(format)
		}
	}

	known := []string{
		"model", "instructions", "input", "stream", "temperature", "top_p",
		"max_output_tokens", "user", "reasoning", "tools", "tool_choice",
		"response_format", "text",
	}
	req.ExtraBody = codec.SplitExtra(raw, known...)
	return req, nil
}

func decodeToolChoice(v any) *urp.ToolChoice {
	switch t := v.(type) {
	case string:
		return &urp.ToolChoice{Mode: t}
	default:
		return &urp.ToolChoice{Specific: v}
	}
}

func parseResponseFormat(v any) *urp.ResponseFormat {
	obj := codec.AsObject(v)
	if obj == nil {
		return nil
	}
	kind, _ := obj["type"].(string)
	switch kind {
	case "json_schema":
		schemaObj := codec.AsObject(obj["json_schema"])
		def := &urp.JSONSchemaDefinition{}
		if schemaObj != nil {
			def.Name, _ = schemaObj["name"].(string)
			def.Schema = schemaObj["schema"]
			if desc, ok := schemaObj["description"].(string); ok {
				def.Description = &desc
			}
			if strict, ok := schemaObj["strict"].(bool); ok {
				def.Strict = &strict
			}
			def.ExtraBody = codec.SplitExtra(schemaObj, "name", "schema", "description", "strict")
		}
		return &urp.ResponseFormat{Kind: urp.ResponseFormatJSONSchema, JSONSchema: def}
	case "json_object":
		return &urp.ResponseFormat{Kind: urp.ResponseFormatJSONObject}
	default:
		return &urp.ResponseFormat{Kind: urp.ResponseFormatText}
	}
}

func decodeInput(raw any) ([]urp.Message, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []urp.Message{urp.TextMessage(urp.RoleUser, v)}, nil
	case map[string]any:
		msg, err := decodeInputItem(v)
		if err != nil {
			return nil, err
		}
		return msg, nil
	case []any:
		var out []urp.Message
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			msgs, err := decodeInputItem(obj)
			if err != nil {
				return nil, err
			}
			out = append(out, msgs...)
		}
		return out, nil
	default:
		return nil, apperr.New(apperr.CodeInvalidRequest, "unsupported input shape")
	}
}

func decodeInputItem(item map[string]any) ([]urp.Message, error) {
	itemType, _ := item["type"].(string)
	switch itemType {
	case "function_call":
		name, _ := item["name"].(string)
		callID, _ := item["call_id"].(string)
		if callID == "" {
			callID, _ = item["id"].(string)
		}
		args := codec.EncodeJSONArguments(item["arguments"])
		part := &urp.ToolCallPart{
			CallID:    callID,
			Name:      name,
			Arguments: args,
			ExtraBody: codec.SplitExtra(item, "type", "name", "call_id", "id", "arguments"),
		}
		return []urp.Message{{Role: urp.RoleAssistant, Parts: []urp.Part{part}, ExtraBody: urp.ExtraBody{}}}, nil

	case "function_call_output":
		callID, _ := item["call_id"].(string)
		parts, err := decodeToolOutputParts(item["output"])
		if err != nil {
			return nil, err
		}
		result := &urp.ToolResultPart{CallID: callID, ExtraBody: urp.ExtraBody{}}
		msgParts := append([]urp.Part{result}, parts...)
		return []urp.Message{{Role: urp.RoleTool, Parts: msgParts, ExtraBody: codec.SplitExtra(item, "type", "call_id", "output")}}, nil

	case "message", "":
		role := decodeRole(item["role"])
		parts, err := decodeContentArray(item["content"])
		if err != nil {
			return nil, err
		}
		return []urp.Message{{Role: role, Parts: parts, ExtraBody: codec.SplitExtra(item, "type", "role", "content")}}, nil

	default:
		return []urp.Message{urp.TextMessage(urp.RoleUser, codec.ValueToText(item))}, nil
	}
}

func decodeRole(v any) urp.Role {
	s, _ := v.(string)
	switch s {
	case "assistant":
		return urp.RoleAssistant
	case "system":
		return urp.RoleSystem
	case "developer":
		return urp.RoleDeveloper
	default:
		return urp.RoleUser
	}
}

func decodeContentArray(raw any) ([]urp.Part, error) {
	switch v := raw.(type) {
	case string:
		return []urp.Part{&urp.TextPart{Content: v, ExtraBody: urp.ExtraBody{}}}, nil
	case []any:
		var parts []urp.Part
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			p, err := decodeContentBlock(obj)
			if err != nil {
				return nil, err
			}
			if p != nil {
				parts = append(parts, p)
			}
		}
		return parts, nil
	default:
		return nil, nil
	}
}

func decodeContentBlock(obj map[string]any) (urp.Part, error) {
	blockType, _ := obj["type"].(string)
	switch blockType {
	case "input_text", "output_text", "text":
		text, _ := obj["text"].(string)
		return &urp.TextPart{Content: text, ExtraBody: codec.SplitExtra(obj, "type", "text")}, nil
	case "refusal":
		content, _ := obj["refusal"].(string)
		return &urp.RefusalPart{Content: content, ExtraBody: codec.SplitExtra(obj, "type", "refusal")}, nil
	default:
		if img, ok := codec.ParseImagePartFromObj(obj); ok {
			return img, nil
		}
		if file, ok := codec.ParseFilePartFromObj(obj); ok {
			return file, nil
		}
		return &urp.TextPart{Content: codec.ValueToText(obj), ExtraBody: urp.ExtraBody{}}, nil
	}
}

func decodeToolOutputParts(raw any) ([]urp.Part, error) {
	switch v := raw.(type) {
	case string:
		return []urp.Part{&urp.TextPart{Content: v, ExtraBody: urp.ExtraBody{}}}, nil
	case []any:
		var parts []urp.Part
		for _, item := range v {
			switch iv := item.(type) {
			case string:
				parts = append(parts, &urp.TextPart{Content: iv, ExtraBody: urp.ExtraBody{}})
			case map[string]any:
				p, err := decodeToolOutputPart(iv)
				if err != nil {
					return nil, err
				}
				if p != nil {
					parts = append(parts, p)
				}
			}
		}
		return parts, nil
	case map[string]any:
		p, err := decodeToolOutputPart(v)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, nil
		}
		return []urp.Part{p}, nil
	default:
		return nil, nil
	}
}

func decodeToolOutputPart(obj map[string]any) (urp.Part, error) {
	blockType, _ := obj["type"].(string)
	switch blockType {
	case "input_text", "output_text", "text":
		text, _ := obj["text"].(string)
		return &urp.TextPart{Content: text, ExtraBody: codec.SplitExtra(obj, "type", "text")}, nil
	default:
		if img, ok := codec.ParseImagePartFromObj(obj); ok {
			return img, nil
		}
		if file, ok := codec.ParseFilePartFromObj(obj); ok {
			return file, nil
		}
		return &urp.TextPart{Content: codec.ValueToText(obj), ExtraBody: urp.ExtraBody{}}, nil
	}
}

// DecodeResponse decodes a non-streaming Responses API response body
// into a urp.Response. Grounded on decode/openai_responses.rs
// `decode_response`.
func DecodeResponse(raw map[string]any) (*urp.Response, error) {
	resp := &urp.Response{}
	resp.ID, _ = raw["id"].(string)
	resp.Model, _ = raw["model"].(string)

	var parts []urp.Part
	output, _ := raw["output"].([]any)
	hasToolCall := false
	for _, item := range output {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		itemType, _ := obj["type"].(string)
		switch itemType {
		case "message":
			blocks, _ := obj["content"].([]any)
			for _, b := range blocks {
				bobj, ok := b.(map[string]any)
				if !ok {
					continue
				}
				p, err := decodeOutputBlock(bobj)
				if err != nil {
					return nil, err
				}
				if p != nil {
					parts = append(parts, p)
				}
			}
		case "function_call":
			hasToolCall = true
			name, _ := obj["name"].(string)
			callID, _ := obj["call_id"].(string)
			if callID == "" {
				callID, _ = obj["id"].(string)
			}
			parts = append(parts, &urp.ToolCallPart{
				CallID:    callID,
				Name:      name,
				Arguments: codec.EncodeJSONArguments(obj["arguments"]),
				ExtraBody: codec.SplitExtra(obj, "type", "name", "call_id", "id", "arguments"),
			})
		case "reasoning":
			if enc, ok := obj["encrypted_content"]; ok {
				parts = append(parts, &urp.ReasoningEncryptedPart{Data: enc, ExtraBody: urp.ExtraBody{}})
			}
			if text := summaryToText(obj); text != "" {
				parts = append(parts, &urp.ReasoningPart{Content: text, ExtraBody: codec.SplitExtra(obj, "type", "encrypted_content", "summary", "text")})
			}
		}
	}
	resp.Message = urp.Message{Role: urp.RoleAssistant, Parts: parts, ExtraBody: urp.ExtraBody{}}

	status, _ := raw["status"].(string)
	var reason urp.FinishReason
	switch status {
	case "completed":
		if hasToolCall {
			reason = urp.FinishToolCalls
		} else {
			reason = urp.FinishStop
		}
	case "incomplete":
		reason = urp.FinishLength
	case "failed":
		reason = urp.FinishOther
	}
	if reason != "" {
		resp.FinishReason = &reason
	}

	if usage, ok := raw["usage"].(map[string]any); ok {
		resp.Usage = parseUsage(usage)
	}

	resp.ExtraBody = codec.SplitExtra(raw, "id", "model", "output", "status", "usage")
	return resp, nil
}

func decodeOutputBlock(obj map[string]any) (urp.Part, error) {
	blockType, _ := obj["type"].(string)
	switch blockType {
	case "output_text", "text":
		text, _ := obj["text"].(string)
		return &urp.TextPart{Content: text, ExtraBody: codec.SplitExtra(obj, "type", "text")}, nil
	case "refusal":
		content, _ := obj["refusal"].(string)
		return &urp.RefusalPart{Content: content, ExtraBody: codec.SplitExtra(obj, "type", "refusal")}, nil
	default:
		if img, ok := codec.ParseImagePartFromObj(obj); ok {
			return img, nil
		}
		if file, ok := codec.ParseFilePartFromObj(obj); ok {
			return file, nil
		}
		return &urp.TextPart{Content: codec.ValueToText(obj), ExtraBody: urp.ExtraBody{}}, nil
	}
}

func summaryToText(obj map[string]any) string {
	if text, ok := obj["text"].(string); ok && text != "" {
		return text
	}
	summary, _ := obj["summary"].([]any)
	var out string
	for _, s := range summary {
		sobj, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := sobj["type"].(string); t == "summary_text" {
			if text, ok := sobj["text"].(string); ok {
				out += text
			}
		}
	}
	return out
}

func parseUsage(raw map[string]any) *urp.Usage {
	u := &urp.Usage{}
	if v, ok := raw["input_tokens"].(float64); ok {
		u.PromptTokens = uint64(v)
	} else if v, ok := raw["prompt_tokens"].(float64); ok {
		u.PromptTokens = uint64(v)
	}
	if v, ok := raw["output_tokens"].(float64); ok {
		u.CompletionTokens = uint64(v)
	} else if v, ok := raw["completion_tokens"].(float64); ok {
		u.CompletionTokens = uint64(v)
	}
	if details, ok := raw["output_tokens_details"].(map[string]any); ok {
		if rt, ok := details["reasoning_tokens"].(float64); ok {
			v := uint64(rt)
			u.ReasoningTokens = &v
		}
	}
	if details, ok := raw["input_tokens_details"].(map[string]any); ok {
		if ct, ok := details["cached_tokens"].(float64); ok {
			v := uint64(ct)
			u.CachedTokens = &v
		}
	}
	u.ExtraBody = codec.SplitExtra(raw, "input_tokens", "output_tokens", "prompt_tokens",
		"completion_tokens", "total_tokens", "output_tokens_details", "input_tokens_details")
	return u
}
