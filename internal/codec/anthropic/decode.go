// Package anthropic implements the Anthropic Messages API dialect.
package anthropic

import (
	"strings"

	"github.com/monoize-go/monoize/internal/apperr"
	"github.com/monoize-go/monoize/internal/codec"
	"github.com/monoize-go/monoize/internal/urp"
)

// DecodeRequest decodes a Messages API request body into a urp.Request.
// Grounded on decode/anthropic.rs `decode_request`.
func DecodeRequest(raw map[string]any) (*urp.Request, error) {
	model, _ := raw["model"].(string)
	if model == "" {
		return nil, apperr.New(apperr.CodeInvalidRequest, "missing model")
	}
	req := &urp.Request{Model: model}

	var messages []urp.Message
	if system, ok := raw["system"]; ok {
		if text := decodeSystemField(system); text != "" {
			messages = append(messages, urp.TextMessage(urp.RoleSystem, text))
		}
	}

	rawMessages, _ := raw["messages"].([]any)
	for _, rm := range rawMessages {
		obj, ok := rm.(map[string]any)
		if !ok {
			continue
		}
		main, toolMsgs, err := decodeMessage(obj)
		if err != nil {
			return nil, err
		}
		if main != nil {
			messages = append(messages, *main)
		}
		messages = append(messages, toolMsgs...)
	}
	req.Messages = messages

	if maxTokens, ok := raw["max_tokens"].(float64); ok {
		v := uint64(maxTokens)
		req.MaxOutputTokens = &v
	}
	if stream, ok := raw["stream"].(bool); ok {
		req.Stream = &stream
	}
	if temp, ok := raw["temperature"].(float64); ok {
		req.Temperature = &temp
	}
	if topP, ok := raw["top_p"].(float64); ok {
		req.TopP = &topP
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
	if thinking, ok := raw["thinking"].(map[string]any); ok {
		if budget, ok := thinking["budget_tokens"].(float64); ok {
			effort := budgetToEffort(budget)
			req.Reasoning = &urp.ReasoningConfig{Effort: &effort, ExtraBody: urp.ExtraBody{}}
		}
	}
	if metadata, ok := raw["metadata"].(map[string]any); ok {
		if userID, ok := metadata["user_id"].(string); ok {
			req.User = &userID
		}
	}

	known := []string{
		"model", "system", "messages", "max_tokens", "stream", "temperature",
		"top_p", "tools", "tool_choice", "thinking", "metadata",
	}
	req.ExtraBody = codec.SplitExtra(raw, known...)
	return req, nil
}

func decodeSystemField(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		var parts []string
		for _, item := range t {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := obj["text"].(string); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

func decodeToolChoice(v any) *urp.ToolChoice {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	kind, _ := obj["type"].(string)
	switch kind {
	case "auto":
		return &urp.ToolChoice{Mode: "auto"}
	case "any":
		return &urp.ToolChoice{Mode: "required"}
	case "none":
		return &urp.ToolChoice{Mode: "none"}
	case "tool":
		name, _ := obj["name"].(string)
		return &urp.ToolChoice{Specific: map[string]any{
			"type":     "function",
			"function": map[string]any{"name": name},
		}}
	default:
		return nil
	}
}

func budgetToEffort(budget float64) string {
	switch {
	case budget == 0:
		return ""
	case budget <= 512:
		return "low"
	case budget >= 2048:
		return "high"
	default:
		return "medium"
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

// decodeMessage returns the main decoded message (nil if the whole
// message collapsed into tool-result sub-messages) plus any synthetic
// Tool-role messages spawned by tool_result blocks, which the original
// appends after the main message rather than interleaving them.
func decodeMessage(obj map[string]any) (*urp.Message, []urp.Message, error) {
	role := decodeRole(obj["role"])
	var parts []urp.Part
	var toolMessages []urp.Message

	switch content := obj["content"].(type) {
	case string:
		parts = append(parts, &urp.TextPart{Content: content, ExtraBody: urp.ExtraBody{}})
	case []any:
		for _, item := range content {
			block, ok := item.(map[string]any)
			if !ok {
				continue
			}
			blockType, _ := block["type"].(string)
			switch blockType {
			case "text":
				text, _ := block["text"].(string)
				parts = append(parts, &urp.TextPart{Content: text, ExtraBody: codec.SplitExtra(block, "type", "text")})
			case "thinking":
				text, _ := block["thinking"].(string)
				parts = append(parts, &urp.ReasoningPart{Content: text, ExtraBody: codec.SplitExtra(block, "type", "thinking", "signature")})
				if sig, ok := block["signature"].(string); ok && sig != "" {
					parts = append(parts, &urp.ReasoningEncryptedPart{Data: sig, ExtraBody: urp.ExtraBody{}})
				}
			case "tool_use":
				id, _ := block["id"].(string)
				name, _ := block["name"].(string)
				parts = append(parts, &urp.ToolCallPart{
					CallID:    id,
					Name:      name,
					Arguments: codec.EncodeJSONArguments(block["input"]),
					ExtraBody: codec.SplitExtra(block, "type", "id", "name", "input"),
				})
			case "tool_result":
				msg, err := decodeToolResultBlock(block)
				if err != nil {
					return nil, nil, err
				}
				toolMessages = append(toolMessages, msg)
			default:
				parts = append(parts, &urp.TextPart{Content: codec.ValueToText(block), ExtraBody: urp.ExtraBody{}})
			}
		}
	}

	if len(parts) == 0 {
		return nil, toolMessages, nil
	}
	msg := urp.Message{Role: role, Parts: parts, ExtraBody: codec.SplitExtra(obj, "role", "content")}
	return &msg, toolMessages, nil
}

func decodeToolResultBlock(block map[string]any) (urp.Message, error) {
	callID, _ := block["tool_use_id"].(string)
	isError, _ := block["is_error"].(bool)
	result := &urp.ToolResultPart{CallID: callID, IsError: isError, ExtraBody: codec.SplitExtra(block, "type", "tool_use_id", "is_error", "content")}
	parts := []urp.Part{result}

	content, err := decodeToolResultContent(block["content"])
	if err != nil {
		return urp.Message{}, err
	}
	parts = append(parts, content...)
	return urp.Message{Role: urp.RoleTool, Parts: parts, ExtraBody: urp.ExtraBody{}}, nil
}

func decodeToolResultContent(raw any) ([]urp.Part, error) {
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
			p := decodeToolResultContentBlock(obj)
			if p != nil {
				parts = append(parts, p)
			}
		}
		return parts, nil
	default:
		return nil, nil
	}
}

func decodeToolResultContentBlock(obj map[string]any) urp.Part {
	blockType, _ := obj["type"].(string)
	switch blockType {
	case "text":
		text, _ := obj["text"].(string)
		return &urp.TextPart{Content: text, ExtraBody: codec.SplitExtra(obj, "type", "text")}
	default:
		if img, ok := codec.ParseImagePartFromObj(obj); ok {
			return img
		}
		if file, ok := codec.ParseFilePartFromObj(obj); ok {
			return file
		}
		return &urp.TextPart{Content: codec.ValueToText(obj), ExtraBody: urp.ExtraBody{}}
	}
}

// DecodeResponse decodes a non-streaming Messages API response body.
// Grounded on decode/anthropic.rs `decode_response`.
func DecodeResponse(raw map[string]any) (*urp.Response, error) {
	resp := &urp.Response{}
	resp.ID, _ = raw["id"].(string)
	resp.Model, _ = raw["model"].(string)

	var parts []urp.Part
	content, _ := raw["content"].([]any)
	for _, item := range content {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		blockType, _ := block["type"].(string)
		switch blockType {
		case "text":
			text, _ := block["text"].(string)
			parts = append(parts, &urp.TextPart{Content: text, ExtraBody: codec.SplitExtra(block, "type", "text")})
		case "thinking":
			text, _ := block["thinking"].(string)
			parts = append(parts, &urp.ReasoningPart{Content: text, ExtraBody: codec.SplitExtra(block, "type", "thinking", "signature")})
			if sig, ok := block["signature"].(string); ok && sig != "" {
				parts = append(parts, &urp.ReasoningEncryptedPart{Data: sig, ExtraBody: urp.ExtraBody{}})
			}
		case "tool_use":
			id, _ := block["id"].(string)
			name, _ := block["name"].(string)
			parts = append(parts, &urp.ToolCallPart{
				CallID:    id,
				Name:      name,
				Arguments: codec.EncodeJSONArguments(block["input"]),
				ExtraBody: codec.SplitExtra(block, "type", "id", "name", "input"),
			})
		case "image":
			if img, ok := codec.ParseImagePartFromObj(block); ok {
				parts = append(parts, img)
			}
		case "document", "file":
			if file, ok := codec.ParseFilePartFromObj(block); ok {
				parts = append(parts, file)
			}
		default:
			parts = append(parts, &urp.TextPart{Content: codec.ValueToText(block), ExtraBody: urp.ExtraBody{}})
		}
	}
	resp.Message = urp.Message{Role: urp.RoleAssistant, Parts: parts, ExtraBody: urp.ExtraBody{}}

	stopReason, _ := raw["stop_reason"].(string)
	reason := stopReasonToFinish(stopReason)
	resp.FinishReason = &reason

	if usage, ok := raw["usage"].(map[string]any); ok {
		resp.Usage = decodeUsage(usage)
	}

	resp.ExtraBody = codec.SplitExtra(raw, "id", "model", "content", "stop_reason", "usage", "type", "role")
	return resp, nil
}

func stopReasonToFinish(reason string) urp.FinishReason {
	switch reason {
	case "end_turn":
		return urp.FinishStop
	case "max_tokens":
		return urp.FinishLength
	case "tool_use":
		return urp.FinishToolCalls
	default:
		return urp.FinishOther
	}
}

func decodeUsage(raw map[string]any) *urp.Usage {
	u := &urp.Usage{}
	if v, ok := raw["input_tokens"].(float64); ok {
		u.PromptTokens = uint64(v)
	}
	if v, ok := raw["output_tokens"].(float64); ok {
		u.CompletionTokens = uint64(v)
	}
	if v, ok := raw["cache_read_input_tokens"].(float64); ok {
		c := uint64(v)
		u.CachedTokens = &c
	}
	u.ExtraBody = codec.SplitExtra(raw, "input_tokens", "output_tokens", "cache_read_input_tokens")
	return u
}
