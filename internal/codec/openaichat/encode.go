// Package openaichat implements the OpenAI Chat Completions dialect.
package openaichat

import (
	"time"

	"github.com/monoize-go/monoize/internal/codec"
	"github.com/monoize-go/monoize/internal/urp"
)

// EncodeRequest renders req as a chat.completions request body for
// upstreamModel. Grounded on encode/openai_chat.rs `encode_request`.
func EncodeRequest(req *urp.Request, upstreamModel string) map[string]any {
	body := map[string]any{
		"model":    upstreamModel,
		"messages": encodeMessages(req.Messages),
	}
	if req.Stream != nil {
		body["stream"] = *req.Stream
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		body["top_p"] = *req.TopP
	}
	if req.MaxOutputTokens != nil {
		body["max_completion_tokens"] = *req.MaxOutputTokens
	}
	if req.Reasoning != nil && req.Reasoning.Effort != nil {
		body["reasoning_effort"] = *req.Reasoning.Effort
	}
	if len(req.Tools) > 0 {
		body["tools"] = encodeTools(req.Tools)
	}
	if req.ToolChoice != nil {
		body["tool_choice"] = codec.ToolChoiceToValue(req.ToolChoice)
	}
	if req.ResponseFormat != nil {
		body["response_format"] = encodeResponseFormat(req.ResponseFormat)
	}
	if req.User != nil {
		body["user"] = *req.User
	}

	codec.MergeExtra(body, req.ExtraBody)
	return body
}

func encodeMessages(messages []urp.Message) []any {
	var out []any
	for _, msg := range messages {
		if msg.Role == urp.RoleTool {
			callID, _ := urp.ExtractToolResultCallID(msg.Parts)
			m := map[string]any{
				"role":    "tool",
				"content": codec.TextParts(msg.Parts),
			}
			if callID != "" {
				m["tool_call_id"] = callID
			}
			codec.MergeExtra(m, msg.ExtraBody)
			out = append(out, m)
			continue
		}

		m := map[string]any{"role": codec.RoleToStr(msg.Role)}
		var contentParts []any
		var refusal string
		for _, p := range msg.Parts {
			switch v := p.(type) {
			case *urp.TextPart:
				contentParts = append(contentParts, map[string]any{"type": "text", "text": v.Content})
			case *urp.ImagePart:
				contentParts = append(contentParts, encodeImagePart(v.Source))
			case *urp.FilePart:
				contentParts = append(contentParts, map[string]any{"type": "text", "text": filePlaceholder(v.Source)})
			case *urp.RefusalPart:
				refusal = v.Content
			}
		}
		if refusal != "" {
			m["refusal"] = refusal
		}

		if toolCalls := codec.ExtractToolCalls(msg.Parts); len(toolCalls) > 0 {
			m["tool_calls"] = toolCalls
		}

		switch {
		case len(contentParts) == 1:
			if block, ok := contentParts[0].(map[string]any); ok && block["type"] == "text" {
				m["content"] = block["text"]
			} else {
				m["content"] = contentParts
			}
		case len(contentParts) > 1:
			m["content"] = contentParts
		default:
			m["content"] = ""
		}

		insertOpenRouterReasoningFields(m, msg.Parts)
		codec.MergeExtra(m, msg.ExtraBody)
		out = append(out, m)
	}
	return out
}

func encodeImagePart(source urp.Source) map[string]any {
	switch s := source.(type) {
	case urp.URLSource:
		imageURL := map[string]any{"url": s.URL}
		if s.Detail != nil {
			imageURL["detail"] = *s.Detail
		}
		return map[string]any{"type": "image_url", "image_url": imageURL}
	case urp.Base64Source:
		return map[string]any{"type": "image_url", "image_url": map[string]any{
			"url": "data:" + s.MediaType + ";base64," + s.Data,
		}}
	default:
		return map[string]any{"type": "image_url", "image_url": map[string]any{}}
	}
}

func filePlaceholder(source urp.Source) string {
	switch s := source.(type) {
	case urp.URLSource:
		return "[file:" + s.URL + "]"
	case urp.Base64Source:
		filename := "file"
		if s.Filename != nil {
			filename = *s.Filename
		}
		return "[file:" + filename + ":" + s.MediaType + "]"
	default:
		return "[file]"
	}
}

func encodeTools(tools []urp.ToolDefinition) []any {
	var out []any
	for _, t := range tools {
		if t.ToolType == "function" && t.Function != nil {
			fnObj := map[string]any{"name": t.Function.Name}
			if t.Function.Description != nil {
				fnObj["description"] = *t.Function.Description
			}
			if t.Function.Parameters != nil {
				fnObj["parameters"] = t.Function.Parameters
			}
			if t.Function.Strict != nil {
				fnObj["strict"] = *t.Function.Strict
			}
			codec.MergeExtra(fnObj, t.Function.ExtraBody)

			obj := map[string]any{"type": "function", "function": fnObj}
			codec.MergeExtra(obj, t.ExtraBody)
			out = append(out, obj)
			continue
		}
		obj := map[string]any{"type": t.ToolType}
		codec.MergeExtra(obj, t.ExtraBody)
		out = append(out, obj)
	}
	return out
}

func encodeResponseFormat(format *urp.ResponseFormat) map[string]any {
	switch format.Kind {
	case urp.ResponseFormatJSONObject:
		return map[string]any{"type": "json_object"}
	case urp.ResponseFormatJSONSchema:
		if format.JSONSchema == nil {
			return map[string]any{"type": "json_schema"}
		}
		schemaObj := map[string]any{
			"name":   format.JSONSchema.Name,
			"schema": format.JSONSchema.Schema,
		}
		if format.JSONSchema.Description != nil {
			schemaObj["description"] = *format.JSONSchema.Description
		}
		if format.JSONSchema.Strict != nil {
			schemaObj["strict"] = *format.JSONSchema.Strict
		}
		codec.MergeExtra(schemaObj, format.JSONSchema.ExtraBody)
		return map[string]any{"type": "json_schema", "json_schema": schemaObj}
	default:
		return map[string]any{"type": "text"}
	}
}

func hasToolCalls(msg urp.Message) bool {
	for _, p := range msg.Parts {
		if _, ok := p.(*urp.ToolCallPart); ok {
			return true
		}
	}
	return false
}

// insertOpenRouterReasoningFields mirrors OpenRouter's conventional
// reasoning/reasoning_details fields so reasoning survives a round trip
// through a dialect that otherwise has no dedicated reasoning slot.
func insertOpenRouterReasoningFields(message map[string]any, parts []urp.Part) {
	reasoningText := codec.ExtractReasoningPlain(parts)
	encrypted, hasEncrypted := codec.ExtractReasoningEncrypted(parts)
	var details []any

	if reasoningText != "" {
		message["reasoning"] = reasoningText

		var signature any
		if hasEncrypted {
			if s, ok := encrypted.(string); ok {
				signature = s
			}
		}
		details = append(details, map[string]any{
			"type": "reasoning.text", "text": reasoningText, "signature": signature, "format": "unknown",
		})
		if hasEncrypted {
			if _, isStr := encrypted.(string); !isStr && encrypted != nil {
				details = append(details, map[string]any{"type": "reasoning.encrypted", "data": encrypted, "format": "unknown"})
			}
		}
	} else if hasEncrypted && encrypted != nil {
		if s, ok := encrypted.(string); ok && s == "" {
			return
		}
		details = append(details, map[string]any{"type": "reasoning.encrypted", "data": encrypted, "format": "unknown"})
	}

	if len(details) > 0 {
		message["reasoning_details"] = details
	}
}

// EncodeResponse renders resp as a chat.completion response body for
// logicalModel. Grounded on encode/openai_chat.rs `encode_response`.
func EncodeResponse(resp *urp.Response, logicalModel string) map[string]any {
	message := map[string]any{"role": "assistant"}

	text := codec.TextParts(resp.Message.Parts)
	message["content"] = text

	insertOpenRouterReasoningFields(message, resp.Message.Parts)

	if toolCalls := codec.ExtractToolCalls(resp.Message.Parts); len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
	}

	codec.MergeExtra(message, resp.Message.ExtraBody)

	finishReason := "stop"
	if resp.FinishReason != nil {
		finishReason = finishReasonToChat(*resp.FinishReason)
	} else if hasToolCalls(resp.Message) {
		finishReason = "tool_calls"
	}

	result := map[string]any{
		"id":      resp.ID,
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   logicalModel,
		"choices": []any{map[string]any{
			"index":         0,
			"message":       message,
			"finish_reason": finishReason,
		}},
	}

	if resp.Usage != nil {
		var reasoningTokens, cachedTokens uint64
		if resp.Usage.ReasoningTokens != nil {
			reasoningTokens = *resp.Usage.ReasoningTokens
		}
		if resp.Usage.CachedTokens != nil {
			cachedTokens = *resp.Usage.CachedTokens
		}
		result["usage"] = map[string]any{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.PromptTokens + resp.Usage.CompletionTokens,
			"completion_tokens_details": map[string]any{"reasoning_tokens": reasoningTokens},
			"prompt_tokens_details":     map[string]any{"cached_tokens": cachedTokens},
		}
	}

	codec.MergeExtra(result, resp.ExtraBody)
	return result
}

func finishReasonToChat(reason urp.FinishReason) string {
	switch reason {
	case urp.FinishStop:
		return "stop"
	case urp.FinishLength:
		return "length"
	case urp.FinishToolCalls:
		return "tool_calls"
	case urp.FinishContentFilter:
		return "content_filter"
	default:
		return "stop"
	}
}
