package anthropic

import (
	"strings"

	"github.com/monoize-go/monoize/internal/codec"
	"github.com/monoize-go/monoize/internal/urp"
)

// EncodeRequest renders req as a Messages API request body for
// upstreamModel. Grounded on encode/anthropic.rs `encode_request`.
func EncodeRequest(req *urp.Request, upstreamModel string) map[string]any {
	var systemBlocks []any
	var messages []any

	for _, msg := range req.Messages {
		switch msg.Role {
		case urp.RoleSystem, urp.RoleDeveloper:
			for _, p := range msg.Parts {
				if t, ok := p.(*urp.TextPart); ok && t.Content != "" {
					block := map[string]any{"type": "text", "text": t.Content}
					codec.MergeExtra(block, t.ExtraBody)
					systemBlocks = append(systemBlocks, block)
				}
			}
		case urp.RoleTool:
			if item := encodeToolResultMessage(msg); item != nil {
				messages = append(messages, item)
			}
		default:
			messages = append(messages, encodeRegularMessage(msg))
		}
	}

	maxTokens := uint64(1024)
	if req.MaxOutputTokens != nil {
		maxTokens = *req.MaxOutputTokens
	}
	body := map[string]any{
		"model":      upstreamModel,
		"messages":   messages,
		"max_tokens": maxTokens,
	}
	if len(systemBlocks) > 0 {
		body["system"] = systemBlocks
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
	if len(req.Tools) > 0 {
		body["tools"] = encodeTools(req.Tools)
	}
	if req.ToolChoice != nil {
		body["tool_choice"] = encodeToolChoice(req.ToolChoice)
	}
	if req.Reasoning != nil && req.Reasoning.Effort != nil {
		if modelSupportsAdaptive(upstreamModel) {
			body["thinking"] = map[string]any{"type": "adaptive"}
			body["output_config"] = map[string]any{"effort": *req.Reasoning.Effort}
		} else {
			body["thinking"] = map[string]any{
				"type":          "enabled",
				"budget_tokens": effortToBudget(*req.Reasoning.Effort),
			}
		}
	}
	if req.ResponseFormat != nil &&
		(req.ResponseFormat.Kind == urp.ResponseFormatJSONObject || req.ResponseFormat.Kind == urp.ResponseFormatJSONSchema) {
		body["response_format"] = "unsupported"
	}

	codec.MergeExtra(body, req.ExtraBody)
	return body
}

func encodeRegularMessage(msg urp.Message) map[string]any {
	role := "user"
	if msg.Role == urp.RoleAssistant {
		role = "assistant"
	}
	hasEncrypted := codec.HasEncryptedReasoning(msg.Parts)
	var content []any
	for _, p := range msg.Parts {
		switch v := p.(type) {
		case *urp.TextPart:
			block := map[string]any{"type": "text", "text": v.Content}
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		case *urp.ImagePart:
			block := encodeAnthropicImage(v.Source)
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		case *urp.FilePart:
			block := encodeAnthropicFile(v.Source)
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		case *urp.ReasoningPart:
			if hasEncrypted {
				continue
			}
			block := map[string]any{"type": "thinking", "thinking": v.Content}
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		case *urp.ReasoningEncryptedPart:
			block := map[string]any{"type": "thinking", "encrypted_thinking": v.Data}
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		case *urp.ToolCallPart:
			block := map[string]any{
				"type":  "tool_use",
				"id":    v.CallID,
				"name":  v.Name,
				"input": codec.DecodeJSONArguments(v.Arguments),
			}
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		}
	}
	msgObj := map[string]any{"role": role, "content": content}
	codec.MergeExtra(msgObj, msg.ExtraBody)
	return msgObj
}

func encodeToolResultMessage(msg urp.Message) map[string]any {
	var callID string
	var isError bool
	found := false
	for _, p := range msg.Parts {
		if tr, ok := p.(*urp.ToolResultPart); ok {
			callID = tr.CallID
			isError = tr.IsError
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	var content []any
	for _, p := range msg.Parts {
		switch v := p.(type) {
		case *urp.TextPart:
			block := map[string]any{"type": "text", "text": v.Content}
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		case *urp.ImagePart:
			content = append(content, encodeAnthropicImage(v.Source))
		case *urp.FilePart:
			content = append(content, encodeAnthropicFile(v.Source))
		}
	}
	if len(content) == 0 {
		content = append(content, map[string]any{"type": "text", "text": ""})
	}

	toolResultBlock := map[string]any{
		"type":        "tool_result",
		"tool_use_id": callID,
		"is_error":    isError,
		"content":     content,
	}
	return map[string]any{"role": "user", "content": []any{toolResultBlock}}
}

func encodeTools(tools []urp.ToolDefinition) []any {
	var out []any
	for _, t := range tools {
		if t.ToolType == "function" && t.Function != nil {
			schema := t.Function.Parameters
			if schema == nil {
				schema = map[string]any{"type": "object", "properties": map[string]any{}, "additionalProperties": true}
			}
			obj := map[string]any{
				"name":         t.Function.Name,
				"input_schema": schema,
			}
			if t.Function.Description != nil {
				obj["description"] = *t.Function.Description
			}
			out = append(out, obj)
			continue
		}
		obj := map[string]any{"name": t.ToolType}
		codec.MergeExtra(obj, t.ExtraBody)
		out = append(out, obj)
	}
	return out
}

func encodeToolChoice(tc *urp.ToolChoice) any {
	if tc.IsSpecific() {
		if obj, ok := tc.Specific.(map[string]any); ok {
			if fn, ok := obj["function"].(map[string]any); ok {
				if name, ok := fn["name"].(string); ok {
					return map[string]any{"type": "tool", "name": name}
				}
			}
		}
		return tc.Specific
	}
	switch tc.Mode {
	case "auto":
		return map[string]any{"type": "auto"}
	case "required":
		return map[string]any{"type": "any"}
	case "none":
		return map[string]any{"type": "none"}
	default:
		return tc.Mode
	}
}

func encodeAnthropicImage(source urp.Source) map[string]any {
	switch s := source.(type) {
	case urp.URLSource:
		return map[string]any{"type": "image", "source": map[string]any{"type": "url", "url": s.URL}}
	case urp.Base64Source:
		return map[string]any{"type": "image", "source": map[string]any{
			"type": "base64", "media_type": s.MediaType, "data": s.Data,
		}}
	default:
		return map[string]any{"type": "image"}
	}
}

func encodeAnthropicFile(source urp.Source) map[string]any {
	switch s := source.(type) {
	case urp.URLSource:
		return map[string]any{"type": "document", "source": map[string]any{"type": "url", "url": s.URL}}
	case urp.Base64Source:
		src := map[string]any{"type": "base64", "media_type": s.MediaType, "data": s.Data}
		if s.Filename != nil {
			src["filename"] = *s.Filename
		}
		return map[string]any{"type": "document", "source": src}
	default:
		return map[string]any{"type": "document"}
	}
}

// modelSupportsAdaptive reports whether upstreamModel is a Claude
// generation new enough to use the adaptive thinking knob rather than
// the deprecated budget_tokens knob.
func modelSupportsAdaptive(model string) bool {
	m := strings.ToLower(model)
	if strings.Contains(m, "opus-4-6") || strings.Contains(m, "sonnet-4-6") ||
		strings.Contains(m, "opus-4.6") || strings.Contains(m, "sonnet-4.6") {
		return true
	}
	for _, prefix := range []string{"opus-", "sonnet-"} {
		pos := strings.Index(m, prefix)
		if pos == -1 {
			continue
		}
		after := m[pos+len(prefix):]
		var digits strings.Builder
		for _, c := range after {
			if c < '0' || c > '9' {
				break
			}
			digits.WriteRune(c)
		}
		if digits.Len() == 0 {
			continue
		}
		major := 0
		for _, c := range digits.String() {
			major = major*10 + int(c-'0')
		}
		if major >= 5 {
			return true
		}
	}
	return false
}

func effortToBudget(effort string) int {
	switch effort {
	case "low":
		return 1024
	case "high":
		return 16384
	default:
		return 4096
	}
}

// EncodeResponse renders resp as a Messages API response body for
// logicalModel. Grounded on encode/anthropic.rs `encode_response`.
func EncodeResponse(resp *urp.Response, logicalModel string) map[string]any {
	var content []any
	var encrypted any
	hasEncryptedData := false
	for _, p := range resp.Message.Parts {
		if r, ok := p.(*urp.ReasoningEncryptedPart); ok {
			encrypted = r.Data
			hasEncryptedData = true
			break
		}
	}

	hasReasoningPart := false
	for _, p := range resp.Message.Parts {
		switch v := p.(type) {
		case *urp.ReasoningPart:
			hasReasoningPart = true
			block := map[string]any{"type": "thinking", "thinking": v.Content}
			if hasEncryptedData {
				block["signature"] = encrypted
			}
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		case *urp.TextPart:
			block := map[string]any{"type": "text", "text": v.Content}
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		case *urp.ToolCallPart:
			block := map[string]any{
				"type":  "tool_use",
				"id":    v.CallID,
				"name":  v.Name,
				"input": codec.DecodeJSONArguments(v.Arguments),
			}
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		case *urp.ImagePart:
			block := encodeAnthropicImage(v.Source)
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		case *urp.FilePart:
			block := encodeAnthropicFile(v.Source)
			codec.MergeExtra(block, v.ExtraBody)
			content = append(content, block)
		}
	}
	if !hasReasoningPart && hasEncryptedData {
		block := map[string]any{"type": "thinking", "thinking": "", "signature": encrypted}
		content = append([]any{block}, content...)
	}

	body := map[string]any{
		"id":          resp.ID,
		"type":        "message",
		"role":        "assistant",
		"model":       logicalModel,
		"content":     content,
		"stop_reason": finishReasonToStopReason(resp.FinishReason),
	}

	var inputTokens, outputTokens, cacheRead uint64
	if resp.Usage != nil {
		inputTokens = resp.Usage.PromptTokens
		outputTokens = resp.Usage.CompletionTokens
		if resp.Usage.CachedTokens != nil {
			cacheRead = *resp.Usage.CachedTokens
		}
	}
	body["usage"] = map[string]any{
		"input_tokens":             inputTokens,
		"output_tokens":            outputTokens,
		"cache_read_input_tokens": cacheRead,
	}

	codec.MergeExtra(body, resp.ExtraBody)
	return body
}

func finishReasonToStopReason(reason *urp.FinishReason) string {
	if reason == nil {
		return "end_turn"
	}
	switch *reason {
	case urp.FinishLength:
		return "max_tokens"
	case urp.FinishToolCalls:
		return "tool_use"
	default:
		return "end_turn"
	}
}
