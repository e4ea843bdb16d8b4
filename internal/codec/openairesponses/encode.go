package openairesponses

import (
	"github.com/monoize-go/monoize/internal/codec"
	"github.com/monoize-go/monoize/internal/urp"
)

// EncodeRequest renders req as a Responses API request body for
// upstreamModel. Grounded on encode/openai_responses.rs `encode_request`.
func EncodeRequest(req *urp.Request, upstreamModel string) map[string]any {
	body := map[string]any{"model": upstreamModel}

	var instructions *string
	consumedInstructions := false
	var input []any

	for _, msg := range req.Messages {
		if !consumedInstructions && (msg.Role == urp.RoleSystem || msg.Role == urp.RoleDeveloper) {
			text := urp.ContentText(msg.Parts)
			if text != "" {
				instructions = &text
				consumedInstructions = true
				continue
			}
		}
		input = append(input, encodeMessageToInputItems(msg)...)
	}

	if instructions != nil {
		body["instructions"] = *instructions
	}
	body["input"] = input

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
		body["max_output_tokens"] = *req.MaxOutputTokens
	}
	if req.User != nil {
		body["user"] = *req.User
	}
	if req.Reasoning != nil && req.Reasoning.Effort != nil {
		body["reasoning"] = map[string]any{"effort": *req.Reasoning.Effort}
	}
	if len(req.Tools) > 0 {
		body["tools"] = encodeTools(req.Tools)
	}
	if req.ToolChoice != nil {
		body["tool_choice"] = codec.ToolChoiceToValue(req.ToolChoice)
	}
	if req.ResponseFormat != nil {
		applyResponseFormat(body, req.ResponseFormat)
	}

	codec.MergeExtra(body, req.ExtraBody)
	return body
}

func encodeMessageToInputItems(msg urp.Message) []any {
	if msg.Role == urp.RoleTool {
		if item := encodeToolResultItem(msg); item != nil {
			return []any{item}
		}
		return nil
	}

	var out []any
	hasEncrypted := codec.HasEncryptedReasoning(msg.Parts)
	for _, p := range msg.Parts {
		switch v := p.(type) {
		case *urp.ToolCallPart:
			out = append(out, map[string]any{
				"type":      "function_call",
				"call_id":   v.CallID,
				"name":      v.Name,
				"arguments": v.Arguments,
			})
		case *urp.ReasoningPart:
			if hasEncrypted {
				continue
			}
			out = append(out, map[string]any{
				"type":    "reasoning",
				"summary": []any{map[string]any{"type": "summary_text", "text": v.Content}},
				"text":    v.Content,
			})
		case *urp.ReasoningEncryptedPart:
			out = append(out, map[string]any{
				"type":              "reasoning",
				"encrypted_content": v.Data,
			})
		}
	}

	if content := encodeMessageContent(msg); content != nil {
		out = append(out, content)
	}
	return out
}

func encodeMessageContent(msg urp.Message) map[string]any {
	var blocks []any
	for _, p := range msg.Parts {
		switch v := p.(type) {
		case *urp.TextPart:
			kind := "input_text"
			if msg.Role == urp.RoleAssistant {
				kind = "output_text"
			}
			blocks = append(blocks, map[string]any{"type": kind, "text": v.Content})
		case *urp.ImagePart:
			blocks = append(blocks, encodeInputImage(v.Source))
		case *urp.FilePart:
			blocks = append(blocks, encodeInputFile(v.Source))
		case *urp.RefusalPart:
			blocks = append(blocks, map[string]any{"type": "refusal", "refusal": v.Content})
		}
	}
	if len(blocks) == 0 {
		return nil
	}
	return map[string]any{
		"type":    "message",
		"role":    codec.RoleToStr(msg.Role),
		"content": blocks,
	}
}

func encodeToolResultItem(msg urp.Message) map[string]any {
	var callID string
	for _, p := range msg.Parts {
		if tr, ok := p.(*urp.ToolResultPart); ok {
			callID = tr.CallID
			break
		}
	}
	var textBlocks []string
	var mixed []any
	for _, p := range msg.Parts {
		switch v := p.(type) {
		case *urp.TextPart:
			textBlocks = append(textBlocks, v.Content)
			mixed = append(mixed, map[string]any{"type": "input_text", "text": v.Content})
		case *urp.ImagePart:
			mixed = append(mixed, encodeInputImage(v.Source))
		case *urp.FilePart:
			mixed = append(mixed, encodeInputFile(v.Source))
		}
	}

	var output any
	switch {
	case len(mixed) == 0:
		output = ""
	case len(mixed) == len(textBlocks) && len(textBlocks) == 1:
		output = textBlocks[0]
	default:
		output = mixed
	}

	return map[string]any{
		"type":    "function_call_output",
		"call_id": callID,
		"output":  output,
	}
}

func encodeInputImage(source urp.Source) map[string]any {
	switch s := source.(type) {
	case urp.URLSource:
		return map[string]any{"type": "input_image", "image_url": s.URL}
	case urp.Base64Source:
		return map[string]any{"type": "input_image", "image_url": "data:" + s.MediaType + ";base64," + s.Data}
	default:
		return map[string]any{"type": "input_image"}
	}
}

func encodeInputFile(source urp.Source) map[string]any {
	switch s := source.(type) {
	case urp.URLSource:
		if id, ok := stripFileIDScheme(s.URL); ok {
			return map[string]any{"type": "input_file", "file_id": id}
		}
		return map[string]any{"type": "input_file", "file_url": s.URL}
	case urp.Base64Source:
		block := map[string]any{"type": "input_file", "file_data": s.Data}
		if s.Filename != nil {
			block["filename"] = *s.Filename
		}
		return block
	default:
		return map[string]any{"type": "input_file"}
	}
}

func stripFileIDScheme(url string) (string, bool) {
	const prefix = "file_id://"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):], true
	}
	return "", false
}

func encodeTools(tools []urp.ToolDefinition) []any {
	var out []any
	for _, t := range tools {
		if t.ToolType != "function" || t.Function == nil {
			continue
		}
		obj := map[string]any{
			"type": "function",
			"name": t.Function.Name,
		}
		if t.Function.Description != nil {
			obj["description"] = *t.Function.Description
		}
		if t.Function.Parameters != nil {
			obj["parameters"] = t.Function.Parameters
		}
		if t.Function.Strict != nil {
			obj["strict"] = *t.Function.Strict
		}
		codec.MergeExtra(obj, t.Function.ExtraBody)
		out = append(out, obj)
	}
	return out
}

func applyResponseFormat(body map[string]any, format *urp.ResponseFormat) {
	var textFormat map[string]any
	switch format.Kind {
	case urp.ResponseFormatJSONObject:
		textFormat = map[string]any{"type": "json_object"}
	case urp.ResponseFormatJSONSchema:
		if format.JSONSchema == nil {
			return
		}
		schema := map[string]any{
			"type":   "json_schema",
			"name":   format.JSONSchema.Name,
			"schema": format.JSONSchema.Schema,
		}
		if format.JSONSchema.Description != nil {
			schema["description"] = *format.JSONSchema.Description
		}
		if format.JSONSchema.Strict != nil {
			schema["strict"] = *format.JSONSchema.Strict
		}
		codec.MergeExtra(schema, format.JSONSchema.ExtraBody)
		textFormat = schema
	default:
		textFormat = map[string]any{"type": "text"}
	}
	body["text"] = map[string]any{"format": textFormat}
}

// EncodeResponse renders resp as a Responses API response body for
// logicalModel. Grounded on encode/openai_responses.rs `encode_response`.
func EncodeResponse(resp *urp.Response, logicalModel string) map[string]any {
	var output []any
	var textBlocks []any

	for _, p := range resp.Message.Parts {
		switch v := p.(type) {
		case *urp.TextPart:
			textBlocks = append(textBlocks, map[string]any{"type": "output_text", "text": v.Content})
		case *urp.RefusalPart:
			textBlocks = append(textBlocks, map[string]any{"type": "refusal", "refusal": v.Content})
		case *urp.ImagePart:
			output = append(output, encodeOutputImage(v.Source))
		case *urp.FilePart:
			output = append(output, encodeOutputFile(v.Source))
		case *urp.ReasoningPart:
			output = append(output, map[string]any{
				"type":    "reasoning",
				"summary": []any{map[string]any{"type": "summary_text", "text": v.Content}},
				"text":    v.Content,
			})
		case *urp.ReasoningEncryptedPart:
			output = append(output, map[string]any{"type": "reasoning", "encrypted_content": v.Data})
		case *urp.ToolCallPart:
			output = append(output, map[string]any{
				"type":      "function_call",
				"call_id":   v.CallID,
				"name":      v.Name,
				"arguments": v.Arguments,
			})
		}
	}
	if len(textBlocks) > 0 {
		msg := map[string]any{"type": "message", "role": "assistant", "content": textBlocks}
		output = append([]any{msg}, output...)
	}

	body := map[string]any{
		"id":     resp.ID,
		"model":  logicalModel,
		"output": output,
		"status": finishReasonToStatus(resp.FinishReason),
	}

	var promptTokens, completionTokens uint64
	var reasoningTokens, cachedTokens uint64
	if resp.Usage != nil {
		promptTokens = resp.Usage.PromptTokens
		completionTokens = resp.Usage.CompletionTokens
		if resp.Usage.ReasoningTokens != nil {
			reasoningTokens = *resp.Usage.ReasoningTokens
		}
		if resp.Usage.CachedTokens != nil {
			cachedTokens = *resp.Usage.CachedTokens
		}
	}
	body["usage"] = map[string]any{
		"input_tokens":  promptTokens,
		"output_tokens": completionTokens,
		"total_tokens":  promptTokens + completionTokens,
		"output_tokens_details": map[string]any{
			"reasoning_tokens": reasoningTokens,
		},
		"input_tokens_details": map[string]any{
			"cached_tokens": cachedTokens,
		},
	}

	codec.MergeExtra(body, resp.ExtraBody)
	return body
}

func encodeOutputImage(source urp.Source) map[string]any {
	switch s := source.(type) {
	case urp.URLSource:
		return map[string]any{"type": "output_image", "url": s.URL}
	case urp.Base64Source:
		return map[string]any{"type": "output_image", "media_type": s.MediaType, "data": s.Data}
	default:
		return map[string]any{"type": "output_image"}
	}
}

func encodeOutputFile(source urp.Source) map[string]any {
	switch s := source.(type) {
	case urp.URLSource:
		return map[string]any{"type": "output_file", "url": s.URL}
	case urp.Base64Source:
		block := map[string]any{"type": "output_file", "media_type": s.MediaType, "data": s.Data}
		if s.Filename != nil {
			block["filename"] = *s.Filename
		}
		return block
	default:
		return map[string]any{"type": "output_file"}
	}
}

func finishReasonToStatus(reason *urp.FinishReason) string {
	if reason == nil {
		return "completed"
	}
	switch *reason {
	case urp.FinishLength:
		return "incomplete"
	case urp.FinishOther:
		return "failed"
	default:
		return "completed"
	}
}
