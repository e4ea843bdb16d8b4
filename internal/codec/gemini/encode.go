package gemini

import (
	"github.com/monoize-go/monoize/internal/codec"
	"github.com/monoize-go/monoize/internal/urp"
)

// EncodeRequest renders req as a generateContent request body.
// upstreamModel is not written into the body — Gemini takes the model
// from the URL path — matching encode/gemini.rs's own
// `obj.remove("model")` guard. Grounded on encode/gemini.rs
// `encode_request`.
func EncodeRequest(req *urp.Request, upstreamModel string) map[string]any {
	var contents []any
	var systemParts []any

	for _, msg := range req.Messages {
		if msg.Role == urp.RoleSystem || msg.Role == urp.RoleDeveloper {
			text := codec.TextParts(msg.Parts)
			if text != "" {
				systemParts = append(systemParts, map[string]any{"text": text})
			}
			continue
		}
		role := "user"
		if msg.Role == urp.RoleAssistant {
			role = "model"
		}
		parts := encodeMessageParts(msg)
		if len(parts) > 0 {
			contents = append(contents, map[string]any{"role": role, "parts": parts})
		}
	}

	body := map[string]any{"contents": contents}
	if len(systemParts) > 0 {
		body["systemInstruction"] = map[string]any{"parts": systemParts}
	}

	genConfig := map[string]any{}
	if req.Temperature != nil {
		genConfig["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		genConfig["topP"] = *req.TopP
	}
	if req.MaxOutputTokens != nil {
		genConfig["maxOutputTokens"] = *req.MaxOutputTokens
	}
	if req.Reasoning != nil && req.Reasoning.Effort != nil {
		genConfig["thinkingConfig"] = map[string]any{"thinkingBudget": effortToBudget(*req.Reasoning.Effort)}
	}
	if len(genConfig) > 0 {
		body["generationConfig"] = genConfig
	}

	if len(req.Tools) > 0 {
		if decls := encodeFunctionDeclarations(req.Tools); len(decls) > 0 {
			body["tools"] = []any{map[string]any{"functionDeclarations": decls}}
		}
	}
	if req.ToolChoice != nil {
		if cfg := encodeToolChoice(req.ToolChoice); cfg != nil {
			body["toolConfig"] = map[string]any{"functionCallingConfig": cfg}
		}
	}

	codec.MergeExtra(body, req.ExtraBody)
	return body
}

func encodeMessageParts(msg urp.Message) []any {
	var out []any
	for _, p := range msg.Parts {
		switch v := p.(type) {
		case *urp.TextPart:
			out = append(out, map[string]any{"text": v.Content})
		case *urp.ImagePart:
			out = append(out, encodeImagePart(v.Source))
		case *urp.FilePart:
			out = append(out, encodeFilePart(v.Source))
		case *urp.ToolCallPart:
			out = append(out, map[string]any{
				"functionCall": map[string]any{
					"id":   v.CallID,
					"name": v.Name,
					"args": codec.DecodeJSONArguments(v.Arguments),
				},
			})
		case *urp.ToolResultPart:
			out = append(out, map[string]any{
				"functionResponse": map[string]any{
					"name": v.CallID,
					"response": map[string]any{
						"result":   codec.TextParts(msg.Parts),
						"is_error": v.IsError,
					},
				},
			})
		case *urp.ReasoningPart:
			out = append(out, map[string]any{"text": v.Content, "thought": true})
		case *urp.ReasoningEncryptedPart:
			out = append(out, map[string]any{"thoughtSignature": v.Data})
		case *urp.RefusalPart:
			out = append(out, map[string]any{"text": v.Content})
		}
	}
	return out
}

func encodeImagePart(source urp.Source) map[string]any {
	switch s := source.(type) {
	case urp.URLSource:
		return map[string]any{"fileData": map[string]any{"mimeType": "image/*", "fileUri": s.URL}}
	case urp.Base64Source:
		return map[string]any{"inlineData": map[string]any{"mimeType": s.MediaType, "data": s.Data}}
	default:
		return map[string]any{}
	}
}

func encodeFilePart(source urp.Source) map[string]any {
	switch s := source.(type) {
	case urp.URLSource:
		return map[string]any{"fileData": map[string]any{"mimeType": "application/octet-stream", "fileUri": s.URL}}
	case urp.Base64Source:
		return map[string]any{"inlineData": map[string]any{"mimeType": s.MediaType, "data": s.Data}}
	default:
		return map[string]any{}
	}
}

func encodeFunctionDeclarations(tools []urp.ToolDefinition) []any {
	var out []any
	for _, t := range tools {
		if t.ToolType != "function" || t.Function == nil {
			continue
		}
		obj := map[string]any{"name": t.Function.Name}
		if t.Function.Description != nil {
			obj["description"] = *t.Function.Description
		}
		if t.Function.Parameters != nil {
			obj["parameters"] = t.Function.Parameters
		}
		codec.MergeExtra(obj, t.Function.ExtraBody)
		out = append(out, obj)
	}
	return out
}

func encodeToolChoice(tc *urp.ToolChoice) any {
	if tc.IsSpecific() {
		if obj, ok := tc.Specific.(map[string]any); ok {
			if fn, ok := obj["function"].(map[string]any); ok {
				if name, ok := fn["name"].(string); ok {
					return map[string]any{"mode": "ANY", "allowedFunctionNames": []any{name}}
				}
			}
		}
		return nil
	}
	switch tc.Mode {
	case "none":
		return map[string]any{"mode": "NONE"}
	case "required":
		return map[string]any{"mode": "ANY"}
	default:
		return map[string]any{"mode": "AUTO"}
	}
}

func effortToBudget(effort string) int {
	switch effort {
	case "low":
		return 512
	case "high":
		return 2048
	default:
		return 1024
	}
}

// EncodeResponse renders resp as a generateContent response body.
// Grounded on encode/gemini.rs `encode_response`.
func EncodeResponse(resp *urp.Response, logicalModel string) map[string]any {
	var parts []any
	for _, p := range resp.Message.Parts {
		switch v := p.(type) {
		case *urp.TextPart:
			parts = append(parts, map[string]any{"text": v.Content})
		case *urp.ReasoningPart:
			parts = append(parts, map[string]any{"text": v.Content, "thought": true})
		case *urp.ReasoningEncryptedPart:
			parts = append(parts, map[string]any{"thoughtSignature": v.Data})
		case *urp.ToolCallPart:
			parts = append(parts, map[string]any{
				"functionCall": map[string]any{
					"id":   v.CallID,
					"name": v.Name,
					"args": codec.DecodeJSONArguments(v.Arguments),
				},
			})
		case *urp.ImagePart:
			parts = append(parts, encodeImagePart(v.Source))
		case *urp.FilePart:
			parts = append(parts, encodeFilePart(v.Source))
		case *urp.RefusalPart:
			parts = append(parts, map[string]any{"text": v.Content})
		}
	}

	var promptTokens, completionTokens, reasoningTokens, cachedTokens uint64
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

	body := map[string]any{
		"candidates": []any{map[string]any{
			"index": 0,
			"content": map[string]any{
				"role":  "model",
				"parts": parts,
			},
			"finishReason": finishReasonToGemini(resp.FinishReason),
		}},
		"usageMetadata": map[string]any{
			"promptTokenCount":        promptTokens,
			"candidatesTokenCount":    completionTokens,
			"totalTokenCount":         promptTokens + completionTokens,
			"thoughtsTokenCount":      reasoningTokens,
			"cachedContentTokenCount": cachedTokens,
		},
		"modelVersion": logicalModel,
	}

	codec.MergeExtra(body, resp.ExtraBody)
	return body
}

func finishReasonToGemini(reason *urp.FinishReason) string {
	if reason == nil {
		return "OTHER"
	}
	switch *reason {
	case urp.FinishLength:
		return "MAX_TOKENS"
	case urp.FinishContentFilter:
		return "SAFETY"
	case urp.FinishStop, urp.FinishToolCalls:
		return "STOP"
	default:
		return "OTHER"
	}
}
