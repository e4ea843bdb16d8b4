// Package gemini implements the Google Gemini generateContent dialect.
package gemini

import (
	"strings"

	"github.com/monoize-go/monoize/internal/apperr"
	"github.com/monoize-go/monoize/internal/codec"
	"github.com/monoize-go/monoize/internal/urp"
)

// DecodeRequest decodes a generateContent request body into a
// urp.Request. Unlike the other dialects, model is optional here — the
// caller typically supplies it out-of-band via the URL path. Grounded
// on decode/gemini.rs `decode_request`.
func DecodeRequest(raw map[string]any) (*urp.Request, error) {
	model, _ := raw["model"].(string)
	req := &urp.Request{Model: model}

	var messages []urp.Message
	if instr, ok := raw["systemInstruction"]; ok {
		if text := collectContentText(instr); text != "" {
			messages = append(messages, urp.TextMessage(urp.RoleSystem, text))
		}
	}

	contents, _ := raw["contents"].([]any)
	for _, c := range contents {
		obj, ok := c.(map[string]any)
		if !ok {
			continue
		}
		role := decodeContentRole(obj["role"])
		rawParts, _ := obj["parts"].([]any)
		var parts []urp.Part
		for _, rp := range rawParts {
			pobj, ok := rp.(map[string]any)
			if !ok {
				continue
			}
			parts = append(parts, decodePart(pobj)...)
		}
		messages = append(messages, urp.Message{Role: role, Parts: parts, ExtraBody: codec.SplitExtra(obj, "role", "parts")})
	}
	req.Messages = messages

	if genConfig, ok := raw["generationConfig"].(map[string]any); ok {
		if temp, ok := genConfig["temperature"].(float64); ok {
			req.Temperature = &temp
		}
		if topP, ok := genConfig["topP"].(float64); ok {
			req.TopP = &topP
		}
		if maxTokens, ok := genConfig["maxOutputTokens"].(float64); ok {
			v := uint64(maxTokens)
			req.MaxOutputTokens = &v
		}
		if thinkingCfg, ok := genConfig["thinkingConfig"].(map[string]any); ok {
			if budget, ok := thinkingCfg["thinkingBudget"].(float64); ok {
				if effort := budgetToEffort(budget); effort != "" {
					req.Reasoning = &urp.ReasoningConfig{Effort: &effort, ExtraBody: urp.ExtraBody{}}
				}
			}
		}
	}

	if tools, ok := raw["tools"].([]any); ok {
		for _, t := range tools {
			tobj, ok := t.(map[string]any)
			if !ok {
				continue
			}
			decls, _ := tobj["functionDeclarations"].([]any)
			for _, d := range decls {
				dobj, ok := d.(map[string]any)
				if !ok {
					continue
				}
				name, _ := dobj["name"].(string)
				fn := &urp.FunctionDefinition{
					Name:       name,
					Parameters: dobj["parameters"],
					ExtraBody:  codec.SplitExtra(dobj, "name", "description", "parameters"),
				}
				if desc, ok := dobj["description"].(string); ok {
					fn.Description = &desc
				}
				req.Tools = append(req.Tools, urp.ToolDefinition{ToolType: "function", Function: fn})
			}
		}
	}

	if toolConfig, ok := raw["toolConfig"].(map[string]any); ok {
		if fcc, ok := toolConfig["functionCallingConfig"].(map[string]any); ok {
			req.ToolChoice = decodeToolChoice(fcc)
		}
	}

	known := []string{"model", "systemInstruction", "contents", "generationConfig", "tools", "toolConfig"}
	req.ExtraBody = codec.SplitExtra(raw, known...)
	return req, nil
}

func decodeToolChoice(fcc map[string]any) *urp.ToolChoice {
	mode, _ := fcc["mode"].(string)
	switch mode {
	case "NONE":
		return &urp.ToolChoice{Mode: "none"}
	case "ANY":
		if names, ok := fcc["allowedFunctionNames"].([]any); ok && len(names) > 0 {
			if name, ok := names[0].(string); ok {
				return &urp.ToolChoice{Specific: map[string]any{
					"type":     "function",
					"function": map[string]any{"name": name},
				}}
			}
		}
		return &urp.ToolChoice{Mode: "required"}
	default:
		return &urp.ToolChoice{Mode: "auto"}
	}
}

func collectContentText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		parts, _ := t["parts"].([]any)
		var out strings.Builder
		for _, p := range parts {
			pobj, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := pobj["text"].(string); ok {
				out.WriteString(text)
			}
		}
		return out.String()
	default:
		return ""
	}
}

func decodeContentRole(v any) urp.Role {
	s, _ := v.(string)
	switch s {
	case "model", "assistant":
		return urp.RoleAssistant
	case "system":
		return urp.RoleSystem
	case "developer":
		return urp.RoleDeveloper
	default:
		return urp.RoleUser
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

// decodePart may yield more than one URP part from a single Gemini
// "part" object: text/thought, thoughtSignature, functionCall,
// functionResponse, inlineData, and fileData are all checked
// independently rather than treated as a mutually exclusive tag.
func decodePart(obj map[string]any) []urp.Part {
	var out []urp.Part

	if text, ok := obj["text"].(string); ok {
		if thought, _ := obj["thought"].(bool); thought {
			out = append(out, &urp.ReasoningPart{Content: text, ExtraBody: urp.ExtraBody{}})
		} else {
			out = append(out, &urp.TextPart{Content: text, ExtraBody: urp.ExtraBody{}})
		}
	}
	if sig, ok := obj["thoughtSignature"]; ok {
		out = append(out, &urp.ReasoningEncryptedPart{Data: sig, ExtraBody: urp.ExtraBody{}})
	}
	if fc, ok := obj["functionCall"].(map[string]any); ok {
		name, _ := fc["name"].(string)
		callID, _ := fc["id"].(string)
		if callID == "" {
			callID = name
		}
		out = append(out, &urp.ToolCallPart{
			CallID:    callID,
			Name:      name,
			Arguments: codec.EncodeJSONArguments(fc["args"]),
			ExtraBody: urp.ExtraBody{},
		})
	}
	if fr, ok := obj["functionResponse"].(map[string]any); ok {
		name, _ := fr["name"].(string)
		response := asMap(fr["response"])
		isError, _ := response["is_error"].(bool)
		result := codec.ValueToText(response["result"])
		if result == "" {
			result = codec.ValueToText(response)
		}
		out = append(out, &urp.ToolResultPart{CallID: name, IsError: isError, ExtraBody: urp.ExtraBody{}})
		if result != "" {
			out = append(out, &urp.TextPart{Content: result, ExtraBody: urp.ExtraBody{}})
		}
	}
	if inline, ok := obj["inlineData"].(map[string]any); ok {
		mimeType, _ := inline["mimeType"].(string)
		data, _ := inline["data"].(string)
		if strings.HasPrefix(mimeType, "image/") {
			out = append(out, &urp.ImagePart{Source: urp.Base64Source{MediaType: mimeType, Data: data}, ExtraBody: urp.ExtraBody{}})
		} else {
			out = append(out, &urp.FilePart{Source: urp.Base64Source{MediaType: mimeType, Data: data}, ExtraBody: urp.ExtraBody{}})
		}
	}
	if fileData, ok := obj["fileData"].(map[string]any); ok {
		mimeType, _ := fileData["mimeType"].(string)
		uri, _ := fileData["fileUri"].(string)
		if strings.HasPrefix(mimeType, "image/") {
			out = append(out, &urp.ImagePart{Source: urp.URLSource{URL: uri}, ExtraBody: urp.ExtraBody{}})
		} else {
			out = append(out, &urp.FilePart{Source: urp.URLSource{URL: uri}, ExtraBody: urp.ExtraBody{}})
		}
	}
	return out
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// DecodeResponse decodes a non-streaming generateContent response body.
// Grounded on decode/gemini.rs `decode_response`.
func DecodeResponse(raw map[string]any) (*urp.Response, error) {
	candidates, _ := raw["candidates"].([]any)
	if len(candidates) == 0 {
		return nil, apperr.New(apperr.CodeUpstreamStatus5xx, "gemini response has no candidates")
	}
	candidate, ok := candidates[0].(map[string]any)
	if !ok {
		return nil, apperr.New(apperr.CodeUpstreamStatus5xx, "gemini candidate is not an object")
	}

	resp := &urp.Response{Model: func() string { m, _ := raw["modelVersion"].(string); return m }()}

	content, _ := candidate["content"].(map[string]any)
	rawParts, _ := content["parts"].([]any)
	var parts []urp.Part
	for _, rp := range rawParts {
		pobj, ok := rp.(map[string]any)
		if !ok {
			continue
		}
		parts = append(parts, decodePart(pobj)...)
	}
	resp.Message = urp.Message{Role: urp.RoleAssistant, Parts: parts, ExtraBody: urp.ExtraBody{}}

	finishReason, _ := candidate["finishReason"].(string)
	reason := finishReasonFromGemini(finishReason)
	resp.FinishReason = &reason

	if usage, ok := raw["usageMetadata"].(map[string]any); ok {
		resp.Usage = decodeUsageMetadata(usage)
	}

	resp.ExtraBody = codec.SplitExtra(raw, "candidates", "usageMetadata", "modelVersion")
	return resp, nil
}

func finishReasonFromGemini(reason string) urp.FinishReason {
	switch reason {
	case "MAX_TOKENS":
		return urp.FinishLength
	case "SAFETY":
		return urp.FinishContentFilter
	case "STOP":
		return urp.FinishStop
	default:
		return urp.FinishOther
	}
}

func decodeUsageMetadata(raw map[string]any) *urp.Usage {
	u := &urp.Usage{}
	if v, ok := raw["promptTokenCount"].(float64); ok {
		u.PromptTokens = uint64(v)
	}
	if v, ok := raw["candidatesTokenCount"].(float64); ok {
		u.CompletionTokens = uint64(v)
	}
	if v, ok := raw["thoughtsTokenCount"].(float64); ok {
		rt := uint64(v)
		u.ReasoningTokens = &rt
	}
	if v, ok := raw["cachedContentTokenCount"].(float64); ok {
		ct := uint64(v)
		u.CachedTokens = &ct
	}
	u.ExtraBody = codec.SplitExtra(raw, "promptTokenCount", "candidatesTokenCount", "totalTokenCount",
		"thoughtsTokenCount", "cachedContentTokenCount")
	return u
}
