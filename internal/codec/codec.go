// Package codec holds the wire-shape helpers shared by every dialect
// codec under internal/codec/{openairesponses,openaichat,anthropic,
// gemini,grok}. Each dialect package decodes a client request body into
// a urp.Request, encodes a urp.Response back into that dialect's wire
// shape, and does the equivalent for streamed events.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/monoize-go/monoize/internal/urp"
)

// Dialect names a wire protocol this proxy terminates (spec.md §3).
type Dialect string

const (
	DialectOpenAIResponses Dialect = "openai_responses"
	DialectOpenAIChat      Dialect = "openai_chat"
	DialectAnthropic       Dialect = "anthropic"
	DialectGemini          Dialect = "gemini"
	DialectGrok            Dialect = "grok"
)

// AsObject type-asserts v as a JSON object, or returns nil.
func AsObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

// AsArray type-asserts v as a JSON array, or returns nil.
func AsArray(v any) []any {
	if a, ok := v.([]any); ok {
		return a
	}
	return nil
}

func asObject(v any) map[string]any { return AsObject(v) }

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// SplitExtra returns the fields of obj whose keys are not in knownKeys
// as a new ExtraBody, preserving every field a decoder didn't explicitly
// model so an encode round trip never silently drops it. obj itself is
// left unchanged.
func SplitExtra(obj map[string]any, knownKeys ...string) urp.ExtraBody {
	if len(obj) == 0 {
		return urp.ExtraBody{}
	}
	known := make(map[string]bool, len(knownKeys))
	for _, k := range knownKeys {
		known[k] = true
	}
	out := urp.ExtraBody{}
	for k, v := range obj {
		if !known[k] {
			out[k] = v
		}
	}
	return out
}

// MergeExtra writes extra's fields into obj for every key obj doesn't
// already have set explicitly — obj's own fields always win.
func MergeExtra(obj map[string]any, extra urp.ExtraBody) {
	for k, v := range extra {
		if _, exists := obj[k]; !exists {
			obj[k] = v
		}
	}
}

// ValueToText best-effort stringifies v: a string passes through, an
// array of strings/text-bearing objects is joined, anything else falls
// back to its JSON encoding.
func ValueToText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		var parts []string
		for _, item := range t {
			switch iv := item.(type) {
			case string:
				parts = append(parts, iv)
			case map[string]any:
				if text, ok := asString(iv["text"]); ok {
					parts = append(parts, text)
				} else {
					parts = append(parts, jsonStringify(iv))
				}
			default:
				parts = append(parts, jsonStringify(iv))
			}
		}
		return strings.Join(parts, "")
	case nil:
		return ""
	default:
		return jsonStringify(v)
	}
}

func jsonStringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// ParseToolDefinition decodes a single tool definition object, handling
// both the OpenAI shape ({type:"function", function:{...}}) and the
// flat Anthropic shape ({name, input_schema, ...}).
func ParseToolDefinition(raw map[string]any) (urp.ToolDefinition, bool) {
	if toolType, ok := asString(raw["type"]); ok && toolType == "function" {
		fn := asObject(raw["function"])
		if fn == nil {
			return urp.ToolDefinition{}, false
		}
		return urp.ToolDefinition{
			ToolType:  "function",
			Function:  parseFunctionDefinition(fn),
			ExtraBody: SplitExtra(raw, "type", "function"),
		}, true
	}
	if name, ok := asString(raw["name"]); ok {
		fn := &urp.FunctionDefinition{
			Name:      name,
			Parameters: raw["input_schema"],
			ExtraBody: SplitExtra(raw, "name", "description", "input_schema"),
		}
		if desc, ok := asString(raw["description"]); ok {
			fn.Description = &desc
		}
		return urp.ToolDefinition{ToolType: "function", Function: fn}, true
	}
	return urp.ToolDefinition{}, false
}

func parseFunctionDefinition(fn map[string]any) *urp.FunctionDefinition {
	out := &urp.FunctionDefinition{
		Parameters: fn["parameters"],
		ExtraBody:  SplitExtra(fn, "name", "description", "parameters", "strict"),
	}
	if name, ok := asString(fn["name"]); ok {
		out.Name = name
	}
	if desc, ok := asString(fn["description"]); ok {
		out.Description = &desc
	}
	if strict, ok := fn["strict"].(bool); ok {
		out.Strict = &strict
	}
	return out
}

// ParseImagePartFromObj decodes an image-shaped content block, handling
// image_url as a string or object, a bare url, image_base64, and the
// nested Anthropic `source` object.
func ParseImagePartFromObj(obj map[string]any) (*urp.ImagePart, bool) {
	if raw, ok := obj["image_url"]; ok {
		switch v := raw.(type) {
		case string:
			return &urp.ImagePart{Source: urp.URLSource{URL: v}, ExtraBody: urp.ExtraBody{}}, true
		case map[string]any:
			url, _ := asString(v["url"])
			part := &urp.ImagePart{Source: urp.URLSource{URL: url}, ExtraBody: urp.ExtraBody{}}
			if detail, ok := asString(v["detail"]); ok {
				part.Source = urp.URLSource{URL: url, Detail: &detail}
			}
			return part, true
		}
	}
	if url, ok := asString(obj["url"]); ok {
		return &urp.ImagePart{Source: urp.URLSource{URL: url}, ExtraBody: urp.ExtraBody{}}, true
	}
	if b64, ok := asString(obj["image_base64"]); ok {
		mediaType, _ := asString(obj["media_type"])
		if mediaType == "" {
			mediaType = "image/png"
		}
		return &urp.ImagePart{Source: urp.Base64Source{MediaType: mediaType, Data: b64}, ExtraBody: urp.ExtraBody{}}, true
	}
	if src := asObject(obj["source"]); src != nil {
		srcType, _ := asString(src["type"])
		switch srcType {
		case "url":
			url, _ := asString(src["url"])
			return &urp.ImagePart{Source: urp.URLSource{URL: url}, ExtraBody: urp.ExtraBody{}}, true
		case "base64":
			mediaType, _ := asString(src["media_type"])
			data, _ := asString(src["data"])
			return &urp.ImagePart{Source: urp.Base64Source{MediaType: mediaType, Data: data}, ExtraBody: urp.ExtraBody{}}, true
		}
	}
	return nil, false
}

// ParseFilePartFromObj decodes a file-shaped content block, handling
// url/file_url, the nested `source` object, file_data/data, and
// file_id (synthesized into a `file_id://` URL so it round-trips).
func ParseFilePartFromObj(obj map[string]any) (*urp.FilePart, bool) {
	if url, ok := asString(obj["url"]); ok {
		return &urp.FilePart{Source: urp.URLSource{URL: url}, ExtraBody: urp.ExtraBody{}}, true
	}
	if url, ok := asString(obj["file_url"]); ok {
		return &urp.FilePart{Source: urp.URLSource{URL: url}, ExtraBody: urp.ExtraBody{}}, true
	}
	if src := asObject(obj["source"]); src != nil {
		srcType, _ := asString(src["type"])
		switch srcType {
		case "url":
			url, _ := asString(src["url"])
			return &urp.FilePart{Source: urp.URLSource{URL: url}, ExtraBody: urp.ExtraBody{}}, true
		case "base64":
			mediaType, _ := asString(src["media_type"])
			data, _ := asString(src["data"])
			var filename *string
			if fn, ok := asString(src["filename"]); ok {
				filename = &fn
			}
			return &urp.FilePart{Source: urp.Base64Source{MediaType: mediaType, Data: data, Filename: filename}, ExtraBody: urp.ExtraBody{}}, true
		}
	}
	data, hasData := asString(obj["file_data"])
	if !hasData {
		data, hasData = asString(obj["data"])
	}
	if hasData {
		mediaType, _ := asString(obj["media_type"])
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
		var filename *string
		if fn, ok := asString(obj["filename"]); ok {
			filename = &fn
		}
		return &urp.FilePart{Source: urp.Base64Source{MediaType: mediaType, Data: data, Filename: filename}, ExtraBody: urp.ExtraBody{}}, true
	}
	if id, ok := asString(obj["file_id"]); ok {
		return &urp.FilePart{Source: urp.URLSource{URL: "file_id://" + id}, ExtraBody: urp.ExtraBody{}}, true
	}
	return nil, false
}

// RoleToStr renders role the way every OpenAI-shaped dialect spells it.
func RoleToStr(role urp.Role) string {
	switch role {
	case urp.RoleSystem:
		return "system"
	case urp.RoleDeveloper:
		return "developer"
	case urp.RoleAssistant:
		return "assistant"
	case urp.RoleTool:
		return "tool"
	default:
		return "user"
	}
}

// ToolChoiceToValue renders a urp.ToolChoice as the raw JSON value an
// OpenAI-shaped dialect expects: a bare mode string, or the opaque
// forced-call payload.
func ToolChoiceToValue(tc *urp.ToolChoice) any {
	if tc == nil {
		return nil
	}
	if tc.IsSpecific() {
		return tc.Specific
	}
	return tc.Mode
}

// TextParts concatenates only the Text parts of a part list — narrower
// than urp.ContentText, which also folds in Reasoning/Refusal.
func TextParts(parts []urp.Part) string {
	var out strings.Builder
	for _, p := range parts {
		if t, ok := p.(*urp.TextPart); ok {
			out.WriteString(t.Content)
		}
	}
	return out.String()
}

// HasEncryptedReasoning reports whether parts carries a
// ReasoningEncryptedPart.
func HasEncryptedReasoning(parts []urp.Part) bool {
	for _, p := range parts {
		if _, ok := p.(*urp.ReasoningEncryptedPart); ok {
			return true
		}
	}
	return false
}

// ExtractReasoningPlain concatenates every ReasoningPart's text.
func ExtractReasoningPlain(parts []urp.Part) string {
	var out strings.Builder
	for _, p := range parts {
		if r, ok := p.(*urp.ReasoningPart); ok {
			out.WriteString(r.Content)
		}
	}
	return out.String()
}

// ExtractReasoningEncrypted returns the first ReasoningEncryptedPart's
// opaque data, if any.
func ExtractReasoningEncrypted(parts []urp.Part) (any, bool) {
	for _, p := range parts {
		if r, ok := p.(*urp.ReasoningEncryptedPart); ok {
			return r.Data, true
		}
	}
	return nil, false
}

// ExtractToolCalls builds the OpenAI-shaped tool_calls array
// ({id,type:"function",function:{name,arguments}}) from parts.
func ExtractToolCalls(parts []urp.Part) []any {
	var out []any
	for _, p := range parts {
		tc, ok := p.(*urp.ToolCallPart)
		if !ok {
			continue
		}
		call := map[string]any{
			"id":   tc.CallID,
			"type": "function",
			"function": map[string]any{
				"name":      tc.Name,
				"arguments": tc.Arguments,
			},
		}
		MergeExtra(call, tc.ExtraBody)
		out = append(out, call)
	}
	return out
}

// EncodeJSONArguments best-effort JSON-encodes a decoded tool-call
// input/args value into the string URP requires for ToolCallPart.Arguments.
func EncodeJSONArguments(v any) string {
	if v == nil {
		return "{}"
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// DecodeJSONArguments best-effort parses a JSON-encoded tool-call
// arguments string back into a raw value for encoding into a dialect
// that wants a structured object rather than a string.
func DecodeJSONArguments(args string) any {
	if args == "" {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal([]byte(args), &v); err != nil {
		return map[string]any{"_raw": args}
	}
	return v
}
