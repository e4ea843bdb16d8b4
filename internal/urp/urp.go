// Package urp defines the Universal Request/Response Protocol: the
// canonical, dialect-independent shape every wire codec decodes into
// and encodes out of. Nothing in this package knows about OpenAI,
// Anthropic, Gemini, or Grok.
package urp

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ExtraBody preserves unrecognized keys at a given JSON object level so
// a decode/encode round trip never silently drops a field. Preservation
// is a contract: every codec must read and write this map, not an
// afterthought bolted on where convenient.
type ExtraBody map[string]any

func (e ExtraBody) clone() ExtraBody {
	return e.Clone()
}

// Clone returns a shallow copy of e, or nil if e is nil.
func (e ExtraBody) Clone() ExtraBody {
	if e == nil {
		return nil
	}
	out := make(ExtraBody, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Request is a single URP request (the decoded form of any dialect's
// request body).
type Request struct {
	Model           string
	Messages        []Message
	Stream          *bool
	Temperature     *float64
	TopP            *float64
	MaxOutputTokens *uint64
	User            *string
	Reasoning       *ReasoningConfig
	Tools           []ToolDefinition
	ToolChoice      *ToolChoice
	ResponseFormat  *ResponseFormat
	ExtraBody       ExtraBody
}

// ReasoningConfig carries the client's requested reasoning effort.
// Effort is one of "low", "medium", "high", or absent.
type ReasoningConfig struct {
	Effort    *string
	ExtraBody ExtraBody
}

// ToolDefinition describes a callable tool offered to the model.
type ToolDefinition struct {
	ToolType  string
	Function  *FunctionDefinition
	ExtraBody ExtraBody
}

// FunctionDefinition is the function-shaped half of a ToolDefinition.
type FunctionDefinition struct {
	Name        string
	Description *string
	Parameters  any
	Strict      *bool
	ExtraBody   ExtraBody
}

// ToolChoice is deliberately untyped beyond a mode/specific split: the
// "any" vs "required" mapping across dialects is not standardized
// (spec design note 9a). Mode carries a mode string ("none", "auto",
// "required", ...); the Anthropic and Gemini codecs translate their own
// "any"/"ANY" to and from "required". Specific carries an opaque
// forced-tool-call payload.
type ToolChoice struct {
	Mode     string
	Specific any
}

// IsSpecific reports whether this is a forced-tool-call choice rather
// than a named mode.
func (t ToolChoice) IsSpecific() bool {
	return t.Mode == "" && t.Specific != nil
}

// ResponseFormat constrains the shape of a model's reply.
type ResponseFormat struct {
	Kind       ResponseFormatKind
	JSONSchema *JSONSchemaDefinition
}

type ResponseFormatKind string

const (
	ResponseFormatText       ResponseFormatKind = "text"
	ResponseFormatJSONObject ResponseFormatKind = "json_object"
	ResponseFormatJSONSchema ResponseFormatKind = "json_schema"
)

// JSONSchemaDefinition is the payload of a ResponseFormatJSONSchema.
type JSONSchemaDefinition struct {
	Name        string
	Description *string
	Schema      any
	Strict      *bool
	ExtraBody   ExtraBody
}

// Message is one turn in the conversation.
//
// Invariants (enforced by callers, not by the type system):
//   - role == RoleTool iff at least one part is a ToolResult.
//   - each ToolResult.CallID matches a ToolCall.CallID earlier in the
//     conversation.
//   - System/Developer messages carry only Text parts in canonical form.
type Message struct {
	Role      Role
	Parts     []Part
	ExtraBody ExtraBody
}

// NewMessage returns an empty message for role.
func NewMessage(role Role) Message {
	return Message{Role: role, Parts: nil, ExtraBody: ExtraBody{}}
}

// TextMessage returns a single-part text message.
func TextMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Parts:     []Part{&TextPart{Content: content, ExtraBody: ExtraBody{}}},
		ExtraBody: ExtraBody{},
	}
}

// ContentText concatenates the text-bearing parts of a part list: Text,
// Reasoning, and Refusal. Used by transforms and usage estimation that
// only care about the visible/plain-text surface of a message.
func ContentText(parts []Part) string {
	var out []byte
	for _, p := range parts {
		switch v := p.(type) {
		case *TextPart:
			out = append(out, v.Content...)
		case *ReasoningPart:
			out = append(out, v.Content...)
		case *RefusalPart:
			out = append(out, v.Content...)
		}
	}
	return string(out)
}

// ExtractToolResultCallID returns the call_id of the first ToolResult
// part, if any.
func ExtractToolResultCallID(parts []Part) (string, bool) {
	for _, p := range parts {
		if tr, ok := p.(*ToolResultPart); ok {
			return tr.CallID, true
		}
	}
	return "", false
}

// FinishReason is the canonical completion reason (spec.md §4.1.4).
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls      FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishOther         FinishReason = "other"
)

// Usage mirrors token accounting surfaced by the upstream, plus
// whatever extra accounting fields it reported.
type Usage struct {
	PromptTokens     uint64
	CompletionTokens uint64
	ReasoningTokens  *uint64
	CachedTokens     *uint64
	ExtraBody        ExtraBody
}

// Response is a single non-streaming URP response.
type Response struct {
	ID           string
	Model        string
	Message      Message
	FinishReason *FinishReason
	Usage        *Usage
	ExtraBody    ExtraBody
}
