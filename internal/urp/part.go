package urp

// Part is a tagged union over the canonical content fragments a
// Message carries: Text, Image, Audio, File, Reasoning,
// ReasoningEncrypted, ToolCall, ToolResult, Refusal.
//
// Go has no sum type, so Part is a sealed interface: only the types in
// this file implement it (the unexported isPart method prevents other
// packages from adding variants). There is no compiler-enforced
// exhaustiveness for switches over a Part: a variant a switch has no
// case for goes to its default arm (ClonePart returns it unchanged) or,
// without one, is skipped (ContentText).
type Part interface {
	isPart()
	// Extra returns the part's extra_body preservation map.
	Extra() ExtraBody
}

// TextPart is plain text content.
type TextPart struct {
	Content   string
	ExtraBody ExtraBody
}

func (*TextPart) isPart()            {}
func (p *TextPart) Extra() ExtraBody { return p.ExtraBody }

// ImagePart references image content.
type ImagePart struct {
	Source    Source
	ExtraBody ExtraBody
}

func (*ImagePart) isPart()            {}
func (p *ImagePart) Extra() ExtraBody { return p.ExtraBody }

// AudioPart references audio content.
type AudioPart struct {
	Source    Source
	ExtraBody ExtraBody
}

func (*AudioPart) isPart()            {}
func (p *AudioPart) Extra() ExtraBody { return p.ExtraBody }

// FilePart references a generic file attachment.
type FilePart struct {
	Source    Source
	ExtraBody ExtraBody
}

func (*FilePart) isPart()            {}
func (p *FilePart) Extra() ExtraBody { return p.ExtraBody }

// ReasoningPart is plaintext model reasoning/thinking output.
type ReasoningPart struct {
	Content   string
	ExtraBody ExtraBody
}

func (*ReasoningPart) isPart()            {}
func (p *ReasoningPart) Extra() ExtraBody { return p.ExtraBody }

// ReasoningEncryptedPart is opaque reasoning data (e.g. an Anthropic
// thinking-block signature) that MUST survive round-trips byte for
// byte. Data is left as `any` because its wire shape varies (a string
// signature for Anthropic, a JSON value for other dialects) and this
// package must not interpret it.
type ReasoningEncryptedPart struct {
	Data      any
	ExtraBody ExtraBody
}

func (*ReasoningEncryptedPart) isPart()            {}
func (p *ReasoningEncryptedPart) Extra() ExtraBody { return p.ExtraBody }

// ToolCallPart is an assistant-issued tool invocation. Arguments is
// always a JSON-encoded string, even when the upstream dialect emits
// an object — decoders must stringify on the way in.
type ToolCallPart struct {
	CallID    string
	Name      string
	Arguments string
	ExtraBody ExtraBody
}

func (*ToolCallPart) isPart()            {}
func (p *ToolCallPart) Extra() ExtraBody { return p.ExtraBody }

// ToolResultPart marks a message as carrying the result of a prior
// ToolCall. The actual result payload travels as sibling parts on the
// same message (typically a TextPart); ToolResultPart itself is the
// call_id/is_error marker, matching the original Rust URP shape.
type ToolResultPart struct {
	CallID    string
	IsError   bool
	ExtraBody ExtraBody
}

func (*ToolResultPart) isPart()            {}
func (p *ToolResultPart) Extra() ExtraBody { return p.ExtraBody }

// RefusalPart is a model-issued refusal message.
type RefusalPart struct {
	Content   string
	ExtraBody ExtraBody
}

func (*RefusalPart) isPart()            {}
func (p *RefusalPart) Extra() ExtraBody { return p.ExtraBody }

// Source is the tagged union backing Image/Audio/File parts: either a
// URL reference or inline base64 data.
type Source interface {
	isSource()
}

// URLSource references remote content by URL.
type URLSource struct {
	URL    string
	Detail *string // optional, image-only ("low"/"high"/"auto")
}

func (URLSource) isSource() {}

// Base64Source carries inline content.
type Base64Source struct {
	MediaType string
	Data      string
	Filename  *string // optional, file-only
}

func (Base64Source) isSource() {}

// ClonePart returns a value-independent copy of p suitable for reuse
// across merged messages (transforms that concatenate message parts
// must not alias the source message's slices).
func ClonePart(p Part) Part {
	switch v := p.(type) {
	case *TextPart:
		c := *v
		c.ExtraBody = c.ExtraBody.clone()
		return &c
	case *ImagePart:
		c := *v
		c.ExtraBody = c.ExtraBody.clone()
		return &c
	case *AudioPart:
		c := *v
		c.ExtraBody = c.ExtraBody.clone()
		return &c
	case *FilePart:
		c := *v
		c.ExtraBody = c.ExtraBody.clone()
		return &c
	case *ReasoningPart:
		c := *v
		c.ExtraBody = c.ExtraBody.clone()
		return &c
	case *ReasoningEncryptedPart:
		c := *v
		c.ExtraBody = c.ExtraBody.clone()
		return &c
	case *ToolCallPart:
		c := *v
		c.ExtraBody = c.ExtraBody.clone()
		return &c
	case *ToolResultPart:
		c := *v
		c.ExtraBody = c.ExtraBody.clone()
		return &c
	case *RefusalPart:
		c := *v
		c.ExtraBody = c.ExtraBody.clone()
		return &c
	default:
		return p
	}
}
