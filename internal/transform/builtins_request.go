package transform

import "github.com/monoize-go/monoize/internal/urp"

// forceStream sets req.Stream unconditionally, overriding whatever the
// client asked for. Grounded on transforms/force_stream.rs.
type forceStream struct{ NoopTransform }

type forceStreamConfig struct{ Enabled bool }

func (forceStream) TypeID() string            { return "force_stream" }
func (forceStream) SupportedPhases() []Phase   { return []Phase{PhaseRequest} }
func (forceStream) InitState() State           { return nil }

func (forceStream) ParseConfig(raw map[string]any) (Config, error) {
	enabled, err := requireBool(raw, "enabled")
	if err != nil {
		return nil, err
	}
	return forceStreamConfig{Enabled: enabled}, nil
}

func (forceStream) ApplyRequest(req *urp.Request, cfg Config, _ State) error {
	c := cfg.(forceStreamConfig)
	enabled := c.Enabled
	req.Stream = &enabled
	return nil
}

// injectSystemPrompt adds literal text as a new Text part at the end of
// the first (prepend) or last (append) system message; when there is
// none, it inserts a new system message at the start (prepend) or end
// (append) of the conversation. Grounded on
// transforms/inject_system_prompt.rs.
type injectSystemPrompt struct{ NoopTransform }

type injectSystemPromptConfig struct {
	Content  string
	Position string // "prepend" or "append"
}

func (injectSystemPrompt) TypeID() string          { return "inject_system_prompt" }
func (injectSystemPrompt) SupportedPhases() []Phase { return []Phase{PhaseRequest} }
func (injectSystemPrompt) InitState() State         { return nil }

func (injectSystemPrompt) ParseConfig(raw map[string]any) (Config, error) {
	content, err := requireString(raw, "content")
	if err != nil {
		return nil, err
	}
	position, err := requireString(raw, "position")
	if err != nil {
		return nil, err
	}
	if position != "prepend" && position != "append" {
		return nil, &configError{msg: `position must be "prepend" or "append"`}
	}
	return injectSystemPromptConfig{Content: content, Position: position}, nil
}

func (injectSystemPrompt) ApplyRequest(req *urp.Request, cfg Config, _ State) error {
	c := cfg.(injectSystemPromptConfig)

	idx := -1
	if c.Position == "prepend" {
		for i := range req.Messages {
			if req.Messages[i].Role == urp.RoleSystem {
				idx = i
				break
			}
		}
	} else {
		for i := len(req.Messages) - 1; i >= 0; i-- {
			if req.Messages[i].Role == urp.RoleSystem {
				idx = i
				break
			}
		}
	}

	if idx == -1 {
		msg := urp.TextMessage(urp.RoleSystem, c.Content)
		if c.Position == "prepend" {
			req.Messages = append([]urp.Message{msg}, req.Messages...)
		} else {
			req.Messages = append(req.Messages, msg)
		}
		return nil
	}

	part := &urp.TextPart{Content: c.Content, ExtraBody: urp.ExtraBody{}}
	req.Messages[idx].Parts = append(req.Messages[idx].Parts, part)
	return nil
}

// mergeConsecutiveRoles collapses adjacent same-role messages. Grounded
// on transforms/merge_consecutive_roles.rs.
type mergeConsecutiveRoles struct{ NoopTransform }

func (mergeConsecutiveRoles) TypeID() string            { return "merge_consecutive_roles" }
func (mergeConsecutiveRoles) SupportedPhases() []Phase   { return []Phase{PhaseRequest} }
func (mergeConsecutiveRoles) InitState() State           { return nil }
func (mergeConsecutiveRoles) ParseConfig(map[string]any) (Config, error) { return struct{}{}, nil }

func (mergeConsecutiveRoles) ApplyRequest(req *urp.Request, _ Config, _ State) error {
	req.Messages = MergeSameRoleMessages(req.Messages)
	return nil
}

// overrideMaxTokens forces max_output_tokens to a fixed value. Grounded
// on transforms/override_max_tokens.rs.
type overrideMaxTokens struct{ NoopTransform }

type overrideMaxTokensConfig struct{ Value uint64 }

func (overrideMaxTokens) TypeID() string          { return "override_max_tokens" }
func (overrideMaxTokens) SupportedPhases() []Phase { return []Phase{PhaseRequest} }
func (overrideMaxTokens) InitState() State         { return nil }

func (overrideMaxTokens) ParseConfig(raw map[string]any) (Config, error) {
	v, err := requireUint(raw, "value")
	if err != nil {
		return nil, err
	}
	return overrideMaxTokensConfig{Value: v}, nil
}

func (overrideMaxTokens) ApplyRequest(req *urp.Request, cfg Config, _ State) error {
	c := cfg.(overrideMaxTokensConfig)
	value := c.Value
	req.MaxOutputTokens = &value
	return nil
}

// systemToDeveloperRole rewrites system-role messages to developer-role.
// Grounded on transforms/system_to_developer_role.rs.
type systemToDeveloperRole struct{ NoopTransform }

func (systemToDeveloperRole) TypeID() string            { return "system_to_developer_role" }
func (systemToDeveloperRole) SupportedPhases() []Phase   { return []Phase{PhaseRequest} }
func (systemToDeveloperRole) InitState() State           { return nil }
func (systemToDeveloperRole) ParseConfig(map[string]any) (Config, error) { return struct{}{}, nil }

func (systemToDeveloperRole) ApplyRequest(req *urp.Request, _ Config, _ State) error {
	MoveSystemToDeveloper(req.Messages)
	return nil
}

// appendEmptyUserMessage ensures the conversation tail is a user
// message, required by protocols (e.g. Anthropic Messages) that reject
// a trailing assistant/tool turn. Has no original_source counterpart;
// built directly from spec.md's one-line description of this
// transform.
type appendEmptyUserMessage struct{ NoopTransform }

func (appendEmptyUserMessage) TypeID() string            { return "append_empty_user_message" }
func (appendEmptyUserMessage) SupportedPhases() []Phase   { return []Phase{PhaseRequest} }
func (appendEmptyUserMessage) InitState() State           { return nil }
func (appendEmptyUserMessage) ParseConfig(map[string]any) (Config, error) { return struct{}{}, nil }

func (appendEmptyUserMessage) ApplyRequest(req *urp.Request, _ Config, _ State) error {
	if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == urp.RoleUser {
		return nil
	}
	req.Messages = append(req.Messages, urp.TextMessage(urp.RoleUser, ""))
	return nil
}

type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }
