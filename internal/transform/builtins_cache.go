package transform

import "github.com/monoize-go/monoize/internal/urp"

const maxCacheBreakpoints = 4

func countCacheBreakpoints(req *urp.Request) int {
	n := 0
	for _, m := range req.Messages {
		for _, p := range m.Parts {
			if hasCacheControl(p.Extra()) {
				n++
			}
		}
	}
	return n
}

func hasCacheControl(extra urp.ExtraBody) bool {
	_, ok := extra["cache_control"]
	return ok
}

func setCacheControl(p urp.Part) {
	extra := p.Extra()
	if extra == nil {
		return
	}
	extra["cache_control"] = map[string]any{"type": "ephemeral"}
}

func messageHasCacheControl(m urp.Message) bool {
	for _, p := range m.Parts {
		if hasCacheControl(p.Extra()) {
			return true
		}
	}
	return false
}

func messageIsToolResult(m urp.Message) bool {
	if m.Role == urp.RoleTool {
		return true
	}
	for _, p := range m.Parts {
		if _, ok := p.(*urp.ToolResultPart); ok {
			return true
		}
	}
	return false
}

func messageHasToolCall(m urp.Message) bool {
	for _, p := range m.Parts {
		if _, ok := p.(*urp.ToolCallPart); ok {
			return true
		}
	}
	return false
}

// autoCacheSystem marks the last system/developer message for
// provider-side prompt caching, as long as the request hasn't already
// used up its cache breakpoint budget. Grounded on
// transforms/auto_cache_system.rs.
type autoCacheSystem struct{ NoopTransform }

func (autoCacheSystem) TypeID() string            { return "auto_cache_system" }
func (autoCacheSystem) SupportedPhases() []Phase   { return []Phase{PhaseRequest} }
func (autoCacheSystem) InitState() State           { return nil }
func (autoCacheSystem) ParseConfig(map[string]any) (Config, error) { return struct{}{}, nil }

func (autoCacheSystem) ApplyRequest(req *urp.Request, _ Config, _ State) error {
	if countCacheBreakpoints(req) >= maxCacheBreakpoints {
		return nil
	}
	idx := -1
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == urp.RoleSystem || req.Messages[i].Role == urp.RoleDeveloper {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}
	msg := req.Messages[idx]
	if messageHasCacheControl(msg) {
		return nil
	}
	if len(msg.Parts) == 0 {
		return nil
	}
	setCacheControl(msg.Parts[len(msg.Parts)-1])
	return nil
}

// autoCacheToolUse marks the user message preceding a tool-call/
// tool-result exchange for caching, so repeated tool round-trips reuse
// the cached prefix. Grounded on transforms/auto_cache_tool_use.rs.
type autoCacheToolUse struct{ NoopTransform }

func (autoCacheToolUse) TypeID() string            { return "auto_cache_tool_use" }
func (autoCacheToolUse) SupportedPhases() []Phase   { return []Phase{PhaseRequest} }
func (autoCacheToolUse) InitState() State           { return nil }
func (autoCacheToolUse) ParseConfig(map[string]any) (Config, error) { return struct{}{}, nil }

func (autoCacheToolUse) ApplyRequest(req *urp.Request, _ Config, _ State) error {
	n := len(req.Messages)
	if n == 0 || !messageIsToolResult(req.Messages[n-1]) {
		return nil
	}
	if countCacheBreakpoints(req) >= maxCacheBreakpoints {
		return nil
	}

	assistantIdx := -1
	i := n - 1
	for i >= 0 && messageIsToolResult(req.Messages[i]) {
		i--
	}
	if i < 0 {
		return nil
	}
	if req.Messages[i].Role == urp.RoleAssistant && messageHasToolCall(req.Messages[i]) {
		assistantIdx = i
	} else {
		return nil
	}

	userIdx := -1
	for j := assistantIdx - 1; j >= 0; j-- {
		if req.Messages[j].Role == urp.RoleUser {
			userIdx = j
			break
		}
	}
	if userIdx == -1 {
		return nil
	}

	msg := req.Messages[userIdx]
	if messageHasCacheControl(msg) {
		return nil
	}
	if len(msg.Parts) == 0 {
		return nil
	}
	setCacheControl(msg.Parts[len(msg.Parts)-1])
	return nil
}

// autoCacheUserID stamps a per-principal user identifier onto a
// request that already opted into caching, using whichever dialect
// field applies (Anthropic's metadata.user_id or OpenAI's top-level
// user). Grounded on transforms/auto_cache_user_id.rs.
type autoCacheUserID struct{ NoopTransform }

func (autoCacheUserID) TypeID() string            { return "auto_cache_user_id" }
func (autoCacheUserID) SupportedPhases() []Phase   { return []Phase{PhaseRequest} }
func (autoCacheUserID) InitState() State           { return nil }
func (autoCacheUserID) ParseConfig(map[string]any) (Config, error) { return struct{}{}, nil }

func (autoCacheUserID) ApplyRequest(req *urp.Request, _ Config, _ State) error {
	username, ok := req.ExtraBody["__monoize_username"].(string)
	if !ok {
		return nil
	}

	anyCached := false
	for _, m := range req.Messages {
		if messageHasCacheControl(m) {
			anyCached = true
			break
		}
	}
	if !anyCached {
		return nil
	}

	if req.ExtraBody == nil {
		req.ExtraBody = urp.ExtraBody{}
	}
	metadata, ok := req.ExtraBody["metadata"].(map[string]any)
	if !ok {
		metadata = map[string]any{}
		req.ExtraBody["metadata"] = metadata
	}
	if _, exists := metadata["user_id"]; !exists {
		metadata["user_id"] = username
	}

	if req.User == nil {
		u := username
		req.User = &u
	}
	return nil
}
