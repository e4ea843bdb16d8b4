package transform

import (
	"strings"

	"github.com/monoize-go/monoize/internal/urp"
)

// MoveSystemToDeveloper rewrites every System message's role to
// Developer in place.
func MoveSystemToDeveloper(messages []urp.Message) {
	for i := range messages {
		if messages[i].Role == urp.RoleSystem {
			messages[i].Role = urp.RoleDeveloper
		}
	}
}

// MergeSameRoleMessages collapses adjacent same-role messages,
// concatenating their parts in order; extra_body keys merge
// first-wins. Grounded on merge_same_role_messages in the original
// transforms/mod.rs.
func MergeSameRoleMessages(messages []urp.Message) []urp.Message {
	merged := make([]urp.Message, 0, len(messages))
	for _, m := range messages {
		if n := len(merged); n > 0 && merged[n-1].Role == m.Role {
			last := &merged[n-1]
			for _, p := range m.Parts {
				last.Parts = append(last.Parts, urp.ClonePart(p))
			}
			for k, v := range m.ExtraBody {
				if _, exists := last.ExtraBody[k]; !exists {
					if last.ExtraBody == nil {
						last.ExtraBody = urp.ExtraBody{}
					}
					last.ExtraBody[k] = v
				}
			}
			continue
		}
		clone := urp.Message{Role: m.Role, ExtraBody: urp.ExtraBody{}}
		for k, v := range m.ExtraBody {
			clone.ExtraBody[k] = v
		}
		for _, p := range m.Parts {
			clone.Parts = append(clone.Parts, urp.ClonePart(p))
		}
		merged = append(merged, clone)
	}
	return merged
}

// StripReasoningParts returns parts with Reasoning and
// ReasoningEncrypted entries removed.
func StripReasoningParts(parts []urp.Part) []urp.Part {
	out := make([]urp.Part, 0, len(parts))
	for _, p := range parts {
		switch p.(type) {
		case *urp.ReasoningPart, *urp.ReasoningEncryptedPart:
			continue
		default:
			out = append(out, p)
		}
	}
	return out
}

// SetExtraPath writes value at a dotted path within extra, creating
// intermediate objects (map[string]any) as needed. A noop if path is
// empty.
func SetExtraPath(extra urp.ExtraBody, path string, value any) {
	keys := splitPath(path)
	if len(keys) == 0 {
		return
	}
	if len(keys) == 1 {
		extra[keys[0]] = value
		return
	}

	first := keys[0]
	obj, ok := extra[first].(map[string]any)
	if !ok {
		obj = map[string]any{}
		extra[first] = obj
	}
	cursor := obj
	for _, key := range keys[1 : len(keys)-1] {
		next, ok := cursor[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cursor[key] = next
		}
		cursor = next
	}
	cursor[keys[len(keys)-1]] = value
}

// RemoveExtraPath removes the value at a dotted path within extra.
// A type mismatch at any intermediate step is a noop, matching the
// original remove_field semantics.
func RemoveExtraPath(extra urp.ExtraBody, path string) {
	keys := splitPath(path)
	if len(keys) == 0 {
		return
	}
	if len(keys) == 1 {
		delete(extra, keys[0])
		return
	}

	cursorAny, ok := extra[keys[0]]
	if !ok {
		return
	}
	cursor, ok := cursorAny.(map[string]any)
	if !ok {
		return
	}
	for _, key := range keys[1 : len(keys)-1] {
		next, ok := cursor[key].(map[string]any)
		if !ok {
			return
		}
		cursor = next
	}
	delete(cursor, keys[len(keys)-1])
}

func splitPath(path string) []string {
	raw := strings.Split(path, ".")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
