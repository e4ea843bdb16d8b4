package transform

import (
	"testing"

	"github.com/monoize-go/monoize/internal/urp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelGlobMatch(t *testing.T) {
	assert.True(t, ModelGlobMatch("*", "anything"))
	assert.True(t, ModelGlobMatch("claude-*", "claude-3-5-haiku"))
	assert.False(t, ModelGlobMatch("claude-*", "gpt-4o"))
	assert.True(t, ModelGlobMatch("gpt-4?", "gpt-4o"))
	assert.False(t, ModelGlobMatch("gpt-4?", "gpt-4oo"))
	assert.True(t, ModelGlobMatch("gpt-4.1", "gpt-4.1"))
	assert.False(t, ModelGlobMatch("gpt-4.1", "gpt-4x1"))
}

func TestForceStream(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{TransformType: "force_stream", Enabled: true, Phase: PhaseRequest, Config: map[string]any{"enabled": true}}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	req := &urp.Request{Model: "gpt-4o"}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))
	require.NotNil(t, req.Stream)
	assert.True(t, *req.Stream)
}

func TestInjectSystemPromptCreatesMessageWhenAbsent(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{
		TransformType: "inject_system_prompt",
		Enabled:       true,
		Phase:         PhaseRequest,
		Config:        map[string]any{"content": "be nice", "position": "prepend"},
	}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	req := &urp.Request{Model: "m", Messages: []urp.Message{urp.TextMessage(urp.RoleUser, "hi")}}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))

	require.Len(t, req.Messages, 2)
	assert.Equal(t, urp.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "be nice", urp.ContentText(req.Messages[0].Parts))
}

func TestInjectSystemPromptAppendsToExisting(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{
		TransformType: "inject_system_prompt",
		Enabled:       true,
		Phase:         PhaseRequest,
		Config:        map[string]any{"content": " extra", "position": "append"},
	}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	req := &urp.Request{Model: "m", Messages: []urp.Message{
		urp.TextMessage(urp.RoleSystem, "base"),
		urp.TextMessage(urp.RoleUser, "hi"),
	}}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))

	assert.Equal(t, "base extra", urp.ContentText(req.Messages[0].Parts))
}

func TestMergeConsecutiveRoles(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{TransformType: "merge_consecutive_roles", Enabled: true, Phase: PhaseRequest}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	req := &urp.Request{Model: "m", Messages: []urp.Message{
		urp.TextMessage(urp.RoleUser, "a"),
		urp.TextMessage(urp.RoleUser, "b"),
		urp.TextMessage(urp.RoleAssistant, "c"),
	}}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))

	require.Len(t, req.Messages, 2)
	assert.Equal(t, "ab", urp.ContentText(req.Messages[0].Parts))
}

func TestOverrideMaxTokens(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{TransformType: "override_max_tokens", Enabled: true, Phase: PhaseRequest, Config: map[string]any{"value": float64(512)}}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	req := &urp.Request{Model: "m"}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))
	require.NotNil(t, req.MaxOutputTokens)
	assert.Equal(t, uint64(512), *req.MaxOutputTokens)
}

func TestReasoningEffortToBudget(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{
		TransformType: "reasoning_effort_to_budget",
		Enabled:       true,
		Phase:         PhaseRequest,
		Config:        map[string]any{"low": float64(1000), "med": float64(4000), "high": float64(16000)},
	}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	effort := "high"
	req := &urp.Request{Model: "m", Reasoning: &urp.ReasoningConfig{Effort: &effort}}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))

	require.NotNil(t, req.ExtraBody)
	thinking, ok := req.ExtraBody["thinking"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint32(16000), thinking["budget_tokens"])
}

func TestReasoningEffortToModelSuffixFirstMatchOnly(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{
		TransformType: "reasoning_effort_to_model_suffix",
		Enabled:       true,
		Phase:         PhaseRequest,
		Config: map[string]any{"rules": []any{
			map[string]any{"pattern": "claude-*", "suffix": "-{effort}"},
			map[string]any{"pattern": "*", "suffix": "-fallback"},
		}},
	}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	effort := "low"
	req := &urp.Request{Model: "claude-3-7", Reasoning: &urp.ReasoningConfig{Effort: &effort}}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))
	assert.Equal(t, "claude-3-7-low", req.Model)
}

func TestAutoCacheSystem(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{TransformType: "auto_cache_system", Enabled: true, Phase: PhaseRequest}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	req := &urp.Request{Model: "m", Messages: []urp.Message{
		urp.TextMessage(urp.RoleSystem, "you are a bot"),
		urp.TextMessage(urp.RoleUser, "hi"),
	}}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))

	part := req.Messages[0].Parts[len(req.Messages[0].Parts)-1]
	cc, ok := part.Extra()["cache_control"]
	require.True(t, ok)
	assert.Equal(t, map[string]any{"type": "ephemeral"}, cc)
}

func TestAutoCacheSystemNoopAtBreakpointLimit(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{TransformType: "auto_cache_system", Enabled: true, Phase: PhaseRequest}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	sys := urp.TextMessage(urp.RoleSystem, "s")
	req := &urp.Request{Model: "m", Messages: []urp.Message{sys, urp.TextMessage(urp.RoleUser, "hi")}}
	for i := 0; i < maxCacheBreakpoints; i++ {
		req.Messages[1].Parts = append(req.Messages[1].Parts, &urp.TextPart{
			Content:   "x",
			ExtraBody: urp.ExtraBody{"cache_control": map[string]any{"type": "ephemeral"}},
		})
	}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))

	_, ok := req.Messages[0].Parts[0].Extra()["cache_control"]
	assert.False(t, ok)
}

func TestStripReasoningNonStreaming(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{TransformType: "strip_reasoning", Enabled: true, Phase: PhaseResponse}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	resp := &urp.Response{Message: urp.Message{Parts: []urp.Part{
		&urp.ReasoningPart{Content: "thinking..."},
		&urp.TextPart{Content: "answer"},
	}}}
	require.NoError(t, ApplyResponse(resp, rules, states, "m", reg))

	require.Len(t, resp.Message.Parts, 1)
	assert.Equal(t, "answer", urp.ContentText(resp.Message.Parts))
}

// TestThinkXMLToReasoningStreamSplit verifies spec.md §8 scenario S4:
// two input text deltas that open and close a <think> span across the
// boundary must split into exactly Reasoning{"a"}, Reasoning{"b"},
// Text{"c"}.
func TestThinkXMLToReasoningStreamSplit(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{TransformType: "think_xml_to_reasoning", Enabled: true, Phase: PhaseResponse, Config: map[string]any{"tag": "think"}}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	start := urp.PartStart{PartIndex: 0, Part: urp.PartHeader{Kind: urp.PartHeaderText}}
	out, err := ApplyStreamEvent(start, rules, states, "m", reg)
	require.NoError(t, err)
	require.Len(t, out, 1)

	d1 := urp.Delta{PartIndex: 0, Delta: urp.PartDelta{Kind: urp.PartDeltaText, Content: "<think>a"}}
	out1, err := ApplyStreamEvent(d1, rules, states, "m", reg)
	require.NoError(t, err)
	require.Len(t, out1, 1)
	delta1 := out1[0].(urp.Delta)
	assert.Equal(t, urp.PartDeltaReasoning, delta1.Delta.Kind)
	assert.Equal(t, "a", delta1.Delta.Content)

	d2 := urp.Delta{PartIndex: 0, Delta: urp.PartDelta{Kind: urp.PartDeltaText, Content: "b</think>c"}}
	out2, err := ApplyStreamEvent(d2, rules, states, "m", reg)
	require.NoError(t, err)
	require.Len(t, out2, 2)
	delta2 := out2[0].(urp.Delta)
	delta3 := out2[1].(urp.Delta)
	assert.Equal(t, urp.PartDeltaReasoning, delta2.Delta.Kind)
	assert.Equal(t, "b", delta2.Delta.Content)
	assert.Equal(t, urp.PartDeltaText, delta3.Delta.Kind)
	assert.Equal(t, "c", delta3.Delta.Content)
}

func TestSetFieldAndRemoveFieldOnStreamEvent(t *testing.T) {
	reg := NewRegistry()
	setRules := []Rule{{TransformType: "set_field", Enabled: true, Phase: PhaseResponse, Config: map[string]any{"path": "debug.trace_id", "value": "abc"}}}
	states, err := BuildStates(setRules, reg)
	require.NoError(t, err)

	ev := urp.ResponseStart{ID: "r1", Model: "m"}
	out, err := ApplyStreamEvent(ev, setRules, states, "m", reg)
	require.NoError(t, err)
	require.Len(t, out, 1)
	rs := out[0].(urp.ResponseStart)
	debug, ok := rs.ExtraBody["debug"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc", debug["trace_id"])

	removeRules := []Rule{{TransformType: "remove_field", Enabled: true, Phase: PhaseResponse, Config: map[string]any{"path": "debug.trace_id"}}}
	states2, err := BuildStates(removeRules, reg)
	require.NoError(t, err)
	out2, err := ApplyStreamEvent(rs, removeRules, states2, "m", reg)
	require.NoError(t, err)
	rs2 := out2[0].(urp.ResponseStart)
	debug2 := rs2.ExtraBody["debug"].(map[string]any)
	_, exists := debug2["trace_id"]
	assert.False(t, exists)
}

func TestUnknownTransformIsRejected(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{TransformType: "does_not_exist", Enabled: true, Phase: PhaseRequest}}
	_, err := BuildStates(rules, reg)
	require.Error(t, err)
}

func TestAppendEmptyUserMessage(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{TransformType: "append_empty_user_message", Enabled: true, Phase: PhaseRequest}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	req := &urp.Request{Model: "m", Messages: []urp.Message{urp.TextMessage(urp.RoleAssistant, "done")}}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))

	require.Len(t, req.Messages, 2)
	assert.Equal(t, urp.RoleUser, req.Messages[1].Role)
}

func TestRuleModelGlobScoping(t *testing.T) {
	reg := NewRegistry()
	rules := []Rule{{
		TransformType: "override_max_tokens",
		Enabled:       true,
		Phase:         PhaseRequest,
		Models:        []string{"gpt-4*"},
		Config:        map[string]any{"value": float64(10)},
	}}
	states, err := BuildStates(rules, reg)
	require.NoError(t, err)

	req := &urp.Request{Model: "claude-3-5"}
	require.NoError(t, ApplyRequest(req, rules, states, req.Model, reg))
	assert.Nil(t, req.MaxOutputTokens)
}
