package anthropic

import (
	"testing"

	"github.com/monoize-go/monoize/internal/urp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequestSystemAndToolResult(t *testing.T) {
	req, err := DecodeRequest(map[string]any{
		"model":      "claude-sonnet-4-5",
		"max_tokens": 1024,
		"system":     "be helpful",
		"messages": []any{
			map[string]any{"role": "user", "content": []any{
				map[string]any{"type": "tool_result", "tool_use_id": "t1", "content": "ok"},
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, urp.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, urp.RoleTool, req.Messages[1].Role)
	callID, ok := urp.ExtractToolResultCallID(req.Messages[1].Parts)
	require.True(t, ok)
	assert.Equal(t, "t1", callID)
}

func TestBudgetToEffortThresholds(t *testing.T) {
	assert.Equal(t, "", budgetToEffort(0))
	assert.Equal(t, "low", budgetToEffort(512))
	assert.Equal(t, "medium", budgetToEffort(1000))
	assert.Equal(t, "high", budgetToEffort(2048))
}

func TestDecodeResponseSignatureOnThinking(t *testing.T) {
	resp, err := DecodeResponse(map[string]any{
		"id":         "msg_1",
		"stop_reason": "end_turn",
		"content": []any{
			map[string]any{"type": "thinking", "thinking": "step 1", "signature": "sig-abc"},
			map[string]any{"type": "text", "text": "done"},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Message.Parts, 3)
	_, isReasoning := resp.Message.Parts[0].(*urp.ReasoningPart)
	assert.True(t, isReasoning)
	enc, isEncrypted := resp.Message.Parts[1].(*urp.ReasoningEncryptedPart)
	require.True(t, isEncrypted)
	assert.Equal(t, "sig-abc", enc.Data)
}

func TestEncodeResponseFoldsSignatureIntoThinking(t *testing.T) {
	resp := &urp.Response{
		ID: "msg_1",
		Message: urp.Message{
			Role: urp.RoleAssistant,
			Parts: []urp.Part{
				&urp.ReasoningPart{Content: "hi", ExtraBody: urp.ExtraBody{}},
				&urp.ReasoningEncryptedPart{Data: "sig-xyz", ExtraBody: urp.ExtraBody{}},
			},
		},
	}
	body := EncodeResponse(resp, "claude-sonnet-4-5")
	content, ok := body["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	assert.Equal(t, "thinking", block["type"])
	assert.Equal(t, "hi", block["thinking"])
	assert.Equal(t, "sig-xyz", block["signature"])
}

func TestModelSupportsAdaptive(t *testing.T) {
	assert.True(t, modelSupportsAdaptive("claude-sonnet-4-6-20260101"))
	assert.True(t, modelSupportsAdaptive("claude-opus-5-0"))
	assert.False(t, modelSupportsAdaptive("claude-sonnet-4-5-20250929"))
}
