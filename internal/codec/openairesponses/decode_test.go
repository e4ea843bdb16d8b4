package openairesponses

import (
	"testing"

	"github.com/monoize-go/monoize/internal/urp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequestMissingModel(t *testing.T) {
	_, err := DecodeRequest(map[string]any{"input": "hi"})
	require.Error(t, err)
}

func TestDecodeRequestInstructionsAndStringInput(t *testing.T) {
	req, err := DecodeRequest(map[string]any{
		"model":        "gpt-5",
		"instructions": "be terse",
		"input":        "hello",
	})
	require.NoError(t, err)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, urp.RoleDeveloper, req.Messages[0].Role)
	assert.Equal(t, "be terse", urp.ContentText(req.Messages[0].Parts))
	assert.Equal(t, urp.RoleUser, req.Messages[1].Role)
	assert.Equal(t, "hello", urp.ContentText(req.Messages[1].Parts))
}

func TestDecodeRequestFunctionCallOutput(t *testing.T) {
	req, err := DecodeRequest(map[string]any{
		"model": "gpt-5",
		"input": []any{
			map[string]any{"type": "function_call", "call_id": "c1", "name": "lookup", "arguments": `{"q":"x"}`},
			map[string]any{"type": "function_call_output", "call_id": "c1", "output": "42"},
		},
	})
	require.NoError(t, err)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, urp.RoleAssistant, req.Messages[0].Role)
	assert.Equal(t, urp.RoleTool, req.Messages[1].Role)
	callID, ok := urp.ExtractToolResultCallID(req.Messages[1].Parts)
	require.True(t, ok)
	assert.Equal(t, "c1", callID)
}

func TestDecodeRequestPreservesExtraBody(t *testing.T) {
	req, err := DecodeRequest(map[string]any{
		"model":            "gpt-5",
		"input":            "hi",
		"metadata_unknown": "keep-me",
	})
	require.NoError(t, err)
	assert.Equal(t, "keep-me", req.ExtraBody["metadata_unknown"])
}

func TestDecodeResponseToolCallSetsFinishReason(t *testing.T) {
	resp, err := DecodeResponse(map[string]any{
		"status": "completed",
		"output": []any{
			map[string]any{"type": "function_call", "call_id": "c1", "name": "lookup", "arguments": "{}"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.FinishReason)
	assert.Equal(t, urp.FinishToolCalls, *resp.FinishReason)
}

func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	effort := "high"
	req := &urp.Request{
		Model: "gpt-5",
		Messages: []urp.Message{
			urp.TextMessage(urp.RoleUser, "hello"),
		},
		Reasoning: &urp.ReasoningConfig{Effort: &effort, ExtraBody: urp.ExtraBody{}},
	}
	body := EncodeRequest(req, "gpt-5-upstream")
	decoded, err := DecodeRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", urp.ContentText(decoded.Messages[0].Parts))
	require.NotNil(t, decoded.Reasoning)
	require.NotNil(t, decoded.Reasoning.Effort)
	assert.Equal(t, "high", *decoded.Reasoning.Effort)
}
