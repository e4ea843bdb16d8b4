package openaichat

import (
	"testing"

	"github.com/monoize-go/monoize/internal/urp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequestStringAndArrayContent(t *testing.T) {
	req, err := DecodeRequest(map[string]any{
		"model": "gpt-4o",
		"messages": []any{
			map[string]any{"role": "system", "content": "be terse"},
			map[string]any{"role": "user", "content": []any{
				map[string]any{"type": "text", "text": "hello"},
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "be terse", urp.ContentText(req.Messages[0].Parts))
	assert.Equal(t, "hello", urp.ContentText(req.Messages[1].Parts))
}

func TestDecodeRequestToolMessageCarriesCallID(t *testing.T) {
	req, err := DecodeRequest(map[string]any{
		"model": "gpt-4o",
		"messages": []any{
			map[string]any{"role": "tool", "tool_call_id": "call_1", "content": "42"},
		},
	})
	require.NoError(t, err)
	require.Len(t, req.Messages, 1)
	callID, ok := urp.ExtractToolResultCallID(req.Messages[0].Parts)
	require.True(t, ok)
	assert.Equal(t, "call_1", callID)
}

func TestInsertOpenRouterReasoningFieldsOnEncodeResponse(t *testing.T) {
	resp := &urp.Response{
		ID: "resp_1",
		Message: urp.Message{
			Role: urp.RoleAssistant,
			Parts: []urp.Part{
				&urp.ReasoningPart{Content: "hi", ExtraBody: urp.ExtraBody{}},
				&urp.TextPart{Content: "done", ExtraBody: urp.ExtraBody{}},
			},
		},
	}
	body := EncodeResponse(resp, "gpt-4o")
	choices := body["choices"].([]any)
	message := choices[0].(map[string]any)["message"].(map[string]any)
	assert.Equal(t, "hi", message["reasoning"])
	assert.Equal(t, "done", message["content"])
	details := message["reasoning_details"].([]any)
	require.Len(t, details, 1)
	detail := details[0].(map[string]any)
	assert.Equal(t, "reasoning.text", detail["type"])
	assert.Equal(t, "hi", detail["text"])
}

func TestDecodeResponseNoChoicesErrors(t *testing.T) {
	_, err := DecodeResponse(map[string]any{"choices": []any{}})
	require.Error(t, err)
}

func TestEncodeDecodeToolCallRoundTrip(t *testing.T) {
	req := &urp.Request{
		Model: "gpt-4o",
		Messages: []urp.Message{
			{Role: urp.RoleAssistant, Parts: []urp.Part{
				&urp.ToolCallPart{CallID: "call_1", Name: "lookup", Arguments: `{"q":"x"}`, ExtraBody: urp.ExtraBody{}},
			}},
		},
	}
	body := EncodeRequest(req, "gpt-4o")
	decoded, err := DecodeRequest(body)
	require.NoError(t, err)
	require.Len(t, decoded.Messages, 1)
	toolCall, ok := decoded.Messages[0].Parts[0].(*urp.ToolCallPart)
	require.True(t, ok)
	assert.Equal(t, "lookup", toolCall.Name)
}
