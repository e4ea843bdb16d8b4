package gemini

import (
	"testing"

	"github.com/monoize-go/monoize/internal/urp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequestModelOptional(t *testing.T) {
	req, err := DecodeRequest(map[string]any{
		"contents": []any{
			map[string]any{"role": "user", "parts": []any{map[string]any{"text": "hi"}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "", req.Model)
	require.Len(t, req.Messages, 1)
}

func TestDecodePartYieldsMultipleParts(t *testing.T) {
	parts := decodePart(map[string]any{"text": "thinking...", "thought": true, "thoughtSignature": "sig1"})
	require.Len(t, parts, 2)
	_, isReasoning := parts[0].(*urp.ReasoningPart)
	assert.True(t, isReasoning)
	enc, isEncrypted := parts[1].(*urp.ReasoningEncryptedPart)
	require.True(t, isEncrypted)
	assert.Equal(t, "sig1", enc.Data)
}

func TestDecodeResponseNoCandidatesErrors(t *testing.T) {
	_, err := DecodeResponse(map[string]any{"candidates": []any{}})
	require.Error(t, err)
}

func TestBudgetToEffortThresholds(t *testing.T) {
	assert.Equal(t, "", budgetToEffort(0))
	assert.Equal(t, "low", budgetToEffort(512))
	assert.Equal(t, "medium", budgetToEffort(1000))
	assert.Equal(t, "high", budgetToEffort(2048))
}

func TestFunctionResponseFlattensIntoSameMessage(t *testing.T) {
	req, err := DecodeRequest(map[string]any{
		"contents": []any{
			map[string]any{"role": "user", "parts": []any{
				map[string]any{"functionResponse": map[string]any{
					"name":     "lookup",
					"response": map[string]any{"result": "42"},
				}},
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, req.Messages, 1)
	assert.Len(t, req.Messages[0].Parts, 2)
}

func TestEncodeRequestNeverWritesModelKey(t *testing.T) {
	req := &urp.Request{Model: "gemini-2.5-pro", Messages: []urp.Message{urp.TextMessage(urp.RoleUser, "hi")}}
	body := EncodeRequest(req, "gemini-2.5-pro")
	_, hasModel := body["model"]
	assert.False(t, hasModel)
}
