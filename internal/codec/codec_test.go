package codec

import (
	"testing"

	"github.com/monoize-go/monoize/internal/urp"
	"github.com/stretchr/testify/assert"
)

func TestSplitExtraMergeExtraRoundTrip(t *testing.T) {
	obj := map[string]any{"known": "a", "mystery": "b", "nested": map[string]any{"x": 1}}
	extra := SplitExtra(obj, "known")
	assert.Equal(t, "a", obj["known"])
	_, stillPresent := obj["mystery"]
	assert.True(t, stillPresent)
	assert.Equal(t, "b", extra["mystery"])

	dest := map[string]any{"known": "a"}
	MergeExtra(dest, extra)
	assert.Equal(t, "b", dest["mystery"])
}

func TestMergeExtraExplicitKeyWins(t *testing.T) {
	dest := map[string]any{"role": "assistant"}
	MergeExtra(dest, urp.ExtraBody{"role": "user"})
	assert.Equal(t, "assistant", dest["role"])
}

func TestParseToolDefinitionOpenAIShape(t *testing.T) {
	td, ok := ParseToolDefinition(map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        "lookup",
			"description": "looks things up",
			"parameters":  map[string]any{"type": "object"},
		},
	})
	require := assert.New(t)
	require.True(ok)
	require.Equal("function", td.ToolType)
	require.NotNil(td.Function)
	require.Equal("lookup", td.Function.Name)
}

func TestParseToolDefinitionAnthropicFlatShape(t *testing.T) {
	td, ok := ParseToolDefinition(map[string]any{
		"name":         "lookup",
		"input_schema": map[string]any{"type": "object"},
	})
	require := assert.New(t)
	require.True(ok)
	require.Equal("function", td.ToolType)
	require.NotNil(td.Function)
	require.Equal("lookup", td.Function.Name)
}

func TestEncodeDecodeJSONArguments(t *testing.T) {
	encoded := EncodeJSONArguments(map[string]any{"q": "x"})
	assert.JSONEq(t, `{"q":"x"}`, encoded)

	decoded := DecodeJSONArguments(encoded)
	obj, ok := decoded.(map[string]any)
	require := assert.New(t)
	require.True(ok)
	require.Equal("x", obj["q"])
}

func TestValueToTextFallback(t *testing.T) {
	assert.Equal(t, "plain", ValueToText("plain"))
	assert.Equal(t, "", ValueToText(nil))
}
