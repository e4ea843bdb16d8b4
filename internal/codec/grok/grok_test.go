package grok

import (
	"testing"

	"github.com/monoize-go/monoize/internal/urp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequestDelegatesToOpenAIResponses(t *testing.T) {
	req, err := DecodeRequest(map[string]any{"model": "grok-4", "input": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "grok-4", req.Model)
	assert.Equal(t, "hi", urp.ContentText(req.Messages[0].Parts))
}

func TestEncodeRequestDelegatesToOpenAIResponses(t *testing.T) {
	req := &urp.Request{Model: "grok-4", Messages: []urp.Message{urp.TextMessage(urp.RoleUser, "hi")}}
	body := EncodeRequest(req, "grok-4")
	assert.NotNil(t, body["input"])
}
