package routing

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinUpstreamURLAvoidsDoubledV1(t *testing.T) {
	assert.Equal(t, "https://api.example.com/v1/chat/completions", JoinUpstreamURL("https://api.example.com/v1", "v1/chat/completions"))
	assert.Equal(t, "https://api.example.com/v1", JoinUpstreamURL("https://api.example.com/v1", "v1"))
	assert.Equal(t, "https://api.example.com/v1/messages", JoinUpstreamURL("https://api.example.com", "/v1/messages"))
	assert.Equal(t, "https://api.example.com/v1/messages", JoinUpstreamURL("https://api.example.com/", "v1/messages"))
}

func TestApplyAuthBearer(t *testing.T) {
	c := NewChannel("c", "c", "https://api.example.com", "sk-secret")
	req, err := http.NewRequest(http.MethodPost, "https://api.example.com/v1/messages", nil)
	require.NoError(t, err)
	require.NoError(t, ApplyAuth(req, c))
	assert.Equal(t, "Bearer sk-secret", req.Header.Get("Authorization"))
}

func TestApplyAuthHeaderDefaultsToXApiKey(t *testing.T) {
	c := NewChannel("c", "c", "https://api.example.com", "sk-secret")
	c.AuthType = AuthHeader
	req, err := http.NewRequest(http.MethodPost, "https://api.example.com/v1/messages", nil)
	require.NoError(t, err)
	require.NoError(t, ApplyAuth(req, c))
	assert.Equal(t, "sk-secret", req.Header.Get("x-api-key"))
}

func TestApplyAuthQueryDefaultsToApiKey(t *testing.T) {
	c := NewChannel("c", "c", "https://api.example.com", "sk-secret")
	c.AuthType = AuthQuery
	req, err := http.NewRequest(http.MethodPost, "https://api.example.com/v1/messages", nil)
	require.NoError(t, err)
	require.NoError(t, ApplyAuth(req, c))
	assert.Equal(t, "sk-secret", req.URL.Query().Get("api_key"))
}

func TestDialectPathGemini(t *testing.T) {
	assert.Equal(t, "v1beta/models/gemini-2.5-pro:generateContent", DialectPath(DialectGemini, "gemini-2.5-pro", false))
	assert.Equal(t, "v1beta/models/gemini-2.5-pro:streamGenerateContent", DialectPath(DialectGemini, "gemini-2.5-pro", true))
}

func TestDialectPathOthers(t *testing.T) {
	assert.Equal(t, "v1/responses", DialectPath(DialectResponses, "m", false))
	assert.Equal(t, "v1/chat/completions", DialectPath(DialectChatCompletion, "m", false))
	assert.Equal(t, "v1/messages", DialectPath(DialectMessages, "m", false))
	assert.Equal(t, "v1/responses", DialectPath(DialectGrok, "m", false))
}
