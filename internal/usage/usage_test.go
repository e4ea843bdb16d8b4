package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokensNonEmpty(t *testing.T) {
	n := CountTokens("hello, world")
	assert.Greater(t, n, 0)
}

func TestCountTokensEmptyString(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
}

func TestEstimateUsagePopulatesBothSides(t *testing.T) {
	u := EstimateUsage("hello", "hi there")
	assert.Greater(t, u.PromptTokens, uint64(0))
	assert.Greater(t, u.CompletionTokens, uint64(0))
}
