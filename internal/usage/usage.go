// Package usage estimates token counts when an upstream response omits
// Usage, grounded on the teacher's internal/handlers/proxy.go
// countInputTokens (cl100k_base via pkoukk/tiktoken-go). Per spec.md §1
// the core "does not implement token counting or billing beyond
// surfacing Usage" — this package is purely a best-effort fallback for
// the rare upstream that sends none, not a billing system.
package usage

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/monoize-go/monoize/internal/urp"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("cl100k_base")
	})
	return enc, encErr
}

// CountTokens returns the cl100k_base token count for text, or 0 if
// the encoding failed to load.
func CountTokens(text string) int {
	tke, err := encoding()
	if err != nil {
		return 0
	}
	return len(tke.Encode(text, nil, nil))
}

// EstimateUsage fills in a Usage from message text when resp carries
// none, mirroring the reference's input-token estimate extended to
// also estimate completion tokens from the assistant's own reply text.
func EstimateUsage(requestText, responseText string) urp.Usage {
	return urp.Usage{
		PromptTokens:     uint64(CountTokens(requestText)),
		CompletionTokens: uint64(CountTokens(responseText)),
		ExtraBody:        urp.ExtraBody{},
	}
}
