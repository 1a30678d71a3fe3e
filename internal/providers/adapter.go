// Package providers implements the three wire-format codecs (anthropic,
// openai, google) and the shared retrying HTTP transport beneath them. Each
// adapter encodes a normalized request into the provider's wire body and
// decodes the wire response back into the normalized form; the agent runtime
// never sees a provider's native JSON.
package providers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/bashclaw/bashclaw/internal/catalog"
	"github.com/bashclaw/bashclaw/pkg/protocol"
)

// Request is a normalized model request, pre-encoding.
type Request struct {
	Model       string
	System      string
	Messages    []protocol.Message
	MaxTokens   int
	Temperature float64
	Tools       []protocol.ToolSpec
}

// Adapter encodes and decodes one wire format.
type Adapter interface {
	// EncodeRequest serializes the request into the provider's wire body.
	EncodeRequest(p catalog.Provider, req *Request) ([]byte, error)

	// DecodeResponse parses a wire response body into the normalized form.
	DecodeResponse(body []byte) (*protocol.Response, error)

	// Endpoint returns the full URL for a completion call.
	Endpoint(p catalog.Provider, model string) string

	// Headers returns the auth and version headers for the provider.
	Headers(p catalog.Provider) http.Header
}

// ForFormat returns the adapter for the given wire format.
func ForFormat(f catalog.APIFormat) (Adapter, error) {
	switch f {
	case catalog.FormatAnthropic:
		return &anthropicAdapter{}, nil
	case catalog.FormatOpenAI:
		return &openaiAdapter{}, nil
	case catalog.FormatGoogle:
		return &googleAdapter{}, nil
	default:
		return nil, fmt.Errorf("unknown api format %q", f)
	}
}

// thinkTagRe matches <think>...</think> reasoning blocks, including multiline
// ones, that some models leak into their text output.
var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)

// stripThinking removes reasoning markers from model text.
func stripThinking(s string) string {
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(s, ""))
}
