// Package websearch implements the web_fetch and web_search tools. Every
// outbound request passes the SSRF guard first.
package websearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bashclaw/bashclaw/internal/net/ssrf"
	"github.com/bashclaw/bashclaw/internal/tools"
)

// defaultMaxChars bounds extracted page content.
const defaultMaxChars = 10000

// FetchTool fetches a URL and returns its readable text.
type FetchTool struct {
	httpClient *http.Client
	maxChars   int
}

// FetchOption customizes FetchTool construction.
type FetchOption func(*FetchTool)

// WithFetchClient overrides the HTTP client (useful for tests).
func WithFetchClient(hc *http.Client) FetchOption {
	return func(t *FetchTool) { t.httpClient = hc }
}

// WithMaxChars overrides the content cap.
func WithMaxChars(n int) FetchOption {
	return func(t *FetchTool) {
		if n > 0 {
			t.maxChars = n
		}
	}
}

// NewFetchTool creates the web_fetch tool.
func NewFetchTool(opts ...FetchOption) *FetchTool {
	t := &FetchTool{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxChars:   defaultMaxChars,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *FetchTool) Name() string { return "web_fetch" }

func (t *FetchTool) Description() string {
	return "Fetch a URL and return its readable text content. Only public http/https targets are allowed."
}

func (t *FetchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {"type": "string", "description": "URL to fetch (http/https only)"},
			"maxChars": {"type": "integer", "minimum": 0, "description": "Maximum characters to return"},
			"max_chars": {"type": "integer", "minimum": 0, "description": "Alias for maxChars"}
		},
		"required": ["url"]
	}`)
}

// fetchArgs accepts both spellings of the content cap; camelCase wins when
// both are set.
type fetchArgs struct {
	URL           string `json:"url"`
	MaxChars      int    `json:"maxChars"`
	MaxCharsSnake int    `json:"max_chars"`
}

// limit resolves the effective content cap, never exceeding ceiling.
func (a fetchArgs) limit(ceiling int) int {
	requested := a.MaxChars
	if requested == 0 {
		requested = a.MaxCharsSnake
	}
	if requested > 0 && requested < ceiling {
		return requested
	}
	return ceiling
}

func (t *FetchTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args fetchArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	if strings.TrimSpace(args.URL) == "" {
		return tools.Errorf("missing required parameter: url"), nil
	}

	if err := ssrf.ValidateURL(args.URL); err != nil {
		return tools.Errorf("fetch blocked: %v", err), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
	if err != nil {
		return tools.Errorf("fetch failed: %v", err), nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; bashclaw/1.0)")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return tools.Errorf("fetch failed: %v", err), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return tools.Errorf("fetch failed: status %d", resp.StatusCode), nil
	}

	limit := args.limit(t.maxChars)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return tools.Errorf("fetch failed: read body: %v", err), nil
	}

	content := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		content = extractText(content)
	}
	truncated := false
	if len(content) > limit {
		content = content[:limit]
		truncated = true
	}

	out := map[string]any{"url": args.URL, "content": content}
	if truncated {
		out["truncated"] = true
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return tools.Errorf("format response: %v", err), nil
	}
	return &tools.ToolResult{Content: string(payload)}, nil
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

// extractText strips markup down to readable text.
func extractText(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, "\n")
	text = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	).Replace(text)
	text = spaceRe.ReplaceAllString(text, " ")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	out := strings.Join(lines, "\n")
	out = blankRe.ReplaceAllString(out, "\n\n")
	return out
}
