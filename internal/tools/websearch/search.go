package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bashclaw/bashclaw/internal/tools"
)

// Env vars holding the search backend credentials.
const (
	BraveKeyEnv      = "BRAVE_SEARCH_API_KEY"
	PerplexityKeyEnv = "PERPLEXITY_API_KEY"
)

const (
	braveEndpoint      = "https://api.search.brave.com/res/v1/web/search"
	perplexityEndpoint = "https://api.perplexity.ai/chat/completions"
)

// SearchResult is one hit returned to the model.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchTool searches the web through Brave, falling back to Perplexity when
// Brave is unconfigured or fails. Unavailable when neither key is set.
type SearchTool struct {
	httpClient *http.Client
	braveURL   string
	pplxURL    string
}

// SearchOption customizes SearchTool construction.
type SearchOption func(*SearchTool)

// WithSearchClient overrides the HTTP client.
func WithSearchClient(hc *http.Client) SearchOption {
	return func(t *SearchTool) { t.httpClient = hc }
}

// WithEndpoints overrides backend URLs (tests).
func WithEndpoints(brave, pplx string) SearchOption {
	return func(t *SearchTool) {
		if brave != "" {
			t.braveURL = brave
		}
		if pplx != "" {
			t.pplxURL = pplx
		}
	}
}

// NewSearchTool creates the web_search tool.
func NewSearchTool(opts ...SearchOption) *SearchTool {
	t := &SearchTool{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		braveURL:   braveEndpoint,
		pplxURL:    perplexityEndpoint,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SearchTool) Name() string { return "web_search" }

func (t *SearchTool) Description() string {
	return "Search the web. Returns titles, URLs, and snippets for the top results."
}

func (t *SearchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query"},
			"count": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Number of results (default 5)"}
		},
		"required": ["query"]
	}`)
}

// Available reports whether any backend has credentials.
func (t *SearchTool) Available() bool {
	return os.Getenv(BraveKeyEnv) != "" || os.Getenv(PerplexityKeyEnv) != ""
}

func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return tools.Errorf("missing required parameter: query"), nil
	}
	if args.Count <= 0 {
		args.Count = 5
	}
	if args.Count > 20 {
		args.Count = 20
	}

	var (
		results []SearchResult
		answer  string
		err     error
	)
	if os.Getenv(BraveKeyEnv) != "" {
		results, err = t.searchBrave(ctx, args.Query, args.Count)
	} else {
		err = fmt.Errorf("brave key not configured")
	}
	if err != nil && os.Getenv(PerplexityKeyEnv) != "" {
		answer, err = t.searchPerplexity(ctx, args.Query)
	}
	if err != nil {
		return tools.Errorf("search failed: %v", err), nil
	}

	out := map[string]any{"query": args.Query}
	if answer != "" {
		out["answer"] = answer
	} else {
		out["results"] = results
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return tools.Errorf("format response: %v", err), nil
	}
	return &tools.ToolResult{Content: string(payload)}, nil
}

func (t *SearchTool) searchBrave(ctx context.Context, query string, count int) ([]SearchResult, error) {
	u, err := url.Parse(t.braveURL)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", count))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", os.Getenv(BraveKeyEnv))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parse brave response: %w", err)
	}
	results := make([]SearchResult, 0, len(wire.Web.Results))
	for _, r := range wire.Web.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return results, nil
}

func (t *SearchTool) searchPerplexity(ctx context.Context, query string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model": "sonar",
		"messages": []map[string]string{
			{"role": "user", "content": query},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.pplxURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+os.Getenv(PerplexityKeyEnv))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("perplexity returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var wire struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return "", fmt.Errorf("parse perplexity response: %w", err)
	}
	if len(wire.Choices) == 0 {
		return "", fmt.Errorf("perplexity returned no choices")
	}
	return wire.Choices[0].Message.Content, nil
}
