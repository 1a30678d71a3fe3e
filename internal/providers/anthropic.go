package providers

import (
	"encoding/json"
	"net/http"

	"github.com/bashclaw/bashclaw/internal/catalog"
	"github.com/bashclaw/bashclaw/pkg/protocol"
)

// anthropicAdapter speaks the Anthropic Messages API wire format.
type anthropicAdapter struct{}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string               `json:"type"`
	Text      string               `json:"text,omitempty"`
	ID        string               `json:"id,omitempty"`
	Name      string               `json:"name,omitempty"`
	Input     json.RawMessage      `json:"input,omitempty"`
	ToolUseID string               `json:"tool_use_id,omitempty"`
	Content   string               `json:"content,omitempty"`
	IsError   bool                 `json:"is_error,omitempty"`
	Source    *anthropicImgSource  `json:"source,omitempty"`
}

type anthropicImgSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Content    []anthropicContent `json:"content"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (anthropicAdapter) EncodeRequest(p catalog.Provider, req *Request) ([]byte, error) {
	wire := anthropicRequest{
		Model:     req.Model,
		System:    req.System,
		MaxTokens: req.MaxTokens,
	}
	if wire.MaxTokens <= 0 {
		wire.MaxTokens = catalog.LookupModel(req.Model).MaxOutput
	}
	if req.Temperature > 0 {
		t := req.Temperature
		wire.Temperature = &t
	}
	for _, tool := range req.Tools {
		wire.Tools = append(wire.Tools, anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	for _, msg := range req.Messages {
		wm := anthropicMessage{Role: string(msg.Role)}
		for _, b := range msg.Content {
			switch b.Type {
			case protocol.BlockText:
				wm.Content = append(wm.Content, anthropicContent{Type: "text", Text: b.Text})
			case protocol.BlockToolUse:
				wm.Content = append(wm.Content, anthropicContent{Type: "tool_use", ID: b.ID, Name: b.Name, Input: b.Input})
			case protocol.BlockToolResult:
				wm.Content = append(wm.Content, anthropicContent{Type: "tool_result", ToolUseID: b.ToolUseID, Content: b.Content, IsError: b.IsError})
			case protocol.BlockImage:
				wm.Content = append(wm.Content, anthropicContent{Type: "image", Source: &anthropicImgSource{
					Type:      "base64",
					MediaType: b.MediaType,
					Data:      b.Data,
				}})
			}
		}
		if len(wm.Content) > 0 {
			wire.Messages = append(wire.Messages, wm)
		}
	}
	return json.Marshal(wire)
}

func (anthropicAdapter) DecodeResponse(body []byte) (*protocol.Response, error) {
	var wire anthropicResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}

	resp := &protocol.Response{Model: wire.Model}
	resp.Usage.InputTokens = wire.Usage.InputTokens
	resp.Usage.OutputTokens = wire.Usage.OutputTokens

	for _, c := range wire.Content {
		switch c.Type {
		case "text":
			if text := stripThinking(c.Text); text != "" {
				resp.Content = append(resp.Content, protocol.TextBlock(text))
			}
		case "tool_use":
			resp.Content = append(resp.Content, protocol.ToolUseBlock(c.ID, c.Name, c.Input))
		}
	}

	switch wire.StopReason {
	case "tool_use":
		resp.StopReason = protocol.StopToolUse
	case "max_tokens":
		resp.StopReason = protocol.StopMaxTokens
	case "end_turn", "stop_sequence":
		resp.StopReason = protocol.StopEndTurn
	default:
		resp.StopReason = protocol.StopEndTurn
	}
	return resp, nil
}

func (anthropicAdapter) Endpoint(p catalog.Provider, model string) string {
	return p.ResolveBaseURL() + "/v1/messages"
}

func (anthropicAdapter) Headers(p catalog.Provider) http.Header {
	h := http.Header{}
	h.Set("x-api-key", p.APIKey())
	version := p.APIVersion
	if version == "" {
		version = "2023-06-01"
	}
	h.Set("anthropic-version", version)
	return h
}
