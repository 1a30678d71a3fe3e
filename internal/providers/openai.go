package providers

import (
	"encoding/json"
	"net/http"

	"github.com/bashclaw/bashclaw/internal/catalog"
	"github.com/bashclaw/bashclaw/pkg/protocol"
)

// openaiAdapter speaks the OpenAI chat-completions wire format, which is also
// the lingua franca for deepseek, groq, openrouter, and similar providers.
type openaiAdapter struct{}

// openaiRequest is built as a map so the max-tokens field name can vary per
// provider (newer OpenAI endpoints renamed it).
type openaiMessage struct {
	Role       string           `json:"role"`
	Content    any              `json:"content"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openaiImageURL `json:"image_url,omitempty"`
}

type openaiImageURL struct {
	URL string `json:"url"`
}

type openaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content   *string          `json:"content"`
			ToolCalls []openaiToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (openaiAdapter) EncodeRequest(p catalog.Provider, req *Request) ([]byte, error) {
	var messages []openaiMessage
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case protocol.RoleAssistant:
			wm := openaiMessage{Role: "assistant"}
			var text string
			for _, b := range msg.Content {
				switch b.Type {
				case protocol.BlockText:
					if text != "" && b.Text != "" {
						text += "\n"
					}
					text += b.Text
				case protocol.BlockToolUse:
					tc := openaiToolCall{ID: b.ID, Type: "function"}
					tc.Function.Name = b.Name
					tc.Function.Arguments = string(b.Input)
					wm.ToolCalls = append(wm.ToolCalls, tc)
				}
			}
			if text != "" {
				wm.Content = text
			}
			if text != "" || len(wm.ToolCalls) > 0 {
				messages = append(messages, wm)
			}

		case protocol.RoleUser:
			// Tool results become individual "tool" role messages; everything
			// else collapses into one user message.
			var parts []openaiContentPart
			for _, b := range msg.Content {
				switch b.Type {
				case protocol.BlockToolResult:
					messages = append(messages, openaiMessage{
						Role:       "tool",
						Content:    b.Content,
						ToolCallID: b.ToolUseID,
					})
				case protocol.BlockText:
					parts = append(parts, openaiContentPart{Type: "text", Text: b.Text})
				case protocol.BlockImage:
					parts = append(parts, openaiContentPart{Type: "image_url", ImageURL: &openaiImageURL{
						URL: "data:" + b.MediaType + ";base64," + b.Data,
					}})
				}
			}
			switch {
			case len(parts) == 1 && parts[0].Type == "text":
				messages = append(messages, openaiMessage{Role: "user", Content: parts[0].Text})
			case len(parts) > 0:
				messages = append(messages, openaiMessage{Role: "user", Content: parts})
			}
		}
	}

	wire := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = catalog.LookupModel(req.Model).MaxOutput
	}
	field := p.MaxTokensField
	if field == "" {
		field = "max_tokens"
	}
	wire[field] = maxTokens
	if req.Temperature > 0 {
		wire["temperature"] = req.Temperature
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  t.InputSchema,
				},
			})
		}
		wire["tools"] = tools
	}
	return json.Marshal(wire)
}

func (openaiAdapter) DecodeResponse(body []byte) (*protocol.Response, error) {
	var wire openaiResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}

	resp := &protocol.Response{Model: wire.Model, StopReason: protocol.StopEndTurn}
	resp.Usage.InputTokens = wire.Usage.PromptTokens
	resp.Usage.OutputTokens = wire.Usage.CompletionTokens

	if len(wire.Choices) == 0 {
		return resp, nil
	}
	choice := wire.Choices[0]

	if choice.Message.Content != nil {
		if text := stripThinking(*choice.Message.Content); text != "" {
			resp.Content = append(resp.Content, protocol.TextBlock(text))
		}
	}
	for _, tc := range choice.Message.ToolCalls {
		input := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(input) {
			input = json.RawMessage(`{}`)
		}
		resp.Content = append(resp.Content, protocol.ToolUseBlock(tc.ID, tc.Function.Name, input))
	}

	switch choice.FinishReason {
	case "tool_calls", "function_call":
		resp.StopReason = protocol.StopToolUse
	case "length":
		resp.StopReason = protocol.StopMaxTokens
	case "stop", "":
		resp.StopReason = protocol.StopEndTurn
	default:
		resp.StopReason = protocol.StopEndTurn
	}
	// Some openai-compatible backends report finish_reason=stop even when tool
	// calls are present.
	if resp.StopReason == protocol.StopEndTurn && len(choice.Message.ToolCalls) > 0 {
		resp.StopReason = protocol.StopToolUse
	}
	return resp, nil
}

func (openaiAdapter) Endpoint(p catalog.Provider, model string) string {
	return p.ResolveBaseURL() + "/chat/completions"
}

func (openaiAdapter) Headers(p catalog.Provider) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+p.APIKey())
	return h
}
