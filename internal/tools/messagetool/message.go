// Package messagetool implements the message tool, which lets the model send
// text to a chat channel through the outbound sender registry.
package messagetool

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bashclaw/bashclaw/internal/outbound"
	"github.com/bashclaw/bashclaw/internal/tools"
)

// MessageTool delivers text through registered channel senders.
type MessageTool struct {
	registry *outbound.Registry
}

// New creates the message tool.
func New(registry *outbound.Registry) *MessageTool {
	return &MessageTool{registry: registry}
}

func (t *MessageTool) Name() string { return "message" }

func (t *MessageTool) Description() string {
	return "Send a message to a chat channel (telegram, discord, slack)."
}

func (t *MessageTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"channel": {"type": "string", "description": "Target channel name"},
			"to": {"type": "string", "description": "Recipient id (chat, channel, or user id)"},
			"text": {"type": "string", "description": "Message text"}
		},
		"required": ["channel", "to", "text"]
	}`)
}

// Available reports whether any sender is registered.
func (t *MessageTool) Available() bool {
	return t.registry != nil && len(t.registry.Channels()) > 0
}

func (t *MessageTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Channel string `json:"channel"`
		To      string `json:"to"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	if strings.TrimSpace(args.Text) == "" {
		return tools.Errorf("text is required"), nil
	}

	delivery, err := t.registry.Send(ctx, args.Channel, args.To, args.Text)
	if err != nil {
		return tools.Errorf("send failed: %v", err), nil
	}
	return &tools.ToolResult{Content: delivery.Summary()}, nil
}
