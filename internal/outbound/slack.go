package outbound

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackSender delivers messages through the Slack Web API.
type SlackSender struct {
	client *slack.Client
}

// NewSlackSender builds a sender from a bot token.
func NewSlackSender(token string) *SlackSender {
	return &SlackSender{client: slack.New(token)}
}

func (s *SlackSender) Channel() string { return "slack" }

// Send delivers text to a channel id. Slack's message timestamp doubles as
// the delivery id.
func (s *SlackSender) Send(ctx context.Context, to, text string) (*Delivery, error) {
	_, ts, err := s.client.PostMessageContext(ctx, to, slack.MsgOptionText(text, false))
	if err != nil {
		return nil, fmt.Errorf("slack send: %w", err)
	}
	return &Delivery{
		Channel:   s.Channel(),
		To:        to,
		MessageID: ts,
	}, nil
}
