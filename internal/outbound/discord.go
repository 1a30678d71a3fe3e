package outbound

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordSender delivers messages through a Discord bot session.
type DiscordSender struct {
	session *discordgo.Session
}

// NewDiscordSender builds a sender from a bot token.
func NewDiscordSender(token string) (*DiscordSender, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordSender{session: session}, nil
}

func (s *DiscordSender) Channel() string { return "discord" }

// Send delivers text to a channel id.
func (s *DiscordSender) Send(ctx context.Context, to, text string) (*Delivery, error) {
	msg, err := s.session.ChannelMessageSend(to, text, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord send: %w", err)
	}
	return &Delivery{
		Channel:   s.Channel(),
		To:        to,
		MessageID: msg.ID,
	}, nil
}
