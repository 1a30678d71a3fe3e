package outbound

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
)

// TelegramSender delivers messages through the Telegram Bot API.
type TelegramSender struct {
	bot *bot.Bot
}

// NewTelegramSender builds a sender from a bot token.
func NewTelegramSender(token string) (*TelegramSender, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramSender{bot: b}, nil
}

func (s *TelegramSender) Channel() string { return "telegram" }

// Send delivers text to a chat id.
func (s *TelegramSender) Send(ctx context.Context, to, text string) (*Delivery, error) {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram recipient must be a chat id: %w", err)
	}
	msg, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram send: %w", err)
	}
	return &Delivery{
		Channel:   s.Channel(),
		To:        to,
		MessageID: strconv.Itoa(msg.ID),
	}, nil
}
