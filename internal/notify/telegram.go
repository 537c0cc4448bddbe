package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"
)

// TelegramNotifier mirrors alerts into the coordinators' group chat.
type TelegramNotifier struct {
	bot     *bot.Bot
	chatID  int64
	limiter *rate.Limiter
}

// NewTelegramNotifier skips the getMe handshake so startup never blocks on Telegram.
func NewTelegramNotifier(token string, chatID int64, opts ...bot.Option) (*TelegramNotifier, error) {
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}
	return &TelegramNotifier{
		bot:    b,
		chatID: chatID,
		// Telegram allows about 20 messages per minute into one group.
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 3),
	}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}
	if _, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	}); err != nil {
		return fmt.Errorf("failed to send telegram message to chat %d: %w", t.chatID, err)
	}
	return nil
}
