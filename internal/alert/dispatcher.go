package alert

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/telebot.v3"
)

// Dispatcher delivers a budget alert.
type Dispatcher interface {
	Send(ctx context.Context, p Payload) error
}

// LogDispatcher writes alerts as structured log events.
type LogDispatcher struct {
	Log zerolog.Logger
}

// Send implements Dispatcher.
func (d LogDispatcher) Send(_ context.Context, p Payload) error {
	d.Log.Warn().
		Str("user_id", p.UserID).
		Str("day", p.Day).
		Str("monthly_total", p.MonthlyTotal.String()).
		Str("budget_limit", p.BudgetLimit.String()).
		Str("excess", p.Excess.String()).
		Str("percentage_over", p.PercentageOver.String()).
		Msg("budget exceeded")
	return nil
}

// ErrNoChat is returned when a user has no Telegram chat configured and the
// dispatcher has no fallback.
var ErrNoChat = errors.New("no telegram chat configured for user")

// TelegramDispatcher sends alerts as Telegram messages.
type TelegramDispatcher struct {
	bot   *telebot.Bot
	chats map[string]int64

	// Fallback receives alerts for users without a chat mapping.
	Fallback Dispatcher
}

// NewTelegramDispatcher builds a send-only bot. apiURL overrides the Telegram
// API endpoint when non-empty.
func NewTelegramDispatcher(token string, chats map[string]int64, apiURL string) (*TelegramDispatcher, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := telebot.NewBot(telebot.Settings{
		Token:   token,
		URL:     apiURL,
		Offline: true,
		Client:  &http.Client{Timeout: 15 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &TelegramDispatcher{bot: b, chats: chats}, nil
}

// Send implements Dispatcher.
func (d *TelegramDispatcher) Send(ctx context.Context, p Payload) error {
	chatID, ok := d.chats[p.UserID]
	if !ok {
		if d.Fallback != nil {
			return d.Fallback.Send(ctx, p)
		}
		return fmt.Errorf("%w: %s", ErrNoChat, p.UserID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.bot.Send(telebot.ChatID(chatID), FormatMessage(p))
	return err
}

// FormatMessage renders a payload as plain text.
func FormatMessage(p Payload) string {
	return fmt.Sprintf("Budget alert for %s\nMonthly spend %s is over your limit of %s by %s (%s%% of budget).",
		p.Day,
		p.MonthlyTotal.StringFixed(2),
		p.BudgetLimit.StringFixed(2),
		p.Excess.StringFixed(2),
		p.PercentageOver.StringFixed(0),
	)
}
