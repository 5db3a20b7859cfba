// Package bot delivers board messages to the group chat over Telegram.
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"slotboard/internal/models"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

// GroupNotifier sends messages to a single configured group chat.
type GroupNotifier struct {
	tg     telegramClient
	chatID int64
	logger zerolog.Logger
}

// NewGroupNotifier connects to Telegram with the given bot token.
func NewGroupNotifier(token string, chatID int64, debug bool, logger zerolog.Logger) (*GroupNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	api.Debug = debug
	logger.Info().Str("bot", api.Self.UserName).Msg("telegram bot authorized")
	return NewGroupNotifierWithClient(&realTelegramClient{api: api}, chatID, logger), nil
}

// NewGroupNotifierWithClient allows injecting a mocked Telegram client for tests.
func NewGroupNotifierWithClient(tg telegramClient, chatID int64, logger zerolog.Logger) *GroupNotifier {
	return &GroupNotifier{
		tg:     tg,
		chatID: chatID,
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

// Deliver sends text to the group chat, bounded by ctx. The Telegram client
// has no context support, so the send runs in a goroutine and the slow path
// is abandoned on deadline.
func (n *GroupNotifier) Deliver(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	done := make(chan error, 1)
	go func() {
		_, err := n.tg.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send to group %d: %w", n.chatID, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FormatCreated renders the best-effort announcement for a freshly created slot.
func FormatCreated(slot *models.Slot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🎮 *NEW SLOT!* 🔥\n\n")
	fmt.Fprintf(&b, "⏰ *Time:* %s\n", slot.StartTime.Format("03:04 PM"))
	fmt.Fprintf(&b, "👤 *Created by:* %s\n\n", slot.CreatorName)
	b.WriteString("📝 *Players:*")

	for i, occupant := range slot.Seats() {
		if occupant == "" {
			occupant = "—"
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, occupant)
	}

	b.WriteString("\n\nJoin now! 🚀")
	return b.String()
}
