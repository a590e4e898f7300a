package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/amishk599/jobsieve/internal/model"
)

// Ensure TelegramNotifier implements model.Notifier.
var _ model.Notifier = (*TelegramNotifier)(nil)

// Telegram caps a message at 4096 characters.
const maxTelegramMessage = 4000

// telegramSender is the subset of *tgbotapi.BotAPI the notifier needs.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends the hit digest to a Telegram chat.
type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
	logger *slog.Logger
}

// NewTelegramNotifier connects to the bot API with token.
func NewTelegramNotifier(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// Notify sends the digest, split across messages when it is too long.
func (t *TelegramNotifier) Notify(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, text := range telegramMessages(records) {
		if err := ctx.Err(); err != nil {
			return &model.DeliveryError{Channel: "telegram", Err: err}
		}
		msg := tgbotapi.NewMessage(t.chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			return &model.DeliveryError{Channel: "telegram", Err: err}
		}
	}
	t.logger.Info("telegram digest sent", "records", len(records))
	return nil
}

func telegramMessages(records []model.Record) []string {
	var (
		msgs []string
		cur  strings.Builder
	)
	cur.WriteString("<b>" + html.EscapeString(digestHeading(len(records))) + "</b>\n")
	for _, r := range records {
		line := "• " + html.EscapeString(SummaryLine(r)) + "\n"
		if excerpt := DescriptionExcerpt(r); excerpt != "" {
			line += "<i>" + html.EscapeString(excerpt) + "</i>\n"
		}
		if cur.Len()+len(line) > maxTelegramMessage {
			msgs = append(msgs, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	return append(msgs, cur.String())
}
