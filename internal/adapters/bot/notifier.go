package bot

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"habit-reminder-bot/internal/domain"
	"habit-reminder-bot/internal/infra/metrics"
)

// Notifier отправляет сообщения пользователям через Telegram Bot API.
type Notifier struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier создаёт отправителя.
func NewNotifier(bot *tgbotapi.BotAPI, log zerolog.Logger) *Notifier {
	return &Notifier{bot: bot, log: log}
}

// SendReminder отправляет напоминание с кнопками «выполнено»/«пропущено».
// Кнопки несут время слота, чтобы ответ вернулся с точным ключом записи.
func (n *Notifier) SendReminder(chatID int64, slot domain.TaskSlot) error {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Выполнено", CallbackData(actionDone, slot.Time)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Пропущено", CallbackData(actionSkip, slot.Time)),
		),
	)
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("🕒 %s\n%s", slot.Time, slot.Text))
	msg.ReplyMarkup = markup

	start := time.Now()
	_, err := n.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_reminder", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		return fmt.Errorf("отправка напоминания: %w", err)
	}
	return nil
}

// SendText отправляет обычный текст, при необходимости частями.
func (n *Notifier) SendText(chatID int64, text string) error {
	for _, part := range SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		start := time.Now()
		_, err := n.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			return fmt.Errorf("отправка сообщения: %w", err)
		}
	}
	return nil
}
