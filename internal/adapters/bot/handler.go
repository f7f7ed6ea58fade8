package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"habit-reminder-bot/internal/domain"
	"habit-reminder-bot/internal/infra/metrics"
	"habit-reminder-bot/internal/usecase/profile"
	"habit-reminder-bot/internal/usecase/response"
	"habit-reminder-bot/internal/usecase/schedule"
)

// Handler обслуживает входящие апдейты Telegram.
type Handler struct {
	bot        *tgbotapi.BotAPI
	log        zerolog.Logger
	users      domain.UserRepo
	responseUC *response.Service
	profileUC  *profile.Service
	sched      *schedule.Service
	loc        *time.Location
}

// NewHandler создаёт обработчик.
func NewHandler(bot *tgbotapi.BotAPI, log zerolog.Logger, users domain.UserRepo, responseUC *response.Service, profileUC *profile.Service, sched *schedule.Service, loc *time.Location) *Handler {
	return &Handler{
		bot:        bot,
		log:        log,
		users:      users,
		responseUC: responseUC,
		profileUC:  profileUC,
		sched:      sched,
		loc:        loc,
	}
}

// Run крутит long polling до отмены контекста или смерти транспорта.
func (h *Handler) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := h.bot.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			h.log.Info().Msg("polling остановлен")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return errors.New("канал апдейтов закрыт")
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(msg)
	case strings.HasPrefix(text, "/profile"):
		h.handleProfile(msg.Chat.ID, h.fromID(msg))
	case strings.HasPrefix(text, "/help"):
		h.handleHelp(msg.Chat.ID)
	default:
		h.reply(msg.Chat.ID, "Неизвестная команда. Используйте /help")
	}
}

// handleStart регистрирует пользователя и провижинит текущий день: слоты,
// чьё время уже прошло, попадают в журнал, но напоминания по ним не взводятся.
func (h *Handler) handleStart(msg *tgbotapi.Message) {
	tgUserID := h.fromID(msg)
	if tgUserID == 0 {
		h.reply(msg.Chat.ID, "Не удалось определить пользователя")
		return
	}
	user, created, err := h.users.UpsertByTGID(tgUserID, msg.Chat.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", tgUserID).Msg("не удалось сохранить пользователя")
		h.reply(msg.Chat.ID, "Ошибка сохранения профиля, попробуйте позже")
		return
	}
	if created {
		h.log.Info().Int64("user", tgUserID).Msg("новый пользователь зарегистрирован")
	}

	today := domain.DateOf(time.Now().In(h.loc))
	if err := h.sched.ProvisionDay(user, today); err != nil {
		h.log.Error().Err(err).Int64("user", tgUserID).Msg("не удалось провижинить день")
	}
	h.reply(msg.Chat.ID, "Привет! Я твой ассистент по дисциплине. Буду напоминать тебе о задачах!")
}

func (h *Handler) handleProfile(chatID, tgUserID int64) {
	if tgUserID == 0 {
		h.reply(chatID, "Не удалось определить пользователя")
		return
	}
	summary, err := h.profileUC.Today(tgUserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		h.reply(chatID, "Вы ещё не зарегистрированы. Отправьте /start")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("user", tgUserID).Msg("не удалось собрать профиль")
		h.reply(chatID, "Ошибка получения профиля, попробуйте позже")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌟 XP: %d\n📅 Осталось задач сегодня: %d\n", summary.XP, len(summary.Pending))
	if len(summary.Pending) > 0 {
		b.WriteString("\n⏳ Задачи:\n")
		for _, entry := range summary.Pending {
			fmt.Fprintf(&b, "%s — %s\n", entry.Slot, entry.Text)
		}
	}
	h.reply(chatID, strings.TrimSpace(b.String()))
}

func (h *Handler) handleHelp(chatID int64) {
	h.reply(chatID, strings.Join([]string{
		"/start — регистрация и напоминания с сегодняшнего дня",
		"/profile — текущий XP и оставшиеся задачи",
		"/help — эта справка",
	}, "\n"))
}

// handleCallback применяет ответ пользователя на кнопку напоминания.
// Дубликаты нажатий безопасны: повторный ответ получает «уже отмечено».
func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	status, slot, err := ParseCallback(cb.Data)
	if err != nil {
		h.log.Warn().Err(err).Str("data", cb.Data).Msg("callback не распознан")
		h.answerCallback(cb.ID, cb.From.ID, "Кнопка устарела")
		return
	}

	outcome, err := h.responseUC.Resolve(ctx, cb.From.ID, status, slot)
	if err != nil {
		h.log.Error().Err(err).Int64("user", cb.From.ID).Str("slot", slot).Msg("не удалось обработать ответ")
		h.answerCallback(cb.ID, cb.From.ID, "Ошибка, попробуйте позже")
		return
	}
	h.answerCallback(cb.ID, cb.From.ID, h.outcomeText(status, outcome))
}

func (h *Handler) outcomeText(status domain.TaskStatus, outcome response.Outcome) string {
	switch outcome {
	case response.OutcomeRecorded:
		if status == domain.StatusDone {
			return fmt.Sprintf("✅ Выполнено! +%d XP.", h.responseUC.Reward())
		}
		return "❌ Пропущено."
	case response.OutcomeAlreadyResolved:
		return "Уже отмечено."
	case response.OutcomeNotFound:
		return "Задача не найдена или истекла."
	default:
		return ""
	}
}

func (h *Handler) answerCallback(callbackID string, tgUserID int64, text string) {
	start := time.Now()
	_, err := h.bot.Request(tgbotapi.NewCallback(callbackID, text))
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", strconv.FormatInt(tgUserID, 10), start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось ответить на callback")
	}
}

func (h *Handler) reply(chatID int64, text string) {
	for _, part := range SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			h.log.Error().Err(err).Msg("не удалось отправить сообщение")
			return
		}
	}
}

func (h *Handler) fromID(msg *tgbotapi.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}
