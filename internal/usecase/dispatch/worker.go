package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"habit-reminder-bot/internal/domain"
	"habit-reminder-bot/internal/infra/metrics"
)

// receiveBackoff — пауза после инфраструктурной ошибки очереди.
const receiveBackoff = time.Second

// Worker разбирает очередь доставки и отправляет сообщения через транспорт.
// Сбой отправки логируется и не повторяется в рамках того же цикла.
type Worker struct {
	log      zerolog.Logger
	queue    domain.DeliveryQueue
	logs     domain.TaskLogRepo
	notifier domain.Notifier
}

// NewWorker создаёт воркер доставки.
func NewWorker(log zerolog.Logger, queue domain.DeliveryQueue, logs domain.TaskLogRepo, notifier domain.Notifier) *Worker {
	return &Worker{log: log, queue: queue, logs: logs, notifier: notifier}
}

// Run обрабатывает задачи до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				w.log.Info().Msg("воркер доставки остановлен")
				return
			}
			w.log.Error().Err(err).Msg("доставка: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(receiveBackoff):
			}
			continue
		}

		w.handle(job)
		if err := ack(true); err != nil {
			w.log.Error().Err(err).Str("job", job.ID).Msg("доставка: не удалось подтвердить задачу")
		}
	}
}

func (w *Worker) handle(job domain.DeliveryJob) {
	switch job.Kind {
	case domain.JobKindReminder:
		w.handleReminder(job)
	case domain.JobKindReport:
		w.handleReport(job)
	default:
		w.log.Warn().Str("job", job.ID).Str("kind", string(job.Kind)).Msg("доставка: неизвестный тип задачи")
	}
}

// handleReminder перепроверяет статус перед отправкой: между постановкой в
// очередь и доставкой пользователь мог успеть разрешить слот.
func (w *Worker) handleReminder(job domain.DeliveryJob) {
	status, err := w.logs.GetStatus(job.UserTGID, job.Slot, job.Date)
	if err != nil && !errors.Is(err, domain.ErrLogEntryNotFound) {
		w.log.Error().Err(err).Str("job", job.ID).Msg("доставка: не удалось проверить статус")
		return
	}
	if err != nil || status != domain.StatusPending {
		w.log.Debug().Str("job", job.ID).Int64("user", job.UserTGID).Str("slot", job.Slot).Msg("доставка: слот уже разрешён, напоминание пропущено")
		return
	}

	slot := domain.TaskSlot{Time: job.Slot, Text: job.Text}
	if err := w.notifier.SendReminder(job.ChatID, slot); err != nil {
		w.log.Error().Err(err).Int64("user", job.UserTGID).Str("slot", job.Slot).Msg("доставка: напоминание не отправлено")
		return
	}
	metrics.RemindersSent.Inc()
}

func (w *Worker) handleReport(job domain.DeliveryJob) {
	text := renderReport(domain.DayReport{Date: job.Date, Done: job.Done, Total: job.Total, XP: job.XP})
	if err := w.notifier.SendText(job.ChatID, text); err != nil {
		w.log.Error().Err(err).Int64("user", job.UserTGID).Str("date", job.Date).Msg("доставка: отчёт не отправлен")
		return
	}
	metrics.ReportsSent.Inc()
}

func renderReport(r domain.DayReport) string {
	return fmt.Sprintf("📊 Итоги за %s:\n✅ Выполнено: %d/%d\n🌟 XP: %d", r.Date, r.Done, r.Total, r.XP)
}
