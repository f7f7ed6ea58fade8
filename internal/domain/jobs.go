package domain

import (
	"context"
	"time"
)

// DeliveryJobKind описывает тип доставки.
type DeliveryJobKind string

const (
	// JobKindReminder — напоминание о задаче с кнопками ответа.
	JobKindReminder DeliveryJobKind = "reminder"
	// JobKindReport — итоговый отчёт за прошедший день.
	JobKindReport DeliveryJobKind = "report"
)

// DeliveryJob — единица работы для воркера доставки. Планировщик и ночной
// rollover только ставят задачи в очередь, отправкой занимается воркер.
type DeliveryJob struct {
	ID         string          `json:"job_id"`
	Kind       DeliveryJobKind `json:"kind"`
	UserTGID   int64           `json:"user_tg_id"`
	ChatID     int64           `json:"chat_id"`
	Slot       string          `json:"slot,omitempty"`
	Date       string          `json:"date"`
	Text       string          `json:"text,omitempty"`
	Done       int             `json:"done,omitempty"`
	Total      int             `json:"total,omitempty"`
	XP         int64           `json:"xp,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// DeliveryAckFunc подтверждает обработку или возвращает задачу в очередь.
type DeliveryAckFunc func(success bool) error

// DeliveryQueue описывает очередь задач доставки.
type DeliveryQueue interface {
	Enqueue(ctx context.Context, job DeliveryJob) error
	Receive(ctx context.Context) (DeliveryJob, DeliveryAckFunc, error)
}
