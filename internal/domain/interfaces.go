package domain

import (
	"errors"
	"time"
)

// ErrLogEntryNotFound возвращается, если запись журнала отсутствует.
var ErrLogEntryNotFound = errors.New("запись журнала не найдена")

// ErrUserNotFound возвращается, если пользователь не зарегистрирован.
var ErrUserNotFound = errors.New("пользователь не найден")

// UserRepo управляет пользователями.
type UserRepo interface {
	// UpsertByTGID создаёт пользователя при первом обращении и возвращает
	// признак создания.
	UpsertByTGID(tgUserID, chatID int64) (User, bool, error)
	GetByTGID(tgUserID int64) (User, error)
	ListUsers() ([]User, error)
	// AddExperience атомарно увеличивает XP пользователя.
	AddExperience(tgUserID int64, amount int64) error
}

// TaskLogRepo управляет дневным журналом задач.
type TaskLogRepo interface {
	// EnsureProvisioned идемпотентно создаёт pending-записи на дату по всем
	// слотам каталога, не трогая уже существующие.
	EnsureProvisioned(tgUserID int64, date string, slots []TaskSlot) error
	GetStatus(tgUserID int64, slot, date string) (TaskStatus, error)
	// ResolveSlot переводит запись из pending в конечный статус ровно один
	// раз. Возвращает false без ошибки, если запись уже разрешена.
	ResolveSlot(tgUserID int64, slot, date string, status TaskStatus) (bool, error)
	ListPending(tgUserID int64, date string) ([]TaskLogEntry, error)
	CountByStatus(tgUserID int64, date string, status TaskStatus) (int, error)
	CountLogged(tgUserID int64, date string) (int, error)
}

// Notifier отправляет сообщения пользователю через транспорт.
type Notifier interface {
	// SendReminder отправляет напоминание с кнопками «выполнено»/«пропущено».
	SendReminder(chatID int64, slot TaskSlot) error
	SendText(chatID int64, text string) error
}

// Cache используется для одноразовых замков с TTL.
type Cache interface {
	// Once выполняет fn, если ключ ещё не занят; при ошибке fn ключ
	// освобождается.
	Once(key string, ttl time.Duration, fn func() error) error
}
