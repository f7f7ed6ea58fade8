package domain

import "time"

// DateLayout — формат календарной даты в ключах журнала.
const DateLayout = "2006-01-02"

// SlotLayout — формат времени слота внутри дня.
const SlotLayout = "15:04"

// DateOf возвращает календарную дату момента t.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// TaskStatus описывает состояние записи дневного журнала.
type TaskStatus string

const (
	// StatusPending — задача ещё не отработана пользователем.
	StatusPending TaskStatus = "pending"
	// StatusDone — пользователь отметил задачу выполненной.
	StatusDone TaskStatus = "done"
	// StatusSkipped — пользователь отметил задачу пропущенной.
	StatusSkipped TaskStatus = "skipped"
)

// Terminal сообщает, является ли статус конечным.
func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusSkipped
}

// User описывает пользователя Telegram в системе.
type User struct {
	TGUserID  int64
	ChatID    int64
	XP        int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskSlot — одна позиция каталога: время дня и текст напоминания.
type TaskSlot struct {
	Time string
	Text string
}

// At возвращает момент срабатывания слота в указанную дату и часовом поясе.
func (s TaskSlot) At(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+SlotLayout, date+" "+s.Time, loc)
}

// TaskLogEntry — запись дневного журнала с ключом (пользователь, слот, дата).
// Текст задачи денормализован на момент создания записи, правки каталога
// не меняют историю.
type TaskLogEntry struct {
	UserTGID   int64
	Slot       string
	Date       string
	Status     TaskStatus
	Text       string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// DayReport — итоги дня для одного пользователя.
type DayReport struct {
	Date  string
	Done  int
	Total int
	XP    int64
}
