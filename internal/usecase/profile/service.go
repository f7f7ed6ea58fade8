package profile

import (
	"fmt"
	"time"

	"habit-reminder-bot/internal/domain"
)

// Summary — профиль пользователя: опыт и оставшиеся задачи на сегодня.
type Summary struct {
	XP      int64
	Date    string
	Pending []domain.TaskLogEntry
}

// Service собирает профиль пользователя.
type Service struct {
	users   domain.UserRepo
	logs    domain.TaskLogRepo
	catalog domain.Catalog
	loc     *time.Location
	now     func() time.Time
}

// NewService создаёт сервис профиля.
func NewService(users domain.UserRepo, logs domain.TaskLogRepo, catalog domain.Catalog, loc *time.Location) *Service {
	return &Service{users: users, logs: logs, catalog: catalog, loc: loc, now: time.Now}
}

// Today возвращает XP и неразрешённые слоты текущего дня. Перед чтением
// журнал лениво провижинится, чтобы свежий пользователь увидел полный день.
func (s *Service) Today(tgUserID int64) (Summary, error) {
	user, err := s.users.GetByTGID(tgUserID)
	if err != nil {
		return Summary{}, fmt.Errorf("получение пользователя: %w", err)
	}

	date := domain.DateOf(s.now().In(s.loc))
	if err := s.logs.EnsureProvisioned(tgUserID, date, s.catalog); err != nil {
		return Summary{}, fmt.Errorf("провижининг журнала: %w", err)
	}
	pending, err := s.logs.ListPending(tgUserID, date)
	if err != nil {
		return Summary{}, fmt.Errorf("чтение журнала: %w", err)
	}
	return Summary{XP: user.XP, Date: date, Pending: pending}, nil
}
