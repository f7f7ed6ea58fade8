package response

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"habit-reminder-bot/internal/domain"
	"habit-reminder-bot/internal/infra/metrics"
)

// ErrUnknownAction возвращается при неподдерживаемом действии.
var ErrUnknownAction = errors.New("неизвестное действие")

// Outcome — исход обработки ответа пользователя.
type Outcome string

const (
	// OutcomeRecorded — статус записан, награда начислена при выполнении.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeAlreadyResolved — слот уже был разрешён раньше, без изменений.
	OutcomeAlreadyResolved Outcome = "already_resolved"
	// OutcomeNotFound — записи журнала нет: слот не провижинился или истёк.
	OutcomeNotFound Outcome = "not_found"
)

// Service переводит ответ пользователя в одноразовое изменение журнала
// и начисление опыта.
type Service struct {
	log    zerolog.Logger
	users  domain.UserRepo
	logs   domain.TaskLogRepo
	loc    *time.Location
	reward int64
	now    func() time.Time
}

// NewService создаёт обработчик ответов.
func NewService(log zerolog.Logger, users domain.UserRepo, logs domain.TaskLogRepo, loc *time.Location, reward int64) *Service {
	return &Service{log: log, users: users, logs: logs, loc: loc, reward: reward, now: time.Now}
}

// Resolve применяет действие пользователя к слоту текущего дня. Конкурентные
// дубликаты нажатий безопасны: условное обновление в хранилище пропускает
// ровно один переход, остальные получают OutcomeAlreadyResolved.
func (s *Service) Resolve(ctx context.Context, tgUserID int64, status domain.TaskStatus, slot string) (Outcome, error) {
	if !status.Terminal() {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, status)
	}

	date := domain.DateOf(s.now().In(s.loc))
	resolved, err := s.logs.ResolveSlot(tgUserID, slot, date, status)
	if errors.Is(err, domain.ErrLogEntryNotFound) {
		metrics.IncResponse(string(status), string(OutcomeNotFound))
		return OutcomeNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("обновление статуса: %w", err)
	}
	if !resolved {
		metrics.IncResponse(string(status), string(OutcomeAlreadyResolved))
		return OutcomeAlreadyResolved, nil
	}

	if status == domain.StatusDone {
		if err := s.users.AddExperience(tgUserID, s.reward); err != nil {
			// Статус уже записан, откатывать нечего: теряем только награду.
			s.log.Error().Err(err).Int64("user", tgUserID).Str("slot", slot).Msg("ответы: не удалось начислить XP")
		}
	}
	metrics.IncResponse(string(status), string(OutcomeRecorded))
	return OutcomeRecorded, nil
}

// Reward возвращает размер награды за выполненную задачу.
func (s *Service) Reward() int64 {
	return s.reward
}
