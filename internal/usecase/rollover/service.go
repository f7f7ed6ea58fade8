package rollover

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"habit-reminder-bot/internal/domain"
	"habit-reminder-bot/internal/infra/metrics"
	"habit-reminder-bot/internal/usecase/schedule"
)

// reportOnceTTL ограничивает время жизни замка на отправку отчёта.
const reportOnceTTL = 48 * time.Hour

// Service — ночной rollover: провижинит следующий день для всех известных
// пользователей и ставит в очередь отчёты за прошедший день.
type Service struct {
	log     zerolog.Logger
	users   domain.UserRepo
	logs    domain.TaskLogRepo
	sched   *schedule.Service
	queue   domain.DeliveryQueue
	cache   domain.Cache
	catalog domain.Catalog
	loc     *time.Location
	at      string
	now     func() time.Time
}

// NewService создаёт rollover. at — локальное время запуска, формат "15:04".
func NewService(log zerolog.Logger, users domain.UserRepo, logs domain.TaskLogRepo, sched *schedule.Service, queue domain.DeliveryQueue, cache domain.Cache, catalog domain.Catalog, loc *time.Location, at string) *Service {
	return &Service{
		log:     log,
		users:   users,
		logs:    logs,
		sched:   sched,
		queue:   queue,
		cache:   cache,
		catalog: catalog,
		loc:     loc,
		at:      at,
		now:     time.Now,
	}
}

// Run спит до следующего запуска и выполняет rollover раз в сутки.
func (s *Service) Run(ctx context.Context) {
	for {
		next, err := s.nextRun(s.now().In(s.loc))
		if err != nil {
			s.log.Error().Err(err).Str("at", s.at).Msg("rollover: некорректное время запуска")
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info().Msg("rollover остановлен")
			return
		case <-timer.C:
			s.Execute(ctx, s.now().In(s.loc))
		}
	}
}

func (s *Service) nextRun(now time.Time) (time.Time, error) {
	at, err := time.Parse(domain.SlotLayout, s.at)
	if err != nil {
		return time.Time{}, err
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// Execute обрабатывает каждого пользователя как независимую единицу работы:
// сбой провижининга или доставки у одного не мешает остальным.
func (s *Service) Execute(ctx context.Context, now time.Time) {
	start := time.Now()
	defer func() {
		metrics.RolloverDuration.Observe(time.Since(start).Seconds())
	}()

	users, err := s.users.ListUsers()
	if err != nil {
		s.log.Error().Err(err).Msg("rollover: не удалось получить пользователей")
		return
	}

	today := domain.DateOf(now)
	tomorrow := domain.DateOf(now.AddDate(0, 0, 1))
	prior := domain.DateOf(now.AddDate(0, 0, -1))
	s.log.Info().Str("today", today).Str("tomorrow", tomorrow).Str("report_date", prior).Int("users", len(users)).Msg("rollover начат")

	for _, user := range users {
		// Начавшийся день тоже провижинится: пользователь, зарегистрированный
		// после прошлого rollover, его ещё не получил. Повторный провижининг
		// идемпотентен.
		if err := s.sched.ProvisionDay(user, today); err != nil {
			s.log.Error().Err(err).Int64("user", user.TGUserID).Str("date", today).Msg("rollover: провижининг не удался")
		}
		if err := s.sched.ProvisionDay(user, tomorrow); err != nil {
			s.log.Error().Err(err).Int64("user", user.TGUserID).Str("date", tomorrow).Msg("rollover: провижининг не удался")
		}
		if err := s.report(ctx, user, prior); err != nil {
			s.log.Error().Err(err).Int64("user", user.TGUserID).Str("date", prior).Msg("rollover: отчёт не отправлен")
		}
	}
}

// report строит итоги прошедшего дня. Пользователь без записей журнала на
// эту дату отчёт не получает: ему нечего подводить.
func (s *Service) report(ctx context.Context, user domain.User, date string) error {
	logged, err := s.logs.CountLogged(user.TGUserID, date)
	if err != nil {
		return fmt.Errorf("подсчёт записей: %w", err)
	}
	if logged == 0 {
		return nil
	}
	done, err := s.logs.CountByStatus(user.TGUserID, date, domain.StatusDone)
	if err != nil {
		return fmt.Errorf("подсчёт выполненных: %w", err)
	}
	total := logged
	if len(s.catalog) > total {
		total = len(s.catalog)
	}

	key := fmt.Sprintf("report:%d:%s", user.TGUserID, date)
	return s.cache.Once(key, reportOnceTTL, func() error {
		job := domain.DeliveryJob{
			ID:         uuid.NewString(),
			Kind:       domain.JobKindReport,
			UserTGID:   user.TGUserID,
			ChatID:     user.ChatID,
			Date:       date,
			Done:       done,
			Total:      total,
			XP:         user.XP,
			EnqueuedAt: s.now().UTC(),
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("очередь отчётов: %w", err)
		}
		return nil
	})
}
