package schedule

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"habit-reminder-bot/internal/domain"
	"habit-reminder-bot/internal/infra/metrics"
)

// idleWait — пауза таймера при пустой куче.
const idleWait = time.Hour

// Service — ядро планировщика: держит min-кучу будущих срабатываний и по
// одному таймеру отправляет напоминания в очередь доставки в нужный момент.
type Service struct {
	log     zerolog.Logger
	logs    domain.TaskLogRepo
	queue   domain.DeliveryQueue
	catalog domain.Catalog
	loc     *time.Location
	now     func() time.Time

	mu      sync.Mutex
	firings fireHeap
	gen     map[fireKey]uint64
	wake    chan struct{}
}

// NewService создаёт планировщик.
func NewService(log zerolog.Logger, logs domain.TaskLogRepo, queue domain.DeliveryQueue, catalog domain.Catalog, loc *time.Location) *Service {
	return &Service{
		log:     log,
		logs:    logs,
		queue:   queue,
		catalog: catalog,
		loc:     loc,
		now:     time.Now,
		gen:     make(map[fireKey]uint64),
		wake:    make(chan struct{}, 1),
	}
}

// ProvisionDay создаёт pending-записи журнала на дату и взводит срабатывания
// для слотов, чьё время ещё впереди. Прошедшие слоты текущего дня остаются в
// журнале, но не взводятся. Повторный вызов заменяет ранее взведённые
// срабатывания, а не дублирует их.
func (s *Service) ProvisionDay(user domain.User, date string) error {
	if err := s.logs.EnsureProvisioned(user.TGUserID, date, s.catalog); err != nil {
		return fmt.Errorf("провижининг журнала %s: %w", date, err)
	}

	now := s.now().In(s.loc)
	for _, slot := range s.catalog {
		at, err := slot.At(date, s.loc)
		if err != nil {
			// Один битый слот не должен ломать взведение остальных.
			s.log.Error().Err(err).Str("slot", slot.Time).Str("date", date).Msg("планировщик: слот не взведён")
			continue
		}
		if !at.After(now) {
			continue
		}
		s.arm(&firing{
			key:    fireKey{UserTGID: user.TGUserID, Date: date, Slot: slot.Time},
			chatID: user.ChatID,
			text:   slot.Text,
			at:     at,
		})
	}
	return nil
}

func (s *Service) arm(f *firing) {
	s.mu.Lock()
	s.gen[f.key]++
	f.gen = s.gen[f.key]
	heap.Push(&s.firings, f)
	metrics.ScheduledFirings.Set(float64(len(s.firings)))
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run крутит таймер до отмены контекста. Куча срабатываний живёт только в
// памяти: после рестарта провижининг взводит её заново, а проверка статуса
// перед отправкой отсекает уже разрешённые слоты.
func (s *Service) Run(ctx context.Context) {
	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		wait := idleWait
		if next, ok := s.nextAt(); ok {
			wait = next.Sub(s.now())
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			s.log.Info().Msg("планировщик остановлен")
			return
		case <-s.wake:
		case <-timer.C:
			for _, f := range s.popDue(s.now()) {
				go s.fire(f)
			}
		}
	}
}

func (s *Service) nextAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.firings) == 0 {
		return time.Time{}, false
	}
	return s.firings[0].at, true
}

// popDue извлекает актуальные срабатывания, чьё время наступило. Устаревшие
// поколения отбрасываются молча.
func (s *Service) popDue(now time.Time) []*firing {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*firing
	for len(s.firings) > 0 && !s.firings[0].at.After(now) {
		f := heap.Pop(&s.firings).(*firing)
		if s.gen[f.key] != f.gen {
			continue
		}
		delete(s.gen, f.key)
		due = append(due, f)
	}
	metrics.ScheduledFirings.Set(float64(len(s.firings)))
	return due
}

// fire проверяет статус слота и ставит напоминание в очередь доставки.
// Статус записи меняет только ответ пользователя, не факт отправки.
func (s *Service) fire(f *firing) {
	status, err := s.logs.GetStatus(f.key.UserTGID, f.key.Slot, f.key.Date)
	if errors.Is(err, domain.ErrLogEntryNotFound) {
		s.log.Debug().Int64("user", f.key.UserTGID).Str("slot", f.key.Slot).Msg("планировщик: записи журнала нет, срабатывание пропущено")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Int64("user", f.key.UserTGID).Str("slot", f.key.Slot).Msg("планировщик: не удалось проверить статус")
		return
	}
	if status != domain.StatusPending {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job := domain.DeliveryJob{
		ID:         uuid.NewString(),
		Kind:       domain.JobKindReminder,
		UserTGID:   f.key.UserTGID,
		ChatID:     f.chatID,
		Slot:       f.key.Slot,
		Date:       f.key.Date,
		Text:       f.text,
		EnqueuedAt: s.now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.log.Error().Err(err).Int64("user", f.key.UserTGID).Str("slot", f.key.Slot).Msg("планировщик: не удалось поставить напоминание в очередь")
		return
	}
	metrics.RemindersEnqueued.Inc()
}
