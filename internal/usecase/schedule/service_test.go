package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"habit-reminder-bot/internal/domain"
)

func logKey(tgUserID int64, slot, date string) string {
	return fmt.Sprintf("%d|%s|%s", tgUserID, slot, date)
}

type memLogs struct {
	mu             sync.Mutex
	provisionCalls int
	statuses       map[string]domain.TaskStatus
}

func newMemLogs() *memLogs {
	return &memLogs{statuses: make(map[string]domain.TaskStatus)}
}

func (m *memLogs) EnsureProvisioned(tgUserID int64, date string, slots []domain.TaskSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provisionCalls++
	for _, slot := range slots {
		k := logKey(tgUserID, slot.Time, date)
		if _, ok := m.statuses[k]; !ok {
			m.statuses[k] = domain.StatusPending
		}
	}
	return nil
}

func (m *memLogs) GetStatus(tgUserID int64, slot, date string) (domain.TaskStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[logKey(tgUserID, slot, date)]
	if !ok {
		return "", domain.ErrLogEntryNotFound
	}
	return status, nil
}

func (m *memLogs) ResolveSlot(tgUserID int64, slot, date string, status domain.TaskStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := logKey(tgUserID, slot, date)
	current, ok := m.statuses[k]
	if !ok {
		return false, domain.ErrLogEntryNotFound
	}
	if current != domain.StatusPending {
		return false, nil
	}
	m.statuses[k] = status
	return true, nil
}

func (m *memLogs) ListPending(int64, string) ([]domain.TaskLogEntry, error) { return nil, nil }

func (m *memLogs) CountByStatus(int64, string, domain.TaskStatus) (int, error) { return 0, nil }

func (m *memLogs) CountLogged(int64, string) (int, error) { return 0, nil }

type memQueue struct {
	mu   sync.Mutex
	jobs []domain.DeliveryJob
}

func (q *memQueue) Enqueue(_ context.Context, job domain.DeliveryJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Receive(context.Context) (domain.DeliveryJob, domain.DeliveryAckFunc, error) {
	return domain.DeliveryJob{}, nil, errors.New("не реализовано")
}

func (q *memQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

var testCatalog = domain.Catalog{
	{Time: "09:00", Text: "кофе"},
	{Time: "12:00", Text: "обед"},
	{Time: "18:00", Text: "английский"},
}

func newTestService(logs *memLogs, queue *memQueue, now time.Time) *Service {
	s := NewService(zerolog.Nop(), logs, queue, testCatalog, time.UTC)
	s.now = func() time.Time { return now }
	return s
}

func TestProvisionDaySkipsPastSlots(t *testing.T) {
	logs := newMemLogs()
	queue := &memQueue{}
	now := time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)
	s := newTestService(logs, queue, now)

	user := domain.User{TGUserID: 42, ChatID: 42}
	if err := s.ProvisionDay(user, "2025-03-10"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	// Прошедший слот остаётся в журнале, но не взводится.
	if status, err := logs.GetStatus(42, "09:00", "2025-03-10"); err != nil || status != domain.StatusPending {
		t.Fatalf("ожидали pending-запись для прошедшего слота, получили %s/%v", status, err)
	}

	due := s.popDue(time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC))
	if len(due) != 2 {
		t.Fatalf("ожидали 2 срабатывания, получили %d", len(due))
	}
	if due[0].key.Slot != "12:00" || due[1].key.Slot != "18:00" {
		t.Fatalf("неожиданный порядок срабатываний: %s, %s", due[0].key.Slot, due[1].key.Slot)
	}
}

func TestProvisionDayReplacesFirings(t *testing.T) {
	logs := newMemLogs()
	queue := &memQueue{}
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	s := newTestService(logs, queue, now)

	user := domain.User{TGUserID: 42, ChatID: 42}
	if err := s.ProvisionDay(user, "2025-03-10"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := s.ProvisionDay(user, "2025-03-10"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if logs.provisionCalls != 2 {
		t.Fatalf("ожидали 2 вызова провижининга, получили %d", logs.provisionCalls)
	}

	due := s.popDue(time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC))
	if len(due) != len(testCatalog) {
		t.Fatalf("повторный провижининг задублировал срабатывания: %d", len(due))
	}
}

func TestProvisionDayFutureDateArmsAllSlots(t *testing.T) {
	logs := newMemLogs()
	queue := &memQueue{}
	now := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	s := newTestService(logs, queue, now)

	user := domain.User{TGUserID: 42, ChatID: 42}
	if err := s.ProvisionDay(user, "2025-03-11"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	due := s.popDue(time.Date(2025, 3, 11, 23, 59, 0, 0, time.UTC))
	if len(due) != len(testCatalog) {
		t.Fatalf("ожидали %d срабатываний на завтра, получили %d", len(testCatalog), len(due))
	}
}

func TestFireEnqueuesPendingSlot(t *testing.T) {
	logs := newMemLogs()
	queue := &memQueue{}
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	s := newTestService(logs, queue, now)

	user := domain.User{TGUserID: 42, ChatID: 100}
	if err := s.ProvisionDay(user, "2025-03-10"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	due := s.popDue(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	if len(due) != 1 {
		t.Fatalf("ожидали одно срабатывание, получили %d", len(due))
	}
	s.fire(due[0])

	if queue.len() != 1 {
		t.Fatalf("ожидали одну задачу в очереди, получили %d", queue.len())
	}
	job := queue.jobs[0]
	if job.Kind != domain.JobKindReminder || job.Slot != "09:00" || job.ChatID != 100 || job.Text != "кофе" {
		t.Fatalf("неожиданная задача доставки: %+v", job)
	}
	if job.ID == "" {
		t.Fatal("ожидали непустой идентификатор задачи")
	}
}

func TestFireSkipsResolvedSlot(t *testing.T) {
	logs := newMemLogs()
	queue := &memQueue{}
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	s := newTestService(logs, queue, now)

	user := domain.User{TGUserID: 42, ChatID: 100}
	if err := s.ProvisionDay(user, "2025-03-10"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := logs.ResolveSlot(42, "09:00", "2025-03-10", domain.StatusDone); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	for _, f := range s.popDue(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)) {
		s.fire(f)
	}
	if queue.len() != 0 {
		t.Fatalf("разрешённый слот не должен напоминаться, в очереди %d задач", queue.len())
	}
}

func TestFireSkipsMissingEntry(t *testing.T) {
	logs := newMemLogs()
	queue := &memQueue{}
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	s := newTestService(logs, queue, now)

	s.arm(&firing{
		key:    fireKey{UserTGID: 7, Date: "2025-03-10", Slot: "09:00"},
		chatID: 7,
		text:   "кофе",
		at:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	})
	for _, f := range s.popDue(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)) {
		s.fire(f)
	}
	if queue.len() != 0 {
		t.Fatalf("срабатывание без записи журнала не должно напоминаться, в очереди %d задач", queue.len())
	}
}
