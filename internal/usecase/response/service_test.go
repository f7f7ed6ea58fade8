package response

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"habit-reminder-bot/internal/domain"
)

type stubUsers struct {
	xp map[int64]int64
}

func (s *stubUsers) UpsertByTGID(tgUserID, chatID int64) (domain.User, bool, error) {
	return domain.User{TGUserID: tgUserID, ChatID: chatID}, false, nil
}

func (s *stubUsers) GetByTGID(tgUserID int64) (domain.User, error) {
	return domain.User{TGUserID: tgUserID, XP: s.xp[tgUserID]}, nil
}

func (s *stubUsers) ListUsers() ([]domain.User, error) { return nil, nil }

func (s *stubUsers) AddExperience(tgUserID int64, amount int64) error {
	s.xp[tgUserID] += amount
	return nil
}

type stubLogs struct {
	statuses map[string]domain.TaskStatus
}

func entryKey(tgUserID int64, slot, date string) string {
	return fmt.Sprintf("%d|%s|%s", tgUserID, slot, date)
}

func (s *stubLogs) EnsureProvisioned(int64, string, []domain.TaskSlot) error { return nil }

func (s *stubLogs) GetStatus(tgUserID int64, slot, date string) (domain.TaskStatus, error) {
	status, ok := s.statuses[entryKey(tgUserID, slot, date)]
	if !ok {
		return "", domain.ErrLogEntryNotFound
	}
	return status, nil
}

func (s *stubLogs) ResolveSlot(tgUserID int64, slot, date string, status domain.TaskStatus) (bool, error) {
	k := entryKey(tgUserID, slot, date)
	current, ok := s.statuses[k]
	if !ok {
		return false, domain.ErrLogEntryNotFound
	}
	if current != domain.StatusPending {
		return false, nil
	}
	s.statuses[k] = status
	return true, nil
}

func (s *stubLogs) ListPending(int64, string) ([]domain.TaskLogEntry, error) { return nil, nil }

func (s *stubLogs) CountByStatus(int64, string, domain.TaskStatus) (int, error) { return 0, nil }

func (s *stubLogs) CountLogged(int64, string) (int, error) { return 0, nil }

func newTestService(users *stubUsers, logs *stubLogs) *Service {
	s := NewService(zerolog.Nop(), users, logs, time.UTC, 10)
	s.now = func() time.Time { return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) }
	return s
}

func TestResolveAwardsExperienceOnce(t *testing.T) {
	users := &stubUsers{xp: make(map[int64]int64)}
	logs := &stubLogs{statuses: map[string]domain.TaskStatus{
		entryKey(42, "09:00", "2025-03-10"): domain.StatusPending,
	}}
	s := newTestService(users, logs)

	outcome, err := s.Resolve(context.Background(), 42, domain.StatusDone, "09:00")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if outcome != OutcomeRecorded {
		t.Fatalf("ожидали recorded, получили %s", outcome)
	}
	if users.xp[42] != 10 {
		t.Fatalf("ожидали 10 XP, получили %d", users.xp[42])
	}

	// Повторное нажатие не переписывает статус и не начисляет награду.
	for i := 0; i < 3; i++ {
		outcome, err = s.Resolve(context.Background(), 42, domain.StatusDone, "09:00")
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if outcome != OutcomeAlreadyResolved {
			t.Fatalf("ожидали already_resolved, получили %s", outcome)
		}
	}
	if users.xp[42] != 10 {
		t.Fatalf("дубликаты начислили лишний XP: %d", users.xp[42])
	}
}

func TestResolveSkipWithoutReward(t *testing.T) {
	users := &stubUsers{xp: make(map[int64]int64)}
	logs := &stubLogs{statuses: map[string]domain.TaskStatus{
		entryKey(42, "12:00", "2025-03-10"): domain.StatusPending,
	}}
	s := newTestService(users, logs)

	outcome, err := s.Resolve(context.Background(), 42, domain.StatusSkipped, "12:00")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if outcome != OutcomeRecorded {
		t.Fatalf("ожидали recorded, получили %s", outcome)
	}
	if users.xp[42] != 0 {
		t.Fatalf("пропуск не должен начислять XP, получили %d", users.xp[42])
	}
	if logs.statuses[entryKey(42, "12:00", "2025-03-10")] != domain.StatusSkipped {
		t.Fatal("статус не записался")
	}
}

func TestResolveUnknownSlot(t *testing.T) {
	users := &stubUsers{xp: make(map[int64]int64)}
	logs := &stubLogs{statuses: make(map[string]domain.TaskStatus)}
	s := newTestService(users, logs)

	outcome, err := s.Resolve(context.Background(), 42, domain.StatusDone, "07:00")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if outcome != OutcomeNotFound {
		t.Fatalf("ожидали not_found, получили %s", outcome)
	}
	if users.xp[42] != 0 {
		t.Fatalf("не найденный слот не должен начислять XP, получили %d", users.xp[42])
	}
}

func TestResolveRejectsNonTerminalStatus(t *testing.T) {
	users := &stubUsers{xp: make(map[int64]int64)}
	logs := &stubLogs{statuses: make(map[string]domain.TaskStatus)}
	s := newTestService(users, logs)

	if _, err := s.Resolve(context.Background(), 42, domain.StatusPending, "09:00"); err == nil {
		t.Fatal("ожидали ошибку для неконечного статуса")
	}
}
