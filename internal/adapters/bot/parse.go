package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"habit-reminder-bot/internal/domain"
)

// Формат callback-данных кнопок напоминания: "done|09:05" и "skip|09:05".
const (
	actionDone = "done"
	actionSkip = "skip"
)

// ErrBadCallback возвращается при нераспознанных callback-данных.
var ErrBadCallback = errors.New("некорректные callback-данные")

// ParseCallback разбирает callback-данные кнопки в статус и время слота.
func ParseCallback(data string) (domain.TaskStatus, string, error) {
	action, slot, ok := strings.Cut(strings.TrimSpace(data), "|")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrBadCallback, data)
	}
	if _, err := time.Parse(domain.SlotLayout, slot); err != nil {
		return "", "", fmt.Errorf("%w: время слота %q", ErrBadCallback, slot)
	}
	switch action {
	case actionDone:
		return domain.StatusDone, slot, nil
	case actionSkip:
		return domain.StatusSkipped, slot, nil
	default:
		return "", "", fmt.Errorf("%w: действие %q", ErrBadCallback, action)
	}
}

// CallbackData собирает callback-данные для кнопки ответа.
func CallbackData(action, slot string) string {
	return action + "|" + slot
}
