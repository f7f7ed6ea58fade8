package bot

import (
	"testing"

	"habit-reminder-bot/internal/domain"
)

func TestParseCallback(t *testing.T) {
	status, slot, err := ParseCallback("done|09:05")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status != domain.StatusDone || slot != "09:05" {
		t.Fatalf("ожидали done/09:05, получили %s/%s", status, slot)
	}

	status, slot, err = ParseCallback("skip|22:30")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status != domain.StatusSkipped || slot != "22:30" {
		t.Fatalf("ожидали skipped/22:30, получили %s/%s", status, slot)
	}
}

func TestParseCallbackRejectsBadData(t *testing.T) {
	cases := []string{
		"",
		"done",
		"done|",
		"done|9:05",
		"undo|09:05",
		"09:05|done",
	}
	for _, data := range cases {
		if _, _, err := ParseCallback(data); err == nil {
			t.Fatalf("ожидали ошибку для %q", data)
		}
	}
}

func TestCallbackDataRoundTrip(t *testing.T) {
	data := CallbackData(actionSkip, "14:00")
	status, slot, err := ParseCallback(data)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status != domain.StatusSkipped || slot != "14:00" {
		t.Fatalf("данные кнопки не совпали: %s/%s", status, slot)
	}
}
