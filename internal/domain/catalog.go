package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyCatalog возвращается, если каталог не содержит ни одной задачи.
var ErrEmptyCatalog = errors.New("каталог задач пуст")

// Catalog — упорядоченный неизменяемый список задач дня, общий для всех
// пользователей. Формируется один раз на старте процесса.
type Catalog []TaskSlot

// DefaultCatalog возвращает встроенный распорядок дня.
func DefaultCatalog() Catalog {
	return Catalog{
		{Time: "09:05", Text: "Ты проснулся? Иди в туалет, пей воду и кофе."},
		{Time: "09:30", Text: "Дыхательная практика."},
		{Time: "09:45", Text: "Освежающий душ."},
		{Time: "10:15", Text: "Готовь завтрак."},
		{Time: "11:00", Text: "Начинаем работу в программировании."},
		{Time: "13:00", Text: "Перерыв, кушаем или готовим."},
		{Time: "14:00", Text: "Продолжаем программировать."},
		{Time: "16:00", Text: "Смотрим дела по другим задачам."},
		{Time: "18:00", Text: "Учим английский."},
		{Time: "20:00", Text: "Проверяем квартиру, еду, кошачий лоток."},
		{Time: "22:30", Text: "Можно YouTube, кино или игры 🎮"},
	}
}

// ParseCatalog разбирает строку вида "09:05=текст;10:15=текст".
// Пустая строка означает отсутствие переопределения.
func ParseCatalog(raw string) (Catalog, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrEmptyCatalog
	}
	var catalog Catalog
	for _, part := range strings.Split(trimmed, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		slotTime, text, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("позиция каталога %q: ожидался формат HH:MM=текст", part)
		}
		catalog = append(catalog, TaskSlot{
			Time: strings.TrimSpace(slotTime),
			Text: strings.TrimSpace(text),
		})
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Validate проверяет формат времени, возрастание слотов и непустые тексты.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return ErrEmptyCatalog
	}
	for i, slot := range c {
		if _, err := time.Parse(SlotLayout, slot.Time); err != nil {
			return fmt.Errorf("слот %q: некорректное время: %w", slot.Time, err)
		}
		if slot.Text == "" {
			return fmt.Errorf("слот %q: пустой текст задачи", slot.Time)
		}
		// Зависит от нулевого паддинга HH:MM: лексикографический порядок
		// совпадает с хронологическим.
		if i > 0 && c[i-1].Time >= slot.Time {
			return fmt.Errorf("слот %q: время должно строго возрастать", slot.Time)
		}
	}
	return nil
}

// Find возвращает слот каталога по времени дня.
func (c Catalog) Find(slotTime string) (TaskSlot, bool) {
	for _, slot := range c {
		if slot.Time == slotTime {
			return slot, true
		}
	}
	return TaskSlot{}, false
}
