package schedule

import "time"

// fireKey однозначно идентифицирует срабатывание напоминания.
type fireKey struct {
	UserTGID int64
	Date     string
	Slot     string
}

// firing — взведённое срабатывание в куче. Поколение позволяет заменять
// срабатывание при повторном провижининге: устаревшие записи отбрасываются
// при извлечении.
type firing struct {
	key    fireKey
	chatID int64
	text   string
	at     time.Time
	gen    uint64
}

// fireHeap — min-куча срабатываний по моменту времени.
type fireHeap []*firing

func (h fireHeap) Len() int            { return len(h) }
func (h fireHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h fireHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *fireHeap) Push(x interface{}) { *h = append(*h, x.(*firing)) }

func (h *fireHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
