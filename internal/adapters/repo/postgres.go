package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"habit-reminder-bot/internal/domain"
	"habit-reminder-bot/internal/infra/metrics"
)

// Postgres реализует domain.UserRepo и domain.TaskLogRepo на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UserRepo    = (*Postgres)(nil)
	_ domain.TaskLogRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// UpsertByTGID создаёт пользователя при первом обращении.
func (p *Postgres) UpsertByTGID(tgUserID, chatID int64) (domain.User, bool, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var (
		user    domain.User
		created bool
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO users (tg_user_id, chat_id)
VALUES ($1, $2)
ON CONFLICT (tg_user_id) DO UPDATE SET chat_id = EXCLUDED.chat_id, updated_at = now()
RETURNING tg_user_id, chat_id, xp, created_at, updated_at, (xmax = 0) AS inserted
`, tgUserID, chatID).Scan(&user.TGUserID, &user.ChatID, &user.XP, &user.CreatedAt, &user.UpdatedAt, &created)
	metrics.ObserveNetworkRequest("postgres", "users_upsert", "users", start, err)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, created, nil
}

// GetByTGID возвращает пользователя по Telegram ID.
func (p *Postgres) GetByTGID(tgUserID int64) (domain.User, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var user domain.User
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT tg_user_id, chat_id, xp, created_at, updated_at
FROM users WHERE tg_user_id = $1
`, tgUserID).Scan(&user.TGUserID, &user.ChatID, &user.XP, &user.CreatedAt, &user.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_get", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ListUsers возвращает всех зарегистрированных пользователей.
func (p *Postgres) ListUsers() ([]domain.User, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT tg_user_id, chat_id, xp, created_at, updated_at
FROM users ORDER BY tg_user_id
`)
	metrics.ObserveNetworkRequest("postgres", "users_list", "users", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.TGUserID, &user.ChatID, &user.XP, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// AddExperience атомарно увеличивает XP пользователя.
func (p *Postgres) AddExperience(tgUserID int64, amount int64) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE users SET xp = xp + $2, updated_at = now() WHERE tg_user_id = $1
`, tgUserID, amount)
	metrics.ObserveNetworkRequest("postgres", "users_add_xp", "users", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureProvisioned идемпотентно создаёт pending-записи журнала на дату.
// Существующие записи не перезаписываются независимо от их статуса.
func (p *Postgres) EnsureProvisioned(tgUserID int64, date string, slots []domain.TaskSlot) error {
	if len(slots) == 0 {
		return nil
	}
	ctx, cancel := p.connCtx()
	defer cancel()

	batch := &pgx.Batch{}
	for _, slot := range slots {
		batch.Queue(`
INSERT INTO task_log (user_id, slot_time, date, status, task_text)
VALUES ($1, $2, $3::date, 'pending', $4)
ON CONFLICT (user_id, slot_time, date) DO NOTHING
`, tgUserID, slot.Time, date, slot.Text)
	}

	start := time.Now()
	err := p.pool.SendBatch(ctx, batch).Close()
	metrics.ObserveNetworkRequest("postgres", "task_log_provision", "task_log", start, err)
	return err
}

// GetStatus возвращает статус записи журнала.
func (p *Postgres) GetStatus(tgUserID int64, slot, date string) (domain.TaskStatus, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var status domain.TaskStatus
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT status FROM task_log WHERE user_id = $1 AND slot_time = $2 AND date = $3::date
`, tgUserID, slot, date).Scan(&status)
	metrics.ObserveNetworkRequest("postgres", "task_log_status", "task_log", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrLogEntryNotFound
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// ResolveSlot переводит запись из pending в конечный статус. Условный UPDATE
// сериализует конкурирующие ответы: выигрывает ровно один, остальные получают
// resolved=false.
func (p *Postgres) ResolveSlot(tgUserID int64, slot, date string, status domain.TaskStatus) (bool, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE task_log SET status = $4, resolved_at = now()
WHERE user_id = $1 AND slot_time = $2 AND date = $3::date AND status = 'pending'
`, tgUserID, slot, date, status)
	metrics.ObserveNetworkRequest("postgres", "task_log_resolve", "task_log", start, err)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Запись либо уже разрешена, либо отсутствует.
	if _, err := p.GetStatus(tgUserID, slot, date); err != nil {
		return false, err
	}
	return false, nil
}

// ListPending возвращает неразрешённые слоты на дату по возрастанию времени.
func (p *Postgres) ListPending(tgUserID int64, date string) ([]domain.TaskLogEntry, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT user_id, slot_time, to_char(date, 'YYYY-MM-DD'), status, task_text, created_at, resolved_at
FROM task_log
WHERE user_id = $1 AND date = $2::date AND status = 'pending'
ORDER BY slot_time
`, tgUserID, date)
	metrics.ObserveNetworkRequest("postgres", "task_log_pending", "task_log", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TaskLogEntry
	for rows.Next() {
		var entry domain.TaskLogEntry
		if err := rows.Scan(&entry.UserTGID, &entry.Slot, &entry.Date, &entry.Status, &entry.Text, &entry.CreatedAt, &entry.ResolvedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountByStatus возвращает количество записей с указанным статусом.
func (p *Postgres) CountByStatus(tgUserID int64, date string, status domain.TaskStatus) (int, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var count int
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT count(*) FROM task_log WHERE user_id = $1 AND date = $2::date AND status = $3
`, tgUserID, date, status).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "task_log_count", "task_log", start, err)
	return count, err
}

// CountLogged возвращает количество всех записей журнала на дату.
func (p *Postgres) CountLogged(tgUserID int64, date string) (int, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var count int
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT count(*) FROM task_log WHERE user_id = $1 AND date = $2::date
`, tgUserID, date).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "task_log_count", "task_log", start, err)
	return count, err
}
