package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		tg_user_id BIGINT PRIMARY KEY,
		chat_id    BIGINT NOT NULL,
		xp         BIGINT NOT NULL DEFAULT 0 CHECK (xp >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS task_log (
		user_id     BIGINT NOT NULL REFERENCES users (tg_user_id),
		slot_time   TEXT NOT NULL,
		date        DATE NOT NULL,
		status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'done', 'skipped')),
		task_text   TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		resolved_at TIMESTAMPTZ,
		PRIMARY KEY (user_id, slot_time, date)
	)`,
	`CREATE INDEX IF NOT EXISTS task_log_date_status_idx ON task_log (user_id, date, status)`,
}

// Migrate создаёт схему при старте процесса.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("миграция схемы: %w", err)
		}
	}
	return nil
}
