package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent; ALTER
// TABLE duplicates from re-runs are tolerated.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		sender_id       TEXT NOT NULL,
		text            TEXT NOT NULL,
		role            TEXT NOT NULL DEFAULT 'user'
		                CHECK(role IN ('user','assistant','system')),
		metadata        TEXT,
		created_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS events (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		title           TEXT NOT NULL,
		start_at        TEXT NOT NULL,
		end_at          TEXT NOT NULL,
		timezone        TEXT NOT NULL,
		participant_ids TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'pending'
		                CHECK(status IN ('pending','confirmed','declined','cancelled')),
		rsvps           TEXT NOT NULL DEFAULT '{}',
		idempotency_key TEXT NOT NULL UNIQUE,
		has_conflict    INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_conversation
		ON events(conversation_id, start_at)`,
	`CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_at)`,

	`CREATE TABLE IF NOT EXISTS deadlines (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		title           TEXT NOT NULL,
		due_at          TEXT,
		assignee_id     TEXT NOT NULL DEFAULT '',
		task_type       TEXT NOT NULL DEFAULT 'task',
		completed       INTEGER NOT NULL DEFAULT 0,
		idempotency_key TEXT NOT NULL UNIQUE,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deadlines_due ON deadlines(due_at)`,

	`CREATE TABLE IF NOT EXISTS outbox (
		id              TEXT PRIMARY KEY,
		entity_type     TEXT NOT NULL CHECK(entity_type IN ('event','deadline')),
		entity_id       TEXT NOT NULL,
		target_user_id  TEXT NOT NULL,
		reminder_type   TEXT NOT NULL,
		title           TEXT NOT NULL,
		body            TEXT NOT NULL,
		payload         TEXT NOT NULL DEFAULT '{}',
		scheduled_for   TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'pending'
		                CHECK(status IN ('pending','sent','failed')),
		attempts        INTEGER NOT NULL DEFAULT 0,
		last_error      TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT NOT NULL UNIQUE,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_due
		ON outbox(status, scheduled_for)`,

	`CREATE TABLE IF NOT EXISTS failed_operations (
		id         TEXT PRIMARY KEY,
		tool       TEXT NOT NULL,
		params     TEXT NOT NULL,
		error      TEXT NOT NULL,
		attempts   INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_failed_operations_created
		ON failed_operations(created_at)`,
}
