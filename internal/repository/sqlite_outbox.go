package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cadence/internal/db"
	"cadence/internal/domain"
)

// SQLiteOutboxRepo implements OutboxRepo using a SQLite database.
type SQLiteOutboxRepo struct {
	db db.DBTX
}

// NewSQLiteOutboxRepo creates a new SQLiteOutboxRepo.
func NewSQLiteOutboxRepo(dbtx db.DBTX) *SQLiteOutboxRepo {
	return &SQLiteOutboxRepo{db: dbtx}
}

const outboxColumns = `id, entity_type, entity_id, target_user_id, reminder_type,
	title, body, payload, scheduled_for, status, attempts, last_error, created_at, updated_at`

func (r *SQLiteOutboxRepo) CreateIfAbsent(ctx context.Context, e *domain.OutboxEntry) (bool, error) {
	key := domain.OutboxIdempotencyKey(e.EntityType, e.EntityID, e.TargetUserID, e.ReminderType)
	query := `INSERT INTO outbox (` + outboxColumns + `, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		e.ID,
		string(e.EntityType),
		e.EntityID,
		e.TargetUserID,
		string(e.ReminderType),
		e.Title,
		e.Body,
		marshalJSON(e.Payload, "{}"),
		e.ScheduledFor.UTC().Format(time.RFC3339),
		string(e.Status),
		e.Attempts,
		e.LastError,
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.UpdatedAt.UTC().Format(time.RFC3339),
		key,
	)
	if err != nil {
		return false, fmt.Errorf("inserting outbox entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert result: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteOutboxRepo) GetByID(ctx context.Context, id string) (*domain.OutboxEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+outboxColumns+` FROM outbox WHERE id = ?`, id)
	return scanOutboxEntry(row)
}

func (r *SQLiteOutboxRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxEntry, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox
		WHERE status = 'pending' AND scheduled_for <= ?
		ORDER BY scheduled_for LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, now.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("listing due outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.OutboxEntry
	for rows.Next() {
		e, err := scanOutboxEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outbox entries: %w", err)
	}
	return entries, nil
}

func (r *SQLiteOutboxRepo) Update(ctx context.Context, e *domain.OutboxEntry) error {
	query := `UPDATE outbox SET scheduled_for = ?, status = ?, attempts = ?,
		last_error = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		e.ScheduledFor.UTC().Format(time.RFC3339),
		string(e.Status),
		e.Attempts,
		e.LastError,
		nowUTC(),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating outbox entry: %w", err)
	}
	return nil
}

func scanOutboxEntry(row rowScanner) (*domain.OutboxEntry, error) {
	var e domain.OutboxEntry
	var entityStr, reminderStr, statusStr, payloadStr string
	var scheduledStr, createdStr, updatedStr string

	err := row.Scan(
		&e.ID, &entityStr, &e.EntityID, &e.TargetUserID, &reminderStr,
		&e.Title, &e.Body, &payloadStr, &scheduledStr,
		&statusStr, &e.Attempts, &e.LastError,
		&createdStr, &updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox entry: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning outbox entry: %w", err)
	}

	e.EntityType = domain.EntityType(entityStr)
	e.ReminderType = domain.ReminderType(reminderStr)
	e.Status = domain.OutboxStatus(statusStr)

	if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
		return nil, fmt.Errorf("parsing payload: %w", err)
	}

	var parseErr error
	e.ScheduledFor, parseErr = time.Parse(time.RFC3339, scheduledStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing scheduled_for: %w", parseErr)
	}
	e.CreatedAt, parseErr = time.Parse(time.RFC3339, createdStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	e.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &e, nil
}
