package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cadence/internal/db"
	"cadence/internal/domain"
)

// SQLiteDeadlineRepo implements DeadlineRepo using a SQLite database.
type SQLiteDeadlineRepo struct {
	db db.DBTX
}

// NewSQLiteDeadlineRepo creates a new SQLiteDeadlineRepo.
func NewSQLiteDeadlineRepo(dbtx db.DBTX) *SQLiteDeadlineRepo {
	return &SQLiteDeadlineRepo{db: dbtx}
}

const deadlineColumns = `id, conversation_id, title, due_at, assignee_id,
	task_type, completed, idempotency_key, created_at, updated_at`

func (r *SQLiteDeadlineRepo) CreateIfAbsent(ctx context.Context, d *domain.Deadline) (bool, *domain.Deadline, error) {
	query := `INSERT INTO deadlines (` + deadlineColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.ConversationID,
		d.Title,
		nullableTimeToString(d.DueAt, time.RFC3339),
		d.AssigneeID,
		d.TaskType,
		boolToInt(d.Completed),
		d.IdempotencyKey,
		d.CreatedAt.UTC().Format(time.RFC3339),
		d.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, nil, fmt.Errorf("inserting deadline: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("checking insert result: %w", err)
	}
	if n > 0 {
		return true, d, nil
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines WHERE idempotency_key = ?`,
		d.IdempotencyKey)
	existing, err := scanDeadline(row)
	if err != nil {
		return false, nil, fmt.Errorf("loading existing deadline: %w", err)
	}
	return false, existing, nil
}

func (r *SQLiteDeadlineRepo) GetByID(ctx context.Context, id string) (*domain.Deadline, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines WHERE id = ?`, id)
	return scanDeadline(row)
}

func (r *SQLiteDeadlineRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Deadline, error) {
	query := `SELECT ` + deadlineColumns + ` FROM deadlines
		WHERE due_at IS NOT NULL AND due_at >= ? AND due_at < ? AND completed = 0
		ORDER BY due_at`
	rows, err := r.db.QueryContext(ctx, query,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("listing due deadlines: %w", err)
	}
	defer rows.Close()
	return collectDeadlines(rows)
}

func (r *SQLiteDeadlineRepo) ListOverdue(ctx context.Context, now time.Time) ([]*domain.Deadline, error) {
	query := `SELECT ` + deadlineColumns + ` FROM deadlines
		WHERE due_at IS NOT NULL AND due_at < ? AND completed = 0
		ORDER BY due_at`
	rows, err := r.db.QueryContext(ctx, query, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("listing overdue deadlines: %w", err)
	}
	defer rows.Close()
	return collectDeadlines(rows)
}

func (r *SQLiteDeadlineRepo) Update(ctx context.Context, d *domain.Deadline) error {
	query := `UPDATE deadlines SET title = ?, due_at = ?, assignee_id = ?,
		task_type = ?, completed = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		d.Title,
		nullableTimeToString(d.DueAt, time.RFC3339),
		d.AssigneeID,
		d.TaskType,
		boolToInt(d.Completed),
		nowUTC(),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating deadline: %w", err)
	}
	return nil
}

func scanDeadline(row rowScanner) (*domain.Deadline, error) {
	var d domain.Deadline
	var dueStr sql.NullString
	var createdStr, updatedStr string
	var completed int

	err := row.Scan(
		&d.ID, &d.ConversationID, &d.Title, &dueStr,
		&d.AssigneeID, &d.TaskType, &completed,
		&d.IdempotencyKey, &createdStr, &updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deadline: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning deadline: %w", err)
	}

	d.Completed = intToBool(completed)
	d.DueAt = parseNullableTime(dueStr, time.RFC3339)

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &d, nil
}

func collectDeadlines(rows *sql.Rows) ([]*domain.Deadline, error) {
	var deadlines []*domain.Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, err
		}
		deadlines = append(deadlines, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deadlines: %w", err)
	}
	return deadlines, nil
}
