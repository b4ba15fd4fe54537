package repository

import (
	"context"
	"fmt"
	"time"

	"cadence/internal/db"
	"cadence/internal/domain"
)

// SQLiteFailedOpRepo implements FailedOpRepo using a SQLite database.
// The table is append-only; there is no update or delete path.
type SQLiteFailedOpRepo struct {
	db db.DBTX
}

// NewSQLiteFailedOpRepo creates a new SQLiteFailedOpRepo.
func NewSQLiteFailedOpRepo(dbtx db.DBTX) *SQLiteFailedOpRepo {
	return &SQLiteFailedOpRepo{db: dbtx}
}

func (r *SQLiteFailedOpRepo) Append(ctx context.Context, op *domain.FailedOperation) error {
	query := `INSERT INTO failed_operations (id, tool, params, error, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		op.ID, op.Tool, op.Params, op.Error, op.Attempts,
		op.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting failed operation: %w", err)
	}
	return nil
}

func (r *SQLiteFailedOpRepo) ListRecent(ctx context.Context, limit int) ([]*domain.FailedOperation, error) {
	query := `SELECT id, tool, params, error, attempts, created_at
		FROM failed_operations ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing failed operations: %w", err)
	}
	defer rows.Close()

	var ops []*domain.FailedOperation
	for rows.Next() {
		var op domain.FailedOperation
		var createdStr string
		if err := rows.Scan(&op.ID, &op.Tool, &op.Params, &op.Error, &op.Attempts, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning failed operation: %w", err)
		}
		op.CreatedAt, err = time.Parse(time.RFC3339, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failed operations: %w", err)
	}
	return ops, nil
}
