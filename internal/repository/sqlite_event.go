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

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteEventRepo implements EventRepo using a SQLite database.
type SQLiteEventRepo struct {
	db db.DBTX
}

// NewSQLiteEventRepo creates a new SQLiteEventRepo.
func NewSQLiteEventRepo(dbtx db.DBTX) *SQLiteEventRepo {
	return &SQLiteEventRepo{db: dbtx}
}

const eventColumns = `id, conversation_id, title, start_at, end_at, timezone,
	participant_ids, status, rsvps, idempotency_key, has_conflict, created_at, updated_at`

func (r *SQLiteEventRepo) CreateIfAbsent(ctx context.Context, e *domain.Event) (bool, *domain.Event, error) {
	query := `INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.ConversationID,
		e.Title,
		e.Start.UTC().Format(time.RFC3339),
		e.End.UTC().Format(time.RFC3339),
		e.Timezone,
		joinIDs(e.ParticipantIDs),
		string(e.Status),
		marshalJSON(e.RSVPs, "{}"),
		e.IdempotencyKey,
		boolToInt(e.HasConflict),
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, nil, fmt.Errorf("inserting event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("checking insert result: %w", err)
	}
	if n > 0 {
		return true, e, nil
	}
	existing, err := r.GetByKey(ctx, e.IdempotencyKey)
	if err != nil {
		return false, nil, fmt.Errorf("loading existing event: %w", err)
	}
	return false, existing, nil
}

func (r *SQLiteEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

func (r *SQLiteEventRepo) GetByKey(ctx context.Context, key string) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE idempotency_key = ?`, key)
	return scanEvent(row)
}

func (r *SQLiteEventRepo) ListUpcomingByConversation(ctx context.Context, conversationID string, from time.Time, limit int) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE conversation_id = ? AND start_at >= ? AND status != 'cancelled'
		ORDER BY start_at LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query,
		conversationID, from.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("listing upcoming events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *SQLiteEventRepo) ListStartingBetween(ctx context.Context, from, to time.Time) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE start_at >= ? AND start_at < ? AND status != 'cancelled'
		ORDER BY start_at`
	rows, err := r.db.QueryContext(ctx, query,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("listing events by window: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *SQLiteEventRepo) ListOverlapping(ctx context.Context, participantID string, from, to time.Time) ([]*domain.Event, error) {
	// Half-open interval overlap on the time columns; participant match on
	// the comma-joined id list is widened here and narrowed in Go.
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE start_at < ? AND end_at > ? AND status != 'cancelled'
		  AND (',' || participant_ids || ',') LIKE ?
		ORDER BY start_at`
	rows, err := r.db.QueryContext(ctx, query,
		to.UTC().Format(time.RFC3339), from.UTC().Format(time.RFC3339),
		"%,"+participantID+",%")
	if err != nil {
		return nil, fmt.Errorf("listing overlapping events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *SQLiteEventRepo) Update(ctx context.Context, e *domain.Event) error {
	query := `UPDATE events SET title = ?, start_at = ?, end_at = ?, timezone = ?,
		participant_ids = ?, status = ?, rsvps = ?, has_conflict = ?, updated_at = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		e.Title,
		e.Start.UTC().Format(time.RFC3339),
		e.End.UTC().Format(time.RFC3339),
		e.Timezone,
		joinIDs(e.ParticipantIDs),
		string(e.Status),
		marshalJSON(e.RSVPs, "{}"),
		boolToInt(e.HasConflict),
		nowUTC(),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var startStr, endStr, participantsStr, statusStr, rsvpsStr string
	var createdStr, updatedStr string
	var hasConflict int

	err := row.Scan(
		&e.ID, &e.ConversationID, &e.Title,
		&startStr, &endStr, &e.Timezone,
		&participantsStr, &statusStr, &rsvpsStr,
		&e.IdempotencyKey, &hasConflict,
		&createdStr, &updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	e.Status = domain.EventStatus(statusStr)
	e.ParticipantIDs = splitIDs(participantsStr)
	e.HasConflict = intToBool(hasConflict)

	if err := json.Unmarshal([]byte(rsvpsStr), &e.RSVPs); err != nil {
		return nil, fmt.Errorf("parsing rsvps: %w", err)
	}

	var parseErr error
	e.Start, parseErr = time.Parse(time.RFC3339, startStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing start_at: %w", parseErr)
	}
	e.End, parseErr = time.Parse(time.RFC3339, endStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing end_at: %w", parseErr)
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

func collectEvents(rows *sql.Rows) ([]*domain.Event, error) {
	var events []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}
