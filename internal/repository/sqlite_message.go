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

// SQLiteMessageRepo implements MessageRepo using a SQLite database.
type SQLiteMessageRepo struct {
	db db.DBTX
}

// NewSQLiteMessageRepo creates a new SQLiteMessageRepo.
func NewSQLiteMessageRepo(dbtx db.DBTX) *SQLiteMessageRepo {
	return &SQLiteMessageRepo{db: dbtx}
}

const messageColumns = `id, conversation_id, sender_id, text, role, metadata, created_at`

func (r *SQLiteMessageRepo) Create(ctx context.Context, m *domain.Message) error {
	query := `INSERT INTO messages (` + messageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.ConversationID,
		m.SenderID,
		m.Text,
		m.Role,
		marshalJSON(m.Metadata, "{}"),
		m.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

func (r *SQLiteMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

func (r *SQLiteMessageRepo) ListByConversation(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE conversation_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}

func (r *SQLiteMessageRepo) ExistsReferencing(ctx context.Context, conversationID, entityID string) (bool, error) {
	// Metadata is a small JSON object; the entity reference check matches
	// the stored key/value pair textually.
	query := `SELECT COUNT(*) FROM messages
		WHERE conversation_id = ? AND metadata LIKE ?`
	var count int
	pattern := fmt.Sprintf(`%%"entity_id":"%s"%%`, entityID)
	if err := r.db.QueryRowContext(ctx, query, conversationID, pattern).Scan(&count); err != nil {
		return false, fmt.Errorf("checking entity references: %w", err)
	}
	return count > 0, nil
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var m domain.Message
	var metadataStr sql.NullString
	var createdStr string

	err := row.Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.Role,
		&metadataStr, &createdStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	if metadataStr.Valid && metadataStr.String != "" {
		if err := json.Unmarshal([]byte(metadataStr.String), &m.Metadata); err != nil {
			return nil, fmt.Errorf("parsing metadata: %w", err)
		}
	}

	var parseErr error
	m.CreatedAt, parseErr = time.Parse(time.RFC3339, createdStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}

	return &m, nil
}
