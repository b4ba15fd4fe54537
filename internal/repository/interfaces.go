package repository

import (
	"context"
	"time"

	"cadence/internal/domain"
)

// EventRepo persists scheduled events. CreateIfAbsent is the idempotency
// primitive: it inserts only when no event with the same idempotency key
// exists and reports whether the insert happened.
type EventRepo interface {
	CreateIfAbsent(ctx context.Context, e *domain.Event) (created bool, existing *domain.Event, err error)
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	GetByKey(ctx context.Context, idempotencyKey string) (*domain.Event, error)
	ListUpcomingByConversation(ctx context.Context, conversationID string, from time.Time, limit int) ([]*domain.Event, error)
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]*domain.Event, error)
	ListOverlapping(ctx context.Context, participantID string, from, to time.Time) ([]*domain.Event, error)
	Update(ctx context.Context, e *domain.Event) error
}

type DeadlineRepo interface {
	CreateIfAbsent(ctx context.Context, d *domain.Deadline) (created bool, existing *domain.Deadline, err error)
	GetByID(ctx context.Context, id string) (*domain.Deadline, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Deadline, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*domain.Deadline, error)
	Update(ctx context.Context, d *domain.Deadline) error
}

type OutboxRepo interface {
	CreateIfAbsent(ctx context.Context, e *domain.OutboxEntry) (created bool, err error)
	GetByID(ctx context.Context, id string) (*domain.OutboxEntry, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxEntry, error)
	Update(ctx context.Context, e *domain.OutboxEntry) error
}

type FailedOpRepo interface {
	Append(ctx context.Context, op *domain.FailedOperation) error
	ListRecent(ctx context.Context, limit int) ([]*domain.FailedOperation, error)
}

type MessageRepo interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error)
	// ExistsReferencing reports whether any message in the conversation
	// references entityID in its metadata. Used to deduplicate
	// confirmation messages.
	ExistsReferencing(ctx context.Context, conversationID, entityID string) (bool, error)
}
