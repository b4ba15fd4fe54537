package testutil

import (
	"time"

	"github.com/google/uuid"

	"cadence/internal/domain"
)

// NewEvent builds a pending event fixture with sane defaults.
func NewEvent(conversationID, title string, start time.Time, participants ...string) *domain.Event {
	now := time.Now().UTC()
	if len(participants) == 0 {
		participants = []string{"user-1"}
	}
	return &domain.Event{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Title:          title,
		Start:          start,
		End:            start.Add(time.Hour),
		Timezone:       "UTC",
		ParticipantIDs: participants,
		Status:         domain.EventPending,
		RSVPs:          map[string]domain.RSVPEntry{},
		IdempotencyKey: domain.EventIdempotencyKey(conversationID, title, start),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewDeadline builds a deadline fixture.
func NewDeadline(conversationID, title string, dueAt *time.Time) *domain.Deadline {
	now := time.Now().UTC()
	return &domain.Deadline{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Title:          title,
		DueAt:          dueAt,
		AssigneeID:     "user-1",
		TaskType:       "homework",
		IdempotencyKey: domain.DeadlineIdempotencyKey(conversationID, title, dueAt),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewOutboxEntry builds a pending outbox entry fixture.
func NewOutboxEntry(entityType domain.EntityType, entityID, targetUserID string, reminderType domain.ReminderType, scheduledFor time.Time) *domain.OutboxEntry {
	now := time.Now().UTC()
	return &domain.OutboxEntry{
		ID:           uuid.NewString(),
		EntityType:   entityType,
		EntityID:     entityID,
		TargetUserID: targetUserID,
		ReminderType: reminderType,
		Title:        "Reminder",
		Body:         "Upcoming item",
		Payload:      map[string]string{"entity_id": entityID},
		ScheduledFor: scheduledFor,
		Status:       domain.OutboxPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
