package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cadence/internal/domain"
)

type createTaskParams struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	DueDate        string `json:"due_date,omitempty"`
	AssigneeID     string `json:"assignee_id,omitempty"`
	TaskType       string `json:"task_type,omitempty"`
}

func (e *Executor) handleCreateTask(ctx context.Context, params json.RawMessage) (map[string]any, error) {
	var p createTaskParams
	if terr := decode(params, &p); terr != nil {
		return nil, terr
	}
	if p.ConversationID == "" || strings.TrimSpace(p.Title) == "" {
		return nil, validationErr(CodeValidation, "conversation_id and title are required")
	}
	due, terr := parseOptionalDate(p.DueDate, "due_date")
	if terr != nil {
		return nil, terr
	}

	now := e.now()
	deadline := &domain.Deadline{
		ID:             uuid.NewString(),
		ConversationID: p.ConversationID,
		Title:          strings.TrimSpace(p.Title),
		DueAt:          due,
		AssigneeID:     p.AssigneeID,
		TaskType:       p.TaskType,
		IdempotencyKey: domain.DeadlineIdempotencyKey(p.ConversationID, p.Title, due),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, existing, err := e.deadlines.CreateIfAbsent(ctx, deadline)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	if !created {
		deadline = existing
	}
	return map[string]any{
		"task_id":     deadline.ID,
		"was_deduped": !created,
	}, nil
}

type scheduleReminderParams struct {
	EntityType   string            `json:"entity_type"`
	EntityID     string            `json:"entity_id"`
	TargetUserID string            `json:"target_user_id"`
	ReminderType string            `json:"reminder_type"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	ScheduledFor string            `json:"scheduled_for"`
	Payload      map[string]string `json:"payload,omitempty"`
}

func (e *Executor) handleScheduleReminder(ctx context.Context, params json.RawMessage) (map[string]any, error) {
	var p scheduleReminderParams
	if terr := decode(params, &p); terr != nil {
		return nil, terr
	}
	entityType := domain.EntityType(p.EntityType)
	if entityType != domain.EntityEvent && entityType != domain.EntityDeadline {
		return nil, validationErr(CodeValidation, "entity_type must be event or deadline, got %q", p.EntityType)
	}
	reminderType := domain.ReminderType(p.ReminderType)
	switch reminderType {
	case domain.ReminderEvent24h, domain.ReminderEvent2h, domain.ReminderDeadlineToday, domain.ReminderDeadlineOverdue:
	default:
		return nil, validationErr(CodeValidation, "unknown reminder_type %q", p.ReminderType)
	}
	if p.EntityID == "" || p.TargetUserID == "" {
		return nil, validationErr(CodeValidation, "entity_id and target_user_id are required")
	}
	scheduledFor, terr := parseUTCInstant(p.ScheduledFor, "scheduled_for")
	if terr != nil {
		return nil, terr
	}

	now := e.now()
	entry := &domain.OutboxEntry{
		ID:           uuid.NewString(),
		EntityType:   entityType,
		EntityID:     p.EntityID,
		TargetUserID: p.TargetUserID,
		ReminderType: reminderType,
		Title:        p.Title,
		Body:         p.Body,
		Payload:      p.Payload,
		ScheduledFor: scheduledFor,
		Status:       domain.OutboxPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := e.outbox.CreateIfAbsent(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("scheduling reminder: %w", err)
	}
	return map[string]any{
		"entry_id":    entry.ID,
		"was_deduped": !created,
	}, nil
}
