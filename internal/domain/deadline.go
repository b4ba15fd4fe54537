package domain

import "time"

// Deadline is a task with an optional due instant, extracted from chat or
// created explicitly via the task tool.
type Deadline struct {
	ID             string
	ConversationID string
	Title          string
	DueAt          *time.Time
	AssigneeID     string
	TaskType       string
	Completed      bool
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
