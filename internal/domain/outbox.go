package domain

import "time"

// OutboxEntry is the unit of reliable notification delivery. The scheduler
// creates entries idempotently by composite key; the worker delivers them
// with bounded retries.
type OutboxEntry struct {
	ID           string
	EntityType   EntityType
	EntityID     string
	TargetUserID string
	ReminderType ReminderType
	Title        string
	Body         string
	Payload      map[string]string
	ScheduledFor time.Time
	Status       OutboxStatus
	Attempts     int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
