package domain

// TaskCategory is the closed set of message intents the gating classifier
// can produce. CategoryNone means "take no automated action."
type TaskCategory string

const (
	CategoryScheduling TaskCategory = "scheduling"
	CategoryRSVP       TaskCategory = "rsvp"
	CategoryTask       TaskCategory = "task"
	CategoryUrgent     TaskCategory = "urgent"
	CategoryDeadline   TaskCategory = "deadline"
	CategoryReminder   TaskCategory = "reminder"
	CategoryNone       TaskCategory = "none"
)

// ValidTaskCategories is the canonical set of accepted category strings.
var ValidTaskCategories = map[string]bool{
	"scheduling": true, "rsvp": true, "task": true, "urgent": true,
	"deadline": true, "reminder": true, "none": true,
}

type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventConfirmed EventStatus = "confirmed"
	EventDeclined  EventStatus = "declined"
	EventCancelled EventStatus = "cancelled"
)

type RSVPResponse string

const (
	RSVPAccept  RSVPResponse = "accept"
	RSVPDecline RSVPResponse = "decline"
	RSVPUnclear RSVPResponse = "unclear"
)

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

// ReminderType identifies which lookahead window produced an outbox entry.
type ReminderType string

const (
	ReminderEvent24h        ReminderType = "event_24h"
	ReminderEvent2h         ReminderType = "event_2h"
	ReminderDeadlineToday   ReminderType = "deadline_today"
	ReminderDeadlineOverdue ReminderType = "deadline_overdue"
)

// EntityType distinguishes outbox entries for events from those for deadlines.
type EntityType string

const (
	EntityEvent    EntityType = "event"
	EntityDeadline EntityType = "deadline"
)
