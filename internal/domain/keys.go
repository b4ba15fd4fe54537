package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const keyDateLayout = "2006-01-02"

// NormalizeTitle lowercases a title and collapses it to single-space-joined
// alphanumeric words, so "Math Lesson!" and "math  lesson" derive the same
// idempotency key.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// EventIdempotencyKey derives the deterministic key for an event from its
// semantic content. Date is taken at day granularity in UTC.
func EventIdempotencyKey(conversationID, title string, start time.Time) string {
	return fmt.Sprintf("event:%s:%s:%s",
		conversationID, NormalizeTitle(title), start.UTC().Format(keyDateLayout))
}

// DeadlineIdempotencyKey derives the deterministic key for a deadline.
// A nil due date contributes the literal "none" so dateless tasks still
// deduplicate on (conversation, title).
func DeadlineIdempotencyKey(conversationID, title string, dueAt *time.Time) string {
	due := "none"
	if dueAt != nil {
		due = dueAt.UTC().Format(keyDateLayout)
	}
	return fmt.Sprintf("deadline:%s:%s:%s", conversationID, NormalizeTitle(title), due)
}

// OutboxIdempotencyKey derives the composite key for a notification outbox
// entry.
func OutboxIdempotencyKey(entityType EntityType, entityID, targetUserID string, reminderType ReminderType) string {
	return fmt.Sprintf("outbox:%s:%s:%s:%s", entityType, entityID, targetUserID, reminderType)
}
