package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "math lesson", NormalizeTitle("Math Lesson!"))
	assert.Equal(t, "math lesson", NormalizeTitle("  math   LESSON  "))
	assert.Equal(t, "review session 2", NormalizeTitle("Review: Session #2"))
	assert.Equal(t, "", NormalizeTitle("!!!"))
}

func TestEventIdempotencyKey_DayGranularity(t *testing.T) {
	morning := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 15, 21, 30, 0, 0, time.UTC)

	k1 := EventIdempotencyKey("conv-1", "Math Lesson", morning)
	k2 := EventIdempotencyKey("conv-1", "math lesson!", evening)
	assert.Equal(t, k1, k2, "same day and normalized title must collide")

	nextDay := time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC)
	assert.NotEqual(t, k1, EventIdempotencyKey("conv-1", "Math Lesson", nextDay))
	assert.NotEqual(t, k1, EventIdempotencyKey("conv-2", "Math Lesson", morning))
}

func TestDeadlineIdempotencyKey_NilDue(t *testing.T) {
	k := DeadlineIdempotencyKey("conv-1", "Homework ch. 4", nil)
	assert.Equal(t, "deadline:conv-1:homework ch 4:none", k)

	due := time.Date(2025, 4, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "deadline:conv-1:homework ch 4:2025-04-01",
		DeadlineIdempotencyKey("conv-1", "Homework ch. 4", &due))
}

func TestOutboxIdempotencyKey(t *testing.T) {
	k := OutboxIdempotencyKey(EntityEvent, "ev-1", "user-1", ReminderEvent24h)
	assert.Equal(t, "outbox:event:ev-1:user-1:event_24h", k)
}

func TestEventRecomputeStatus(t *testing.T) {
	now := time.Now().UTC()
	ev := &Event{
		ParticipantIDs: []string{"a", "b"},
		Status:         EventPending,
		RSVPs:          map[string]RSVPEntry{},
	}

	ev.RecomputeStatus()
	assert.Equal(t, EventPending, ev.Status)

	ev.RSVPs["a"] = RSVPEntry{Response: RSVPAccept, RespondedAt: now}
	ev.RecomputeStatus()
	assert.Equal(t, EventPending, ev.Status, "partial accepts stay pending")

	ev.RSVPs["b"] = RSVPEntry{Response: RSVPAccept, RespondedAt: now}
	ev.RecomputeStatus()
	assert.Equal(t, EventConfirmed, ev.Status)

	ev.RSVPs["b"] = RSVPEntry{Response: RSVPDecline, RespondedAt: now}
	ev.RecomputeStatus()
	assert.Equal(t, EventDeclined, ev.Status, "any decline wins")

	ev.Status = EventCancelled
	ev.RecomputeStatus()
	assert.Equal(t, EventCancelled, ev.Status, "cancellation is sticky")
}
