package domain

import "time"

// RSVPEntry records one participant's response to an event invite.
type RSVPEntry struct {
	Response    RSVPResponse
	RespondedAt time.Time
}

// Event is a scheduled session. Start/End are UTC instants; Timezone is the
// IANA zone used for display. The idempotency key is derived from the
// event's semantic content (conversation, normalized title, date), never
// from the random id, so re-processing the same chat message cannot create
// a second event.
type Event struct {
	ID             string
	ConversationID string
	Title          string
	Start          time.Time
	End            time.Time
	Timezone       string
	ParticipantIDs []string
	Status         EventStatus
	RSVPs          map[string]RSVPEntry
	IdempotencyKey string
	HasConflict    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecomputeStatus derives the event status from the RSVP map: confirmed iff
// every participant accepted, declined if anyone declined, else pending.
// Cancelled events are left alone.
func (e *Event) RecomputeStatus() {
	if e.Status == EventCancelled {
		return
	}
	accepted := 0
	for _, pid := range e.ParticipantIDs {
		entry, ok := e.RSVPs[pid]
		if !ok {
			continue
		}
		switch entry.Response {
		case RSVPDecline:
			e.Status = EventDeclined
			return
		case RSVPAccept:
			accepted++
		}
	}
	if len(e.ParticipantIDs) > 0 && accepted == len(e.ParticipantIDs) {
		e.Status = EventConfirmed
		return
	}
	e.Status = EventPending
}
