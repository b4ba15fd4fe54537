package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cadence/internal/conflict"
	"cadence/internal/domain"
)

// neighborWindow bounds how far around a proposed slot existing events
// are fetched for conflict classification. It comfortably covers the
// buffer plus travel time.
const neighborWindow = 2 * time.Hour

type createEventParams struct {
	ConversationID  string   `json:"conversation_id"`
	Title           string   `json:"title"`
	Start           string   `json:"start"`
	End             string   `json:"end,omitempty"`
	Timezone        string   `json:"timezone"`
	ParticipantIDs  []string `json:"participant_ids"`
	AllowBackToBack bool     `json:"allow_back_to_back,omitempty"`
}

func (e *Executor) handleCreateEvent(ctx context.Context, params json.RawMessage) (map[string]any, error) {
	var p createEventParams
	if terr := decode(params, &p); terr != nil {
		return nil, terr
	}
	if p.ConversationID == "" || strings.TrimSpace(p.Title) == "" {
		return nil, validationErr(CodeValidation, "conversation_id and title are required")
	}
	start, terr := parseUTCInstant(p.Start, "start")
	if terr != nil {
		return nil, terr
	}
	end := start.Add(time.Hour)
	if p.End != "" {
		if end, terr = parseUTCInstant(p.End, "end"); terr != nil {
			return nil, terr
		}
	}
	if end.Before(start) {
		return nil, validationErr(CodeValidation, "end precedes start")
	}

	key := domain.EventIdempotencyKey(p.ConversationID, p.Title, start)

	neighbors, err := e.neighboringEvents(ctx, p.ParticipantIDs, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading neighboring events: %w", err)
	}
	check := conflict.Check(start, end, neighbors, conflict.Options{AllowBackToBack: p.AllowBackToBack})

	now := e.now()
	event := &domain.Event{
		ID:             uuid.NewString(),
		ConversationID: p.ConversationID,
		Title:          strings.TrimSpace(p.Title),
		Start:          start,
		End:            end,
		Timezone:       p.Timezone,
		ParticipantIDs: p.ParticipantIDs,
		Status:         domain.EventPending,
		RSVPs:          map[string]domain.RSVPEntry{},
		IdempotencyKey: key,
		HasConflict:    check.HasConflict,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, existing, err := e.events.CreateIfAbsent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	if !created {
		event = existing
	}

	if err := e.ensureEventMessage(ctx, event, check, neighbors); err != nil {
		return nil, err
	}

	return map[string]any{
		"event_id":     event.ID,
		"was_deduped":  !created,
		"has_conflict": event.HasConflict,
		"status":       string(event.Status),
	}, nil
}

// ensureEventMessage posts the confirmation or conflict card for a newly
// created event, once. The entity-reference check makes the post safe to
// re-run after a partial failure.
func (e *Executor) ensureEventMessage(ctx context.Context, event *domain.Event, check conflict.Result, neighbors []domain.Event) error {
	exists, err := e.messages.ExistsReferencing(ctx, event.ConversationID, event.ID)
	if err != nil {
		return fmt.Errorf("checking confirmation: %w", err)
	}
	if exists {
		return nil
	}

	var text, kind string
	if check.HasConflict {
		text = conflictCardText(event, check, neighbors)
		kind = "conflict_card"
	} else {
		text = confirmationText(event)
		kind = "confirmation"
	}

	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: event.ConversationID,
		SenderID:       "cadence",
		Text:           text,
		Role:           "assistant",
		Metadata:       map[string]string{"entity_id": event.ID, "kind": kind},
		CreatedAt:      e.now(),
	}
	if err := e.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("posting %s: %w", kind, err)
	}
	return nil
}

func confirmationText(event *domain.Event) string {
	return fmt.Sprintf("Scheduled %q for %s.", event.Title, formatLocal(event.Start, event.Timezone))
}

func conflictCardText(event *domain.Event, check conflict.Result, neighbors []domain.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Heads up: %q at %s conflicts with your calendar (%s).",
		event.Title, formatLocal(event.Start, event.Timezone), check.Severity)

	loc, err := time.LoadLocation(event.Timezone)
	if err != nil {
		loc = time.UTC
	}
	alts := conflict.Alternatives(event.Start, event.End.Sub(event.Start), neighbors, loc, conflict.AlternativeOptions{})
	if len(alts) > 0 {
		b.WriteString(" Alternatives:")
		for i, slot := range alts {
			fmt.Fprintf(&b, " %d) %s", i+1, formatLocal(slot.Start, event.Timezone))
		}
	}
	return b.String()
}

func formatLocal(t time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Mon Jan 2 3:04pm MST")
}

func (e *Executor) neighboringEvents(ctx context.Context, participantIDs []string, start, end time.Time) ([]domain.Event, error) {
	seen := map[string]bool{}
	var out []domain.Event
	for _, pid := range participantIDs {
		events, err := e.events.ListOverlapping(ctx, pid, start.Add(-neighborWindow), end.Add(neighborWindow))
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			out = append(out, *ev)
		}
	}
	return out, nil
}

type checkConflictsParams struct {
	Start           string   `json:"start"`
	End             string   `json:"end,omitempty"`
	Timezone        string   `json:"timezone"`
	ParticipantIDs  []string `json:"participant_ids"`
	BufferMinutes   int      `json:"buffer_minutes,omitempty"`
	TravelMinutes   int      `json:"travel_minutes,omitempty"`
	AllowBackToBack bool     `json:"allow_back_to_back,omitempty"`
}

func (e *Executor) handleCheckConflicts(ctx context.Context, params json.RawMessage) (map[string]any, error) {
	var p checkConflictsParams
	if terr := decode(params, &p); terr != nil {
		return nil, terr
	}
	start, terr := parseUTCInstant(p.Start, "start")
	if terr != nil {
		return nil, terr
	}
	end := start.Add(time.Hour)
	if p.End != "" {
		if end, terr = parseUTCInstant(p.End, "end"); terr != nil {
			return nil, terr
		}
	}

	neighbors, err := e.neighboringEvents(ctx, p.ParticipantIDs, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading neighboring events: %w", err)
	}

	opts := conflict.Options{
		MinimumBufferMinutes: p.BufferMinutes,
		TravelTimeMinutes:    p.TravelMinutes,
		AllowBackToBack:      p.AllowBackToBack,
	}
	check := conflict.Check(start, end, neighbors, opts)

	data := map[string]any{
		"has_conflict": check.HasConflict,
		"severity":     string(check.Severity),
	}
	if len(check.Conflicts) > 0 {
		list := make([]map[string]any, 0, len(check.Conflicts))
		for _, c := range check.Conflicts {
			list = append(list, map[string]any{
				"event_id":       c.EventID,
				"type":           string(c.Type),
				"severity":       string(c.Severity),
				"recommendation": c.Recommendation,
			})
		}
		data["conflicts"] = list

		loc, locErr := time.LoadLocation(p.Timezone)
		if locErr != nil {
			loc = time.UTC
		}
		alts := conflict.Alternatives(start, end.Sub(start), neighbors, loc, conflict.AlternativeOptions{Conflict: opts})
		slots := make([]map[string]any, 0, len(alts))
		for _, s := range alts {
			slots = append(slots, map[string]any{
				"start": s.Start.Format(time.RFC3339),
				"end":   s.End.Format(time.RFC3339),
				"score": s.Score,
			})
		}
		data["alternatives"] = slots
	}
	return data, nil
}
