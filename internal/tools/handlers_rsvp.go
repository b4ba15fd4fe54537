package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cadence/internal/domain"
	"cadence/internal/repository"
)

// recoverySearchLimit bounds the fallback search when an RSVP arrives
// with a stale event id.
const recoverySearchLimit = 10

type recordRSVPParams struct {
	EventID        string `json:"event_id"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Response       string `json:"response"`
}

func (e *Executor) handleRecordRSVP(ctx context.Context, params json.RawMessage) (map[string]any, error) {
	var p recordRSVPParams
	if terr := decode(params, &p); terr != nil {
		return nil, terr
	}
	if p.UserID == "" {
		return nil, validationErr(CodeValidation, "user_id is required")
	}
	response := domain.RSVPResponse(p.Response)
	if response != domain.RSVPAccept && response != domain.RSVPDecline {
		return nil, validationErr(CodeValidation, "response must be accept or decline, got %q", p.Response)
	}

	event, substituted, err := e.resolveRSVPEvent(ctx, p.EventID, p.ConversationID)
	if err != nil {
		return nil, err
	}

	if event.RSVPs == nil {
		event.RSVPs = map[string]domain.RSVPEntry{}
	}
	event.RSVPs[p.UserID] = domain.RSVPEntry{Response: response, RespondedAt: e.now()}
	event.RecomputeStatus()
	event.UpdatedAt = e.now()

	if err := e.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("updating event rsvp: %w", err)
	}

	return map[string]any{
		"event_id":    event.ID,
		"status":      string(event.Status),
		"substituted": substituted,
	}, nil
}

// resolveRSVPEvent loads the event by id, falling back to a bounded
// search over upcoming pending events in the conversation when the id is
// stale. Recovery only proceeds when exactly one candidate exists; more
// than one is refused rather than guessed, and any substitution is
// logged.
func (e *Executor) resolveRSVPEvent(ctx context.Context, eventID, conversationID string) (*domain.Event, bool, error) {
	event, err := e.events.GetByID(ctx, eventID)
	if err == nil {
		return event, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("loading event: %w", err)
	}
	if conversationID == "" {
		return nil, false, validationErr(CodeNotFound, "event %q not found", eventID)
	}

	upcoming, err := e.events.ListUpcomingByConversation(ctx, conversationID, e.now(), recoverySearchLimit)
	if err != nil {
		return nil, false, fmt.Errorf("searching for rsvp target: %w", err)
	}
	var pending []*domain.Event
	for _, ev := range upcoming {
		if ev.Status == domain.EventPending {
			pending = append(pending, ev)
		}
	}

	switch len(pending) {
	case 0:
		return nil, false, validationErr(CodeNotFound, "event %q not found and no pending events in conversation", eventID)
	case 1:
		e.logger.Warn("rsvp event id was stale, substituting the only pending event",
			zap.String("requested_event_id", eventID),
			zap.String("substituted_event_id", pending[0].ID),
			zap.String("conversation_id", conversationID))
		return pending[0], true, nil
	default:
		return nil, false, validationErr(CodeAmbiguousEvent,
			"event %q not found and %d pending events are candidates; refusing to guess", eventID, len(pending))
	}
}

type createInviteParams struct {
	ConversationID string `json:"conversation_id"`
	EventID        string `json:"event_id"`
	Body           string `json:"body,omitempty"`
}

func (e *Executor) handleCreateInvite(ctx context.Context, params json.RawMessage) (map[string]any, error) {
	var p createInviteParams
	if terr := decode(params, &p); terr != nil {
		return nil, terr
	}
	if p.ConversationID == "" || p.EventID == "" {
		return nil, validationErr(CodeValidation, "conversation_id and event_id are required")
	}

	event, err := e.events.GetByID(ctx, p.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationErr(CodeNotFound, "event %q not found", p.EventID)
		}
		return nil, fmt.Errorf("loading event: %w", err)
	}

	if existing, err := e.findInvite(ctx, p.ConversationID, event.ID); err != nil {
		return nil, err
	} else if existing != "" {
		return map[string]any{"message_id": existing, "was_deduped": true}, nil
	}

	body := strings.TrimSpace(p.Body)
	if body == "" {
		body = fmt.Sprintf("You're invited: %q on %s. Reply to RSVP.",
			event.Title, formatLocal(event.Start, event.Timezone))
	}

	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: p.ConversationID,
		SenderID:       "cadence",
		Text:           body,
		Role:           "assistant",
		Metadata:       map[string]string{"entity_id": event.ID, "kind": "invite"},
		CreatedAt:      e.now(),
	}
	if err := e.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("posting invite: %w", err)
	}
	return map[string]any{"message_id": msg.ID, "was_deduped": false}, nil
}

func (e *Executor) findInvite(ctx context.Context, conversationID, eventID string) (string, error) {
	msgs, err := e.messages.ListByConversation(ctx, conversationID, 50)
	if err != nil {
		return "", fmt.Errorf("checking for existing invite: %w", err)
	}
	for _, m := range msgs {
		if m.Metadata["kind"] == "invite" && m.Metadata["entity_id"] == eventID {
			return m.ID, nil
		}
	}
	return "", nil
}
