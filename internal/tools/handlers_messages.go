package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cadence/internal/domain"
)

type postMessageParams struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	EntityID       string `json:"entity_id,omitempty"`
	Kind           string `json:"kind,omitempty"`
}

func (e *Executor) handlePostMessage(ctx context.Context, params json.RawMessage) (map[string]any, error) {
	var p postMessageParams
	if terr := decode(params, &p); terr != nil {
		return nil, terr
	}
	if p.ConversationID == "" || strings.TrimSpace(p.Text) == "" {
		return nil, validationErr(CodeValidation, "conversation_id and text are required")
	}

	// Confirmation dedup: one message per referenced entity.
	if p.EntityID != "" {
		exists, err := e.messages.ExistsReferencing(ctx, p.ConversationID, p.EntityID)
		if err != nil {
			return nil, fmt.Errorf("checking entity references: %w", err)
		}
		if exists {
			return map[string]any{"was_deduped": true}, nil
		}
	}

	metadata := map[string]string{}
	if p.EntityID != "" {
		metadata["entity_id"] = p.EntityID
	}
	if p.Kind != "" {
		metadata["kind"] = p.Kind
	}

	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: p.ConversationID,
		SenderID:       "cadence",
		Text:           p.Text,
		Role:           "assistant",
		Metadata:       metadata,
		CreatedAt:      e.now(),
	}
	if err := e.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("posting message: %w", err)
	}
	return map[string]any{"message_id": msg.ID, "was_deduped": false}, nil
}
