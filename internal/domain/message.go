package domain

import "time"

// Message is an immutable chat utterance. Messages are created by the chat
// layer; this core only reads them and appends system messages of its own.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Text           string
	Role           string // "user", "assistant", "system"
	// Metadata carries machine-readable references, e.g. the event id a
	// confirmation message is about. Used for confirmation dedup.
	Metadata  map[string]string
	CreatedAt time.Time
}

// ReferencesEntity reports whether the message metadata references the
// given entity id.
func (m *Message) ReferencesEntity(entityID string) bool {
	if m.Metadata == nil {
		return false
	}
	return m.Metadata["entity_id"] == entityID
}
