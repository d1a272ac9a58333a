package domain

// StartedPayload is the payload for conversation_started events.
type StartedPayload struct {
	UserID string `json:"user_id"`
}

// NewMessagePayload is the payload for new_message events. The message_id is
// carried in the payload rather than a separate column so the event stays
// self-describing.
type NewMessagePayload struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	MessageID string `json:"message_id"`
}

// DeletedPayload is the payload for conversation_deleted events.
type DeletedPayload struct {
	ConversationID string `json:"conversation_id"`
}
