// Package domain defines the core domain models for the conversation service.
package domain

import (
	"encoding/json"
	"time"
)

// ConversationStatus represents the status of a conversation.
// The zero value means the conversation has not been started yet.
type ConversationStatus string

const (
	ConversationStatusActive   ConversationStatus = "active"
	ConversationStatusInactive ConversationStatus = "inactive"
)

// EventType represents the kind of a conversation event.
type EventType string

const (
	EventTypeConversationStarted EventType = "conversation_started"
	EventTypeNewMessage          EventType = "new_message"
	EventTypeConversationDeleted EventType = "conversation_deleted"
)

// Event is one immutable entry in a conversation's event log. Versions for a
// fixed conversation form a contiguous sequence starting at 1; the store
// enforces uniqueness of (conversation_id, version).
type Event struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	UserID         string          `json:"user_id"` // acting user
	Type           EventType       `json:"type"`
	Version        int             `json:"version"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OutboxEntry pairs a persisted event with its pending-publication state.
// Exactly one entry is written per event, in the same transaction.
type OutboxEntry struct {
	ID          int64      `json:"id"`
	EventID     string     `json:"event_id"`
	IsProcessed bool       `json:"is_processed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// User is a registered user who can own conversations.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the read-model row derived from the event log.
type Conversation struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Status    ConversationStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

// ConversationMessage is the read-model row for a single message, keyed by
// (conversation_id, version) so reprojection is idempotent.
type ConversationMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	Sender         string    `json:"sender"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationRiskAnalysis is one completed risk assessment of a conversation.
type ConversationRiskAnalysis struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Analysis       json.RawMessage `json:"analysis"`
	DetectedRisk   bool            `json:"detected_risk"`
	Escalation     string          `json:"escalation,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
