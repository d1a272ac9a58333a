// Package command implements the write side: commands are validated against a
// replayed aggregate and appended to the event log.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lsvinicius/mental-health/domain"
	"github.com/lsvinicius/mental-health/store"
)

// ConversationCommandHandler handles conversation commands. Each command
// loads the full event history, replays it into a fresh aggregate, validates
// the candidate event against it and appends the event together with its
// outbox entry in one transaction.
//
// Concurrency control is optimistic: two racing commands both compute the
// same next version and the (conversation_id, version) uniqueness constraint
// lets only one insert through. The loser gets domain.ErrConcurrencyConflict
// and retry is the caller's responsibility.
type ConversationCommandHandler struct {
	store store.Store
}

// NewConversationCommandHandler creates a new command handler.
func NewConversationCommandHandler(s store.Store) *ConversationCommandHandler {
	return &ConversationCommandHandler{store: s}
}

// StartConversation starts a new conversation for the given user and returns
// the fresh conversation ID.
func (h *ConversationCommandHandler) StartConversation(ctx context.Context, userID string) (string, error) {
	conversationID := uuid.New().String()
	payload, err := json.Marshal(domain.StartedPayload{UserID: userID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := h.append(ctx, conversationID, userID, domain.EventTypeConversationStarted, payload); err != nil {
		return "", err
	}
	return conversationID, nil
}

// SendMessage appends a message to an active conversation and returns the new
// message ID. The sender must be the conversation owner.
func (h *ConversationCommandHandler) SendMessage(ctx context.Context, conversationID, text, sender string) (string, error) {
	messageID := uuid.New().String()
	payload, err := json.Marshal(domain.NewMessagePayload{Text: text, Sender: sender, MessageID: messageID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := h.append(ctx, conversationID, sender, domain.EventTypeNewMessage, payload); err != nil {
		return "", err
	}
	return messageID, nil
}

// DeleteConversation marks an active conversation as deleted. The acting user
// must be the conversation owner.
func (h *ConversationCommandHandler) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	payload, err := json.Marshal(domain.DeletedPayload{ConversationID: conversationID})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return h.append(ctx, conversationID, userID, domain.EventTypeConversationDeleted, payload)
}

// append runs the load → replay → validate → persist cycle for one candidate
// event. Any state-machine failure aborts the command with no side effect.
func (h *ConversationCommandHandler) append(ctx context.Context, conversationID, userID string, eventType domain.EventType, payload json.RawMessage) error {
	history, err := h.store.GetEvents(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	aggregate := domain.NewConversationAggregate(conversationID)
	if err := aggregate.ApplyEvents(history); err != nil {
		return fmt.Errorf("failed to replay events: %w", err)
	}

	event := &domain.Event{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		UserID:         userID,
		Type:           eventType,
		Version:        aggregate.Version() + 1,
		Payload:        payload,
		CreatedAt:      time.Now().UTC(),
	}
	if err := aggregate.Apply(event); err != nil {
		return err
	}

	return h.store.AppendEvent(ctx, event)
}
