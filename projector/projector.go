// Package projector maps conversation events onto the read model.
package projector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lsvinicius/mental-health/domain"
	"github.com/lsvinicius/mental-health/store"
)

// ConversationProjector applies one event to the read model. Every mapping is
// idempotent so at-least-once redelivery from the outbox is safe: started
// events upsert, messages insert on a natural key that ignores duplicates and
// deletes are plain status updates.
type ConversationProjector struct {
	store store.Store
}

// NewConversationProjector creates a new projector.
func NewConversationProjector(s store.Store) *ConversationProjector {
	return &ConversationProjector{store: s}
}

// Project applies a single event to the read model. It does not retry;
// failures are handled by the outbox processor re-polling the entry.
func (p *ConversationProjector) Project(ctx context.Context, event *domain.Event) error {
	switch event.Type {
	case domain.EventTypeConversationStarted:
		return p.projectStarted(ctx, event)
	case domain.EventTypeNewMessage:
		return p.projectNewMessage(ctx, event)
	case domain.EventTypeConversationDeleted:
		return p.projectDeleted(ctx, event)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownEventKind, event.Type)
	}
}

func (p *ConversationProjector) projectStarted(ctx context.Context, event *domain.Event) error {
	var payload domain.StartedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal started payload: %w", err)
	}

	return p.store.UpsertConversation(ctx, &domain.Conversation{
		ID:        event.ConversationID,
		UserID:    payload.UserID,
		Status:    domain.ConversationStatusActive,
		CreatedAt: event.CreatedAt,
	})
}

func (p *ConversationProjector) projectNewMessage(ctx context.Context, event *domain.Event) error {
	var payload domain.NewMessagePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal message payload: %w", err)
	}

	return p.store.CreateConversationMessage(ctx, &domain.ConversationMessage{
		ID:             payload.MessageID,
		ConversationID: event.ConversationID,
		Text:           payload.Text,
		Sender:         payload.Sender,
		Version:        event.Version,
		CreatedAt:      event.CreatedAt,
	})
}

func (p *ConversationProjector) projectDeleted(ctx context.Context, event *domain.Event) error {
	return p.store.UpdateConversationStatus(ctx, event.ConversationID, domain.ConversationStatusInactive)
}
