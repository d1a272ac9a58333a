// Package query implements the read side over the projected read model.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/lsvinicius/mental-health/domain"
	"github.com/lsvinicius/mental-health/store"
)

// ConversationView is a conversation with its full message history, as served
// to API clients.
type ConversationView struct {
	ID        string                       `json:"id"`
	UserID    string                       `json:"user_id"`
	Status    domain.ConversationStatus    `json:"status"`
	Messages  []domain.ConversationMessage `json:"messages"`
	CreatedAt time.Time                    `json:"created_at"`
}

// ConversationQueryHandler serves conversation reads. It only touches the
// read model, never the event log, so results are eventually consistent with
// the command side.
type ConversationQueryHandler struct {
	store store.Store
}

// NewConversationQueryHandler creates a new query handler.
func NewConversationQueryHandler(s store.Store) *ConversationQueryHandler {
	return &ConversationQueryHandler{store: s}
}

// GetConversation returns the conversation with its messages in version order.
func (h *ConversationQueryHandler) GetConversation(ctx context.Context, conversationID string) (*ConversationView, error) {
	conversation, err := h.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conversation == nil {
		return nil, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, conversationID)
	}

	messages, err := h.store.GetConversationMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	return &ConversationView{
		ID:        conversation.ID,
		UserID:    conversation.UserID,
		Status:    conversation.Status,
		Messages:  messages,
		CreatedAt: conversation.CreatedAt,
	}, nil
}

// ListRiskAnalyses returns the analyses recorded for a conversation, oldest
// first. With riskyOnly set, only analyses that detected a risk are returned.
func (h *ConversationQueryHandler) ListRiskAnalyses(ctx context.Context, conversationID string, riskyOnly bool) ([]domain.ConversationRiskAnalysis, error) {
	analyses, err := h.store.ListRiskAnalyses(ctx, conversationID, riskyOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk analyses: %w", err)
	}
	return analyses, nil
}
