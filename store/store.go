// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/lsvinicius/mental-health/domain"
)

// PendingOutboxEntry is an unprocessed outbox row joined with its event.
type PendingOutboxEntry struct {
	Entry domain.OutboxEntry
	Event domain.Event
}

// Store defines the interface for data persistence.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// Event log operations. AppendEvent persists the event and its outbox
	// entry in one transaction and returns domain.ErrConcurrencyConflict when
	// (conversation_id, version) is already taken.
	AppendEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, conversationID string) ([]domain.Event, error)

	// Outbox operations
	UnprocessedOutbox(ctx context.Context) ([]PendingOutboxEntry, error)
	MarkOutboxProcessed(ctx context.Context, outboxID int64) error
	ListOutbox(ctx context.Context) ([]domain.OutboxEntry, error)

	// Read-model operations
	UpsertConversation(ctx context.Context, conversation *domain.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	UpdateConversationStatus(ctx context.Context, conversationID string, status domain.ConversationStatus) error
	CreateConversationMessage(ctx context.Context, message *domain.ConversationMessage) error
	GetConversationMessages(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error)
	CreateRiskAnalysis(ctx context.Context, analysis *domain.ConversationRiskAnalysis) error
	ListRiskAnalyses(ctx context.Context, conversationID string, riskyOnly bool) ([]domain.ConversationRiskAnalysis, error)

	// Lifecycle
	Close() error
}
