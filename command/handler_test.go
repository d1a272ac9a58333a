package command_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lsvinicius/mental-health/command"
	"github.com/lsvinicius/mental-health/domain"
	"github.com/lsvinicius/mental-health/tests/helpers"
)

func TestStartConversation(t *testing.T) {
	ctx := context.Background()
	s := helpers.NewTestSQLiteStore(t)
	handler := command.NewConversationCommandHandler(s)

	conversationID, err := handler.StartConversation(ctx, "u1")
	assert.NoError(t, err)
	assert.NotEmpty(t, conversationID)

	events, err := s.GetEvents(ctx, conversationID)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeConversationStarted, events[0].Type)
	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, "u1", events[0].UserID)

	var payload domain.StartedPayload
	assert.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "u1", payload.UserID)

	entries, err := s.ListOutbox(ctx)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.False(t, entries[0].IsProcessed)
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	s := helpers.NewTestSQLiteStore(t)
	handler := command.NewConversationCommandHandler(s)

	conversationID, err := handler.StartConversation(ctx, "u1")
	assert.NoError(t, err)

	messageID, err := handler.SendMessage(ctx, conversationID, "hi", "u1")
	assert.NoError(t, err)
	assert.NotEmpty(t, messageID)

	events, err := s.GetEvents(ctx, conversationID)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, domain.EventTypeNewMessage, events[1].Type)
	assert.Equal(t, 2, events[1].Version)

	var payload domain.NewMessagePayload
	assert.NoError(t, json.Unmarshal(events[1].Payload, &payload))
	assert.Equal(t, "hi", payload.Text)
	assert.Equal(t, "u1", payload.Sender)
	assert.Equal(t, messageID, payload.MessageID)
}

func TestSendMessageToUnstartedConversation(t *testing.T) {
	ctx := context.Background()
	s := helpers.NewTestSQLiteStore(t)
	handler := command.NewConversationCommandHandler(s)

	_, err := handler.SendMessage(ctx, "no-such-conversation", "hi", "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// A rejected command leaves no partial state behind.
	events, err := s.GetEvents(ctx, "no-such-conversation")
	assert.NoError(t, err)
	assert.Empty(t, events)
	entries, err := s.ListOutbox(ctx)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSendMessageBySomeoneElse(t *testing.T) {
	ctx := context.Background()
	s := helpers.NewTestSQLiteStore(t)
	handler := command.NewConversationCommandHandler(s)

	conversationID, err := handler.StartConversation(ctx, "u1")
	assert.NoError(t, err)

	_, err = handler.SendMessage(ctx, conversationID, "hi", "intruder")
	assert.ErrorIs(t, err, domain.ErrOwnershipViolation)
}

func TestDeleteConversation(t *testing.T) {
	ctx := context.Background()
	s := helpers.NewTestSQLiteStore(t)
	handler := command.NewConversationCommandHandler(s)

	conversationID, err := handler.StartConversation(ctx, "u1")
	assert.NoError(t, err)
	_, err = handler.SendMessage(ctx, conversationID, "hi", "u1")
	assert.NoError(t, err)

	assert.NoError(t, handler.DeleteConversation(ctx, "u1", conversationID))

	events, err := s.GetEvents(ctx, conversationID)
	assert.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, domain.EventTypeConversationDeleted, events[2].Type)
	assert.Equal(t, 3, events[2].Version)

	// Deleting twice is an invalid transition.
	err = handler.DeleteConversation(ctx, "u1", conversationID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDeletedConversationRejectsMessages(t *testing.T) {
	ctx := context.Background()
	s := helpers.NewTestSQLiteStore(t)
	handler := command.NewConversationCommandHandler(s)

	conversationID, err := handler.StartConversation(ctx, "u1")
	assert.NoError(t, err)
	assert.NoError(t, handler.DeleteConversation(ctx, "u1", conversationID))

	_, err = handler.SendMessage(ctx, conversationID, "still here?", "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// The rejected command left no trace in the log.
	events, err := s.GetEvents(ctx, conversationID)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, domain.EventTypeConversationDeleted, events[1].Type)
}

func TestConcurrentCommandsConflictOnVersion(t *testing.T) {
	ctx := context.Background()
	s := helpers.NewTestSQLiteStore(t)
	handler := command.NewConversationCommandHandler(s)

	conversationID, err := handler.StartConversation(ctx, "u1")
	assert.NoError(t, err)

	// Simulate two commands racing on the same stale read: both computed
	// version 2; the store admits exactly one.
	event := func(id string) *domain.Event {
		return &domain.Event{
			ID:             id,
			ConversationID: conversationID,
			UserID:         "u1",
			Type:           domain.EventTypeNewMessage,
			Version:        2,
			Payload:        json.RawMessage(`{"text":"hi","sender":"u1","message_id":"m"}`),
		}
	}
	first := s.AppendEvent(ctx, event("e-first"))
	second := s.AppendEvent(ctx, event("e-second"))

	assert.NoError(t, first)
	assert.True(t, errors.Is(second, domain.ErrConcurrencyConflict))

	events, err := s.GetEvents(ctx, conversationID)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
}
