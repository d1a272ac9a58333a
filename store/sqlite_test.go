package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lsvinicius/mental-health/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testEvent(conversationID string, eventType domain.EventType, version int) *domain.Event {
	return &domain.Event{
		ID:             "e-" + conversationID + "-" + string(rune('0'+version)),
		ConversationID: conversationID,
		UserID:         "u1",
		Type:           eventType,
		Version:        version,
		Payload:        json.RawMessage(`{"user_id":"u1"}`),
		CreatedAt:      time.Now().UTC(),
	}
}

func TestSQLiteStoreAppendEventWritesOutbox(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AppendEvent(ctx, testEvent("c1", domain.EventTypeConversationStarted, 1)); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	events, err := store.GetEvents(ctx, "c1")
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	entries, err := store.ListOutbox(ctx)
	if err != nil {
		t.Fatalf("ListOutbox failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 outbox entry, got %d", len(entries))
	}
	if entries[0].EventID != events[0].ID {
		t.Fatalf("outbox entry references %s, want %s", entries[0].EventID, events[0].ID)
	}
	if entries[0].IsProcessed {
		t.Fatal("new outbox entry must not be processed")
	}
	if entries[0].UpdatedAt != nil {
		t.Fatal("new outbox entry must not have updated_at set")
	}
}

func TestSQLiteStoreAppendEventVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AppendEvent(ctx, testEvent("c1", domain.EventTypeConversationStarted, 1)); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	duplicate := testEvent("c1", domain.EventTypeNewMessage, 1)
	duplicate.ID = "e-other"
	err := store.AppendEvent(ctx, duplicate)
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}

	// The conflicting append must leave no outbox row behind.
	entries, err := store.ListOutbox(ctx)
	if err != nil {
		t.Fatalf("ListOutbox failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 outbox entry after conflict, got %d", len(entries))
	}
}

func TestSQLiteStoreGetEventsOrderedByVersion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Insert out of order; retrieval must sort by version.
	for _, version := range []int{2, 1, 3} {
		eventType := domain.EventTypeNewMessage
		if version == 1 {
			eventType = domain.EventTypeConversationStarted
		}
		if err := store.AppendEvent(ctx, testEvent("c1", eventType, version)); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	events, err := store.GetEvents(ctx, "c1")
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, event := range events {
		if event.Version != i+1 {
			t.Fatalf("event %d has version %d, want %d", i, event.Version, i+1)
		}
	}
}

func TestSQLiteStoreOutboxProcessing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AppendEvent(ctx, testEvent("c1", domain.EventTypeConversationStarted, 1)); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if err := store.AppendEvent(ctx, testEvent("c1", domain.EventTypeNewMessage, 2)); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	pending, err := store.UnprocessedOutbox(ctx)
	if err != nil {
		t.Fatalf("UnprocessedOutbox failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending entries, got %d", len(pending))
	}
	if pending[0].Event.Version != 1 || pending[1].Event.Version != 2 {
		t.Fatalf("pending entries out of order: %+v", pending)
	}

	if err := store.MarkOutboxProcessed(ctx, pending[0].Entry.ID); err != nil {
		t.Fatalf("MarkOutboxProcessed failed: %v", err)
	}

	pending, err = store.UnprocessedOutbox(ctx)
	if err != nil {
		t.Fatalf("UnprocessedOutbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(pending))
	}
	if pending[0].Event.Version != 2 {
		t.Fatalf("expected version 2 pending, got %d", pending[0].Event.Version)
	}

	entries, err := store.ListOutbox(ctx)
	if err != nil {
		t.Fatalf("ListOutbox failed: %v", err)
	}
	if !entries[0].IsProcessed || entries[0].UpdatedAt == nil {
		t.Fatalf("processed entry not updated: %+v", entries[0])
	}
}

func TestSQLiteStoreConversationReadModel(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	conversation := &domain.Conversation{
		ID:        "c1",
		UserID:    "u1",
		Status:    domain.ConversationStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.UpsertConversation(ctx, conversation); err != nil {
		t.Fatalf("UpsertConversation failed: %v", err)
	}

	got, err := store.GetConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got == nil || got.Status != domain.ConversationStatusActive {
		t.Fatalf("unexpected conversation: %+v", got)
	}

	if err := store.UpdateConversationStatus(ctx, "c1", domain.ConversationStatusInactive); err != nil {
		t.Fatalf("UpdateConversationStatus failed: %v", err)
	}
	got, err = store.GetConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.Status != domain.ConversationStatusInactive {
		t.Fatalf("expected inactive, got %q", got.Status)
	}

	missing, err := store.GetConversation(ctx, "nope")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing conversation, got %+v", missing)
	}
}

func TestSQLiteStoreMessageInsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	message := &domain.ConversationMessage{
		ID:             "m1",
		ConversationID: "c1",
		Text:           "hi",
		Sender:         "u1",
		Version:        2,
		CreatedAt:      time.Now().UTC(),
	}
	if err := store.CreateConversationMessage(ctx, message); err != nil {
		t.Fatalf("CreateConversationMessage failed: %v", err)
	}
	// Redelivery of the same event must be a no-op, not an error.
	if err := store.CreateConversationMessage(ctx, message); err != nil {
		t.Fatalf("repeated CreateConversationMessage failed: %v", err)
	}

	messages, err := store.GetConversationMessages(ctx, "c1")
	if err != nil {
		t.Fatalf("GetConversationMessages failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
}

func TestSQLiteStoreRiskAnalyses(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	safe := &domain.ConversationRiskAnalysis{
		ID:             "a1",
		ConversationID: "c1",
		Analysis:       json.RawMessage(`{"risk_found":false}`),
		DetectedRisk:   false,
		CreatedAt:      time.Now().UTC(),
	}
	risky := &domain.ConversationRiskAnalysis{
		ID:             "a2",
		ConversationID: "c1",
		Analysis:       json.RawMessage(`{"risk_found":true,"risk_level":"high"}`),
		DetectedRisk:   true,
		Escalation:     "escalate",
		CreatedAt:      time.Now().UTC().Add(time.Second),
	}
	if err := store.CreateRiskAnalysis(ctx, safe); err != nil {
		t.Fatalf("CreateRiskAnalysis failed: %v", err)
	}
	if err := store.CreateRiskAnalysis(ctx, risky); err != nil {
		t.Fatalf("CreateRiskAnalysis failed: %v", err)
	}

	all, err := store.ListRiskAnalyses(ctx, "c1", false)
	if err != nil {
		t.Fatalf("ListRiskAnalyses failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(all))
	}

	riskyOnly, err := store.ListRiskAnalyses(ctx, "c1", true)
	if err != nil {
		t.Fatalf("ListRiskAnalyses failed: %v", err)
	}
	if len(riskyOnly) != 1 || !riskyOnly[0].DetectedRisk {
		t.Fatalf("unexpected risky analyses: %+v", riskyOnly)
	}
	if riskyOnly[0].Escalation != "escalate" {
		t.Fatalf("expected escalation decision, got %q", riskyOnly[0].Escalation)
	}
}

func TestSQLiteStoreUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	user := &domain.User{ID: "u1", Email: "vini@vini.com", Name: "vini", CreatedAt: time.Now().UTC()}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got == nil || got.Email != "vini@vini.com" {
		t.Fatalf("unexpected user: %+v", got)
	}

	duplicate := &domain.User{ID: "u2", Email: "vini@vini.com", Name: "other", CreatedAt: time.Now().UTC()}
	if err := store.CreateUser(ctx, duplicate); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
