package domain

import "fmt"

// ConversationAggregate is the in-memory state machine rebuilt by replaying a
// conversation's event log. It is never persisted; it exists only to validate
// the next event before the command handler appends it.
type ConversationAggregate struct {
	conversationID string
	userID         string
	status         ConversationStatus
	version        int
}

// NewConversationAggregate creates an empty aggregate for the given
// conversation. The owner is bound when the conversation_started event is
// applied.
func NewConversationAggregate(conversationID string) *ConversationAggregate {
	return &ConversationAggregate{conversationID: conversationID}
}

// ConversationID returns the conversation this aggregate tracks.
func (a *ConversationAggregate) ConversationID() string { return a.conversationID }

// UserID returns the owner bound from the conversation_started event.
func (a *ConversationAggregate) UserID() string { return a.userID }

// Status returns the current status. Empty until the conversation is started.
func (a *ConversationAggregate) Status() ConversationStatus { return a.status }

// Version returns the version of the last applied event.
func (a *ConversationAggregate) Version() int { return a.version }

// ApplyEvents applies a sequence of events in the order given. There is no
// implicit sorting; callers must supply events in ascending version order,
// which the store guarantees by querying with ORDER BY version.
func (a *ConversationAggregate) ApplyEvents(events []Event) error {
	for i := range events {
		if err := a.Apply(&events[i]); err != nil {
			return err
		}
	}
	return nil
}

// Apply validates one event against the current state and, on success,
// advances the aggregate's version to the event's version.
func (a *ConversationAggregate) Apply(event *Event) error {
	if event.ConversationID != a.conversationID {
		return fmt.Errorf("%w: event is for conversation %s, aggregate is %s",
			ErrOwnershipViolation, event.ConversationID, a.conversationID)
	}

	switch event.Type {
	case EventTypeConversationStarted:
		if err := a.applyStarted(event); err != nil {
			return err
		}
	case EventTypeNewMessage:
		if err := a.applyNewMessage(event); err != nil {
			return err
		}
	case EventTypeConversationDeleted:
		if err := a.applyDeleted(event); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEventKind, event.Type)
	}

	a.version = event.Version
	return nil
}

func (a *ConversationAggregate) applyStarted(event *Event) error {
	if a.status != "" {
		return fmt.Errorf("%w: cannot start conversation with status %q", ErrInvalidTransition, a.status)
	}
	a.status = ConversationStatusActive
	a.userID = event.UserID
	return nil
}

func (a *ConversationAggregate) applyNewMessage(event *Event) error {
	if a.status != ConversationStatusActive {
		return fmt.Errorf("%w: cannot add message to conversation with status %q", ErrInvalidTransition, a.status)
	}
	if event.UserID != a.userID {
		return fmt.Errorf("%w: user %s cannot add message to conversation owned by %s",
			ErrOwnershipViolation, event.UserID, a.userID)
	}
	return nil
}

func (a *ConversationAggregate) applyDeleted(event *Event) error {
	if a.status != ConversationStatusActive {
		return fmt.Errorf("%w: cannot delete conversation with status %q", ErrInvalidTransition, a.status)
	}
	if event.UserID != a.userID {
		return fmt.Errorf("%w: user %s cannot delete conversation owned by %s",
			ErrOwnershipViolation, event.UserID, a.userID)
	}
	a.status = ConversationStatusInactive
	return nil
}
