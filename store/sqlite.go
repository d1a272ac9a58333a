package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/lsvinicius/mental-health/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_events (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			version INTEGER NOT NULL,
			payload TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (conversation_id, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_conversation ON conversation_events(conversation_id, version)`,
		`CREATE TABLE IF NOT EXISTS conversation_outbox (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL,
			is_processed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME,
			FOREIGN KEY (event_id) REFERENCES conversation_events(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_unprocessed ON conversation_outbox(is_processed, created_at)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			text TEXT NOT NULL,
			sender TEXT NOT NULL,
			version INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (conversation_id, version)
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_risk_analyses (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			analysis TEXT NOT NULL,
			detected_risk INTEGER NOT NULL,
			escalation TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_analyses_conversation ON conversation_risk_analyses(conversation_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// CreateUser registers a new user. Emails are unique.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user with email %s", domain.ErrAlreadyExists, user.Email)
	}
	return err
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`,
		userID).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AppendEvent persists the event and its outbox entry in one transaction,
// both-or-neither. A (conversation_id, version) collision means a concurrent
// command won the race and is reported as domain.ErrConcurrencyConflict.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *domain.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payload := sql.NullString{}
	if event.Payload != nil {
		payload = sql.NullString{String: string(event.Payload), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversation_events (id, conversation_id, user_id, type, version, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.ConversationID, event.UserID, event.Type, event.Version, payload, event.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: conversation %s version %d", domain.ErrConcurrencyConflict, event.ConversationID, event.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversation_outbox (event_id, is_processed, created_at) VALUES (?, 0, ?)`,
		event.ID, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert outbox entry: %w", err)
	}

	return tx.Commit()
}

// GetEvents retrieves all events for a conversation in ascending version
// order. It never filters on outbox state; that distinction belongs to the
// outbox, not the log.
func (s *SQLiteStore) GetEvents(ctx context.Context, conversationID string) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, user_id, type, version, payload, created_at
		 FROM conversation_events WHERE conversation_id = ? ORDER BY version ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var event domain.Event
	var payload sql.NullString
	if err := row.Scan(&event.ID, &event.ConversationID, &event.UserID, &event.Type,
		&event.Version, &payload, &event.CreatedAt); err != nil {
		return nil, err
	}
	if payload.Valid {
		event.Payload = json.RawMessage(payload.String)
	}
	return &event, nil
}

// UnprocessedOutbox retrieves unprocessed outbox entries joined with their
// events, oldest first across all conversations.
func (s *SQLiteStore) UnprocessedOutbox(ctx context.Context) ([]PendingOutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT o.id, o.event_id, o.is_processed, o.created_at, o.updated_at,
		        e.id, e.conversation_id, e.user_id, e.type, e.version, e.payload, e.created_at
		 FROM conversation_outbox o
		 JOIN conversation_events e ON e.id = o.event_id
		 WHERE o.is_processed = 0
		 ORDER BY o.created_at ASC, o.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingOutboxEntry
	for rows.Next() {
		var p PendingOutboxEntry
		var updatedAt sql.NullTime
		var payload sql.NullString
		if err := rows.Scan(&p.Entry.ID, &p.Entry.EventID, &p.Entry.IsProcessed, &p.Entry.CreatedAt, &updatedAt,
			&p.Event.ID, &p.Event.ConversationID, &p.Event.UserID, &p.Event.Type,
			&p.Event.Version, &payload, &p.Event.CreatedAt); err != nil {
			return nil, err
		}
		if updatedAt.Valid {
			p.Entry.UpdatedAt = &updatedAt.Time
		}
		if payload.Valid {
			p.Event.Payload = json.RawMessage(payload.String)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkOutboxProcessed flips an outbox entry to processed and stamps
// updated_at. Setting the flag twice is harmless.
func (s *SQLiteStore) MarkOutboxProcessed(ctx context.Context, outboxID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversation_outbox SET is_processed = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), outboxID)
	return err
}

// ListOutbox retrieves all outbox entries, oldest first.
func (s *SQLiteStore) ListOutbox(ctx context.Context) ([]domain.OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, is_processed, created_at, updated_at
		 FROM conversation_outbox ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.OutboxEntry
	for rows.Next() {
		var entry domain.OutboxEntry
		var updatedAt sql.NullTime
		if err := rows.Scan(&entry.ID, &entry.EventID, &entry.IsProcessed, &entry.CreatedAt, &updatedAt); err != nil {
			return nil, err
		}
		if updatedAt.Valid {
			entry.UpdatedAt = &updatedAt.Time
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpsertConversation creates or replaces a conversation read-model row.
func (s *SQLiteStore) UpsertConversation(ctx context.Context, conversation *domain.Conversation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO conversations (id, user_id, status, created_at) VALUES (?, ?, ?, ?)`,
		conversation.ID, conversation.UserID, conversation.Status, conversation.CreatedAt)
	return err
}

// GetConversation retrieves a conversation read-model row by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conversation domain.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, status, created_at FROM conversations WHERE id = ?`,
		conversationID).Scan(&conversation.ID, &conversation.UserID, &conversation.Status, &conversation.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// UpdateConversationStatus updates the status of a conversation row.
func (s *SQLiteStore) UpdateConversationStatus(ctx context.Context, conversationID string, status domain.ConversationStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET status = ? WHERE id = ?`,
		status, conversationID)
	return err
}

// CreateConversationMessage inserts a message read-model row. The insert is a
// no-op when (conversation_id, version) already exists so redelivered events
// project idempotently.
func (s *SQLiteStore) CreateConversationMessage(ctx context.Context, message *domain.ConversationMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversation_messages (id, conversation_id, text, sender, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		message.ID, message.ConversationID, message.Text, message.Sender, message.Version, message.CreatedAt)
	return err
}

// GetConversationMessages retrieves messages for a conversation in ascending
// version order.
func (s *SQLiteStore) GetConversationMessages(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, text, sender, version, created_at
		 FROM conversation_messages WHERE conversation_id = ? ORDER BY version ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.ConversationMessage
	for rows.Next() {
		var msg domain.ConversationMessage
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Text, &msg.Sender, &msg.Version, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateRiskAnalysis persists one completed risk analysis.
func (s *SQLiteStore) CreateRiskAnalysis(ctx context.Context, analysis *domain.ConversationRiskAnalysis) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_risk_analyses (id, conversation_id, analysis, detected_risk, escalation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		analysis.ID, analysis.ConversationID, string(analysis.Analysis), analysis.DetectedRisk, analysis.Escalation, analysis.CreatedAt)
	return err
}

// ListRiskAnalyses retrieves risk analyses for a conversation, oldest first.
// With riskyOnly it returns only analyses where a risk was detected.
func (s *SQLiteStore) ListRiskAnalyses(ctx context.Context, conversationID string, riskyOnly bool) ([]domain.ConversationRiskAnalysis, error) {
	query := `SELECT id, conversation_id, analysis, detected_risk, escalation, created_at
		 FROM conversation_risk_analyses WHERE conversation_id = ?`
	args := []interface{}{conversationID}
	if riskyOnly {
		query += ` AND detected_risk = 1`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []domain.ConversationRiskAnalysis
	for rows.Next() {
		var a domain.ConversationRiskAnalysis
		var analysisJSON string
		var escalation sql.NullString
		if err := rows.Scan(&a.ID, &a.ConversationID, &analysisJSON, &a.DetectedRisk, &escalation, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Analysis = json.RawMessage(analysisJSON)
		if escalation.Valid {
			a.Escalation = escalation.String
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}
