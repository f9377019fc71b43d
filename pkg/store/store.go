// Package store persists chat sessions and turns in MySQL. Persistence is
// best-effort: callers log failures and keep serving.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
)

const (
	RoleUser  = "USER"
	RoleAgent = "AGENT"

	TypeGenerate = "GENERATE"
	TypeVoice    = "VOICE"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS session (
	session_id BIGINT AUTO_INCREMENT PRIMARY KEY,
	member_id BIGINT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_session_member_id (member_id)
)`

const chatbotSchema = `
CREATE TABLE IF NOT EXISTS chatbot (
	chat_id BIGINT AUTO_INCREMENT PRIMARY KEY,
	member_id BIGINT NOT NULL,
	session_id BIGINT NOT NULL,
	role ENUM('USER', 'AGENT') NOT NULL,
	text TEXT,
	type ENUM('GENERATE', 'VOICE') NOT NULL DEFAULT 'GENERATE',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_chatbot_member_id (member_id),
	INDEX idx_chatbot_session_time (session_id, created_at)
)`

// Store wraps the MySQL connection for session and chat persistence.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens the database, verifies connectivity and creates tables.
func New(dsn string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	store := &Store{db: db, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema() error {
	for _, schema := range []string{sessionSchema, chatbotSchema} {
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession mints a durable session id for the member.
func (s *Store) CreateSession(ctx context.Context, memberID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO session (member_id) VALUES (?)", memberID)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	sessionID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read session id: %w", err)
	}
	s.log.Info("session created", "session_id", sessionID, "member_id", memberID)
	return sessionID, nil
}

// AddChatMessage records one turn under the session.
func (s *Store) AddChatMessage(ctx context.Context, memberID, sessionID int64, role, chatType, text string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO chatbot (member_id, session_id, role, text, type) VALUES (?, ?, ?, ?, ?)",
		memberID, sessionID, role, text, chatType)
	if err != nil {
		return 0, fmt.Errorf("failed to add chat message: %w", err)
	}
	chatID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read chat id: %w", err)
	}
	return chatID, nil
}

// ChatMessage is one persisted turn.
type ChatMessage struct {
	ChatID    int64  `json:"chat_id"`
	SessionID int64  `json:"session_id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Type      string `json:"type"`
}

// SessionChats returns a session's turns in time order.
func (s *Store) SessionChats(ctx context.Context, sessionID int64) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT chat_id, session_id, role, text, type FROM chatbot WHERE session_id = ? ORDER BY created_at ASC",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session chats: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ChatID, &msg.SessionID, &msg.Role, &msg.Text, &msg.Type); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
