// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides chat persistence for polychat.
//
// Chats are stored in a single SQLite database at ~/.polychat/chats.db.
// The schema is two tables: chats for session metadata (including any
// outstanding background task) and messages for the ordered transcript.
// Message order is the seq column, assigned from slice position on save.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/polychat/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrChatNotFound is returned when a chat ID does not exist in the store.
// Use errors.Is(err, ErrChatNotFound) to check for this error.
var ErrChatNotFound = &StoreError{Message: "chat not found"}

// StoreError represents a storage-related error.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS chats (
	id              TEXT PRIMARY KEY,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL,
	system_prompt   TEXT NOT NULL DEFAULT '',
	summary         TEXT NOT NULL DEFAULT '',
	task_id         TEXT NOT NULL DEFAULT '',
	task_status     TEXT NOT NULL DEFAULT '',
	task_provider   TEXT NOT NULL DEFAULT '',
	task_model      TEXT NOT NULL DEFAULT '',
	task_started_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT NOT NULL,
	chat_id     TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	role        TEXT NOT NULL,
	timestamp   INTEGER NOT NULL,
	content     TEXT NOT NULL,
	image_url   TEXT NOT NULL DEFAULT '',
	model_id    TEXT NOT NULL DEFAULT '',
	reasoning   TEXT NOT NULL DEFAULT '',
	input_tok   INTEGER NOT NULL DEFAULT 0,
	output_tok  INTEGER NOT NULL DEFAULT 0,
	cached_tok  INTEGER NOT NULL DEFAULT 0,
	stop_reason TEXT NOT NULL DEFAULT '',
	cost        REAL NOT NULL DEFAULT 0,
	elapsed_ms  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (chat_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_chats_updated ON chats(updated_at DESC);
`

// =============================================================================
// CHAT STORE
// =============================================================================

// ChatMeta contains metadata for listing chats without loading transcripts.
type ChatMeta struct {
	ID           string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Summary      string
	MessageCount int
	Preview      string
	TotalCost    float64
	// HasPendingTask is true when a background task is still outstanding.
	HasPendingTask bool
}

// Store handles chat persistence over a SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".polychat", "chats.db"), nil
}

// Open opens (creating if needed) the chat database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenDefault opens the store at the default location.
func OpenDefault() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists the full chat, replacing any previous version. Messages are
// rewritten from the in-memory transcript; since chats are append-only this
// is equivalent to an incremental append but survives forks and edits.
func (s *Store) Save(chat *model.Chat) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var taskID, taskStatus, taskProvider, taskModel string
	var taskStarted int64
	if t := chat.BackgroundTask; t != nil {
		taskID = t.ID
		taskStatus = string(t.Status)
		taskProvider = t.Provider
		taskModel = t.ModelID
		taskStarted = t.StartedAt.UnixMilli()
	}

	_, err = tx.Exec(`
		INSERT INTO chats (id, created_at, updated_at, system_prompt, summary,
			task_id, task_status, task_provider, task_model, task_started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			system_prompt = excluded.system_prompt,
			summary = excluded.summary,
			task_id = excluded.task_id,
			task_status = excluded.task_status,
			task_provider = excluded.task_provider,
			task_model = excluded.task_model,
			task_started_at = excluded.task_started_at`,
		chat.ID, chat.CreatedAt.UnixMilli(), time.Now().UnixMilli(),
		chat.SystemPrompt, chat.Summary,
		taskID, taskStatus, taskProvider, taskModel, taskStarted)
	if err != nil {
		return fmt.Errorf("failed to upsert chat: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE chat_id = ?", chat.ID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (id, chat_id, seq, role, timestamp, content, image_url,
			model_id, reasoning, input_tok, output_tok, cached_tok,
			stop_reason, cost, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for seq, msg := range chat.Messages {
		_, err := stmt.Exec(msg.ID, chat.ID, seq, string(msg.Role),
			msg.Timestamp.UnixMilli(), msg.Content, msg.ImageURL,
			msg.ModelID, msg.Reasoning,
			msg.Tokens.Input, msg.Tokens.Output, msg.Tokens.InputCacheHit,
			msg.StopReason, msg.Cost, msg.ElapsedMs)
		if err != nil {
			return fmt.Errorf("failed to insert message %d: %w", seq, err)
		}
	}

	return tx.Commit()
}

// SetSummary updates just the cached summary line for a chat. Used by the
// best-effort summarizer so a summary write never clobbers a transcript
// saved concurrently.
func (s *Store) SetSummary(chatID, summary string) error {
	res, err := s.db.Exec("UPDATE chats SET summary = ? WHERE id = ?", summary, chatID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrChatNotFound
	}
	return nil
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a chat and its full transcript by ID.
func (s *Store) Load(id string) (*model.Chat, error) {
	var chat model.Chat
	var createdAt int64
	var taskID, taskStatus, taskProvider, taskModel string
	var taskStarted int64

	err := s.db.QueryRow(`
		SELECT id, created_at, system_prompt, summary,
			task_id, task_status, task_provider, task_model, task_started_at
		FROM chats WHERE id = ?`, id).Scan(
		&chat.ID, &createdAt, &chat.SystemPrompt, &chat.Summary,
		&taskID, &taskStatus, &taskProvider, &taskModel, &taskStarted)
	if err == sql.ErrNoRows {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	chat.CreatedAt = time.UnixMilli(createdAt)

	if taskID != "" {
		chat.BackgroundTask = &model.BackgroundTask{
			ID:        taskID,
			Status:    model.TaskStatus(taskStatus),
			Provider:  taskProvider,
			ModelID:   taskModel,
			StartedAt: time.UnixMilli(taskStarted),
		}
	}

	rows, err := s.db.Query(`
		SELECT id, role, timestamp, content, image_url, model_id, reasoning,
			input_tok, output_tok, cached_tok, stop_reason, cost, elapsed_ms
		FROM messages WHERE chat_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.ChatMessage
		var role string
		var ts int64
		err := rows.Scan(&msg.ID, &role, &ts, &msg.Content, &msg.ImageURL,
			&msg.ModelID, &msg.Reasoning,
			&msg.Tokens.Input, &msg.Tokens.Output, &msg.Tokens.InputCacheHit,
			&msg.StopReason, &msg.Cost, &msg.ElapsedMs)
		if err != nil {
			return nil, err
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.UnixMilli(ts)
		chat.Messages = append(chat.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &chat, nil
}

// MostRecent loads the most recently updated chat, or ErrChatNotFound when
// the store is empty.
func (s *Store) MostRecent() (*model.Chat, error) {
	var id string
	err := s.db.QueryRow("SELECT id FROM chats ORDER BY updated_at DESC LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Load(id)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns metadata for all chats, most recently updated first.
func (s *Store) List() ([]ChatMeta, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.created_at, c.updated_at, c.summary, c.task_id,
			COUNT(m.seq),
			COALESCE((SELECT content FROM messages
				WHERE chat_id = c.id AND role = 'user' ORDER BY seq LIMIT 1), ''),
			COALESCE(SUM(m.cost), 0)
		FROM chats c
		LEFT JOIN messages m ON m.chat_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []ChatMeta
	for rows.Next() {
		var meta ChatMeta
		var createdAt, updatedAt int64
		var taskID, preview string
		err := rows.Scan(&meta.ID, &createdAt, &updatedAt, &meta.Summary,
			&taskID, &meta.MessageCount, &preview, &meta.TotalCost)
		if err != nil {
			return nil, err
		}
		meta.CreatedAt = time.UnixMilli(createdAt)
		meta.UpdatedAt = time.UnixMilli(updatedAt)
		meta.Preview = truncateString(preview, 80)
		meta.HasPendingTask = taskID != ""
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// ListPending returns metadata for chats with an outstanding background task.
func (s *Store) ListPending() ([]ChatMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var pending []ChatMeta
	for _, meta := range all {
		if meta.HasPendingTask {
			pending = append(pending, meta)
		}
	}
	return pending, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a chat and its messages by ID.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM chats WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrChatNotFound
	}
	return nil
}

// Clear removes all saved chats.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM chats")
	return err
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// truncateString truncates a string to maxLen characters, adding "..." when
// truncated. Rune-based for Unicode safety.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
