package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/recipe-share/internal/model"
	"github.com/sakif/recipe-share/internal/repository"
)

var _ repository.ChatRepository = (*DB)(nil)

// GetChat returns the user's transcript, or an empty one if none was saved.
func (db *DB) GetChat(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx,
		`SELECT messages FROM chats WHERE user_id = ?`, userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []model.ChatMessage{}, nil
		}
		return nil, fmt.Errorf("sqlite: getting chat for %s: %w", userID, err)
	}

	messages := []model.ChatMessage{}
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("sqlite: decoding chat for %s: %w", userID, err)
	}
	return messages, nil
}

// SaveChat overwrites the user's transcript with messages.
func (db *DB) SaveChat(ctx context.Context, userID string, messages []model.ChatMessage, now time.Time) error {
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("sqlite: encoding chat: %w", err)
	}

	now = now.UTC()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO chats (user_id, messages, last_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     messages = excluded.messages,
		     last_active = excluded.last_active,
		     updated_at = excluded.updated_at`,
		userID, string(raw), now, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving chat for %s: %w", userID, err)
	}
	return nil
}

// ChatSummary counts all transcripts, those active since activeSince, and
// lists the most recently active ones.
func (db *DB) ChatSummary(ctx context.Context, activeSince time.Time, recent int) (*model.ChatSummary, error) {
	summary := &model.ChatSummary{RecentChats: []model.ChatActivity{}}

	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN last_active >= ? THEN 1 ELSE 0 END), 0)
		 FROM chats`,
		activeSince.UTC(),
	).Scan(&summary.TotalChats, &summary.ActiveChats)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting chats: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT COALESCE(u.name, ''), json_array_length(c.messages), c.last_active
		 FROM chats c
		 LEFT JOIN users u ON u.id = c.user_id
		 ORDER BY c.last_active DESC
		 LIMIT ?`,
		recent,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recent chats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a model.ChatActivity
		if err := rows.Scan(&a.Name, &a.MessageCount, &a.LastActive); err != nil {
			return nil, fmt.Errorf("sqlite: scanning chat row: %w", err)
		}
		summary.RecentChats = append(summary.RecentChats, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating chats: %w", err)
	}
	return summary, nil
}
