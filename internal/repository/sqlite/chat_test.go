package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/recipe-share/internal/model"
)

func TestChat_EmptyThenOverwrite(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "g-1", "ann")
	ctx := context.Background()
	now := time.Now()

	messages, err := db.GetChat(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if messages == nil || len(messages) != 0 {
		t.Errorf("GetChat() = %v, want empty slice", messages)
	}

	first := []model.ChatMessage{
		{Text: "hi", Sender: model.ChatSenderUser, Timestamp: now},
		{Text: "hello!", Sender: model.ChatSenderBot, Timestamp: now},
	}
	if err := db.SaveChat(ctx, user.ID, first, now); err != nil {
		t.Fatalf("SaveChat() error = %v", err)
	}

	second := []model.ChatMessage{{Text: "only this", Sender: model.ChatSenderUser, Timestamp: now}}
	if err := db.SaveChat(ctx, user.ID, second, now.Add(time.Minute)); err != nil {
		t.Fatalf("SaveChat() error = %v", err)
	}

	messages, err = db.GetChat(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if len(messages) != 1 || messages[0].Text != "only this" {
		t.Errorf("GetChat() = %+v, want the second transcript only", messages)
	}

	if err := db.SaveChat(ctx, user.ID, nil, now); err != nil {
		t.Fatalf("SaveChat(nil) error = %v", err)
	}
	messages, err = db.GetChat(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("GetChat() after clear = %+v, want empty", messages)
	}
}

func TestChatSummary(t *testing.T) {
	db := newTestDB(t)
	ann := createTestUser(t, db, "g-1", "ann")
	bob := createTestUser(t, db, "g-2", "bob")
	ctx := context.Background()
	now := time.Now()

	msg := model.ChatMessage{Text: "hi", Sender: model.ChatSenderUser, Timestamp: now}
	if err := db.SaveChat(ctx, ann.ID, []model.ChatMessage{msg, msg, msg}, now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("SaveChat() error = %v", err)
	}
	if err := db.SaveChat(ctx, bob.ID, []model.ChatMessage{msg}, now); err != nil {
		t.Fatalf("SaveChat() error = %v", err)
	}

	s, err := db.ChatSummary(ctx, now.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("ChatSummary() error = %v", err)
	}
	if s.TotalChats != 2 || s.ActiveChats != 1 {
		t.Errorf("TotalChats=%d ActiveChats=%d, want 2 and 1", s.TotalChats, s.ActiveChats)
	}
	if len(s.RecentChats) != 2 {
		t.Fatalf("len(RecentChats) = %d, want 2", len(s.RecentChats))
	}
	if s.RecentChats[0].Name != "bob" || s.RecentChats[0].MessageCount != 1 {
		t.Errorf("most recent chat = %+v, want bob with 1 message", s.RecentChats[0])
	}
	if s.RecentChats[1].MessageCount != 3 {
		t.Errorf("MessageCount = %d, want 3", s.RecentChats[1].MessageCount)
	}
}
