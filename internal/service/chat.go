package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/model"
	"github.com/sakif/recipe-share/internal/repository"
)

const (
	ChatActiveWindow = 24 * time.Hour
	RecentChatsLimit = 10
)

// ChatService stores each user's chat-widget transcript.
type ChatService struct {
	repo   repository.ChatRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewChatService(repo repository.ChatRepository, logger *slog.Logger) *ChatService {
	return &ChatService{repo: repo, logger: logger, now: time.Now}
}

func (s *ChatService) History(ctx context.Context, user *model.User) ([]model.ChatMessage, error) {
	messages, err := s.repo.GetChat(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}
	return messages, nil
}

// Save replaces the user's whole transcript with messages and returns how
// many were stored.
//
// Each save overwrites the previous transcript, so two tabs saving
// concurrently lose whichever write lands first.
func (s *ChatService) Save(ctx context.Context, user *model.User, messages []model.ChatMessage) (int, error) {
	now := s.now()
	for i := range messages {
		if strings.TrimSpace(messages[i].Text) == "" {
			return 0, apperror.ValidationFailed("messages", fmt.Sprintf("messages[%d] must have text", i))
		}
		if !messages[i].Sender.Valid() {
			return 0, apperror.ValidationFailed("messages",
				fmt.Sprintf(`messages[%d]: sender must be either "user" or "bot"`, i))
		}
		if messages[i].Timestamp.IsZero() {
			messages[i].Timestamp = now
		}
	}

	if err := s.repo.SaveChat(ctx, user.ID, messages, now); err != nil {
		return 0, fmt.Errorf("saving chat history: %w", err)
	}

	s.logger.Debug("chat saved", slog.String("user", user.ID), slog.Int("messages", len(messages)))
	return len(messages), nil
}

func (s *ChatService) Clear(ctx context.Context, user *model.User) error {
	if err := s.repo.SaveChat(ctx, user.ID, []model.ChatMessage{}, s.now()); err != nil {
		return fmt.Errorf("clearing chat history: %w", err)
	}
	return nil
}

// Summary counts transcripts, those active in the last 24 hours, and lists
// the ten most recently active.
func (s *ChatService) Summary(ctx context.Context) (*model.ChatSummary, error) {
	summary, err := s.repo.ChatSummary(ctx, s.now().Add(-ChatActiveWindow), RecentChatsLimit)
	if err != nil {
		return nil, fmt.Errorf("summarising chats: %w", err)
	}
	return summary, nil
}
