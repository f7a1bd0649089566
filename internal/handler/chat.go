package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/auth"
	"github.com/sakif/recipe-share/internal/model"
)

type ChatService interface {
	History(ctx context.Context, user *model.User) ([]model.ChatMessage, error)
	Save(ctx context.Context, user *model.User, messages []model.ChatMessage) (int, error)
	Clear(ctx context.Context, user *model.User) error
	Summary(ctx context.Context) (*model.ChatSummary, error)
}

// ChatHandler persists the recipe-assistant widget's transcript per user.
type ChatHandler struct {
	chats  ChatService
	logger *slog.Logger
	responder
}

func NewChatHandler(chats ChatService, logger *slog.Logger, opts Options) *ChatHandler {
	return &ChatHandler{chats: chats, logger: logger, responder: newResponder(logger, opts)}
}

// HandleHistory returns the caller's transcript, oldest first.
//
// HTTP: GET /api/chat/history
func (h *ChatHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	messages, err := h.chats.History(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type saveChatRequest struct {
	Messages []model.ChatMessage `json:"messages"`
}

// HandleSave replaces the caller's transcript.
//
// HTTP: POST /api/chat/save
// REQUEST BODY: {"messages": [{"text": "hi", "sender": "user"}]}
func (h *ChatHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req saveChatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Messages == nil {
		h.writeError(w, r, apperror.ValidationFailed("messages", "Messages must be an array"))
		return
	}

	n, err := h.chats.Save(r.Context(), user, req.Messages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Chat history saved successfully",
		"messagesCount": n,
	})
}

// HandleClear empties the caller's transcript.
//
// HTTP: DELETE /api/chat/clear
func (h *ChatHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := h.chats.Clear(r.Context(), user); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat history cleared successfully"})
}

// HandleSummary reports chat activity for the admin dashboard.
//
// HTTP: GET /api/chat/summary
func (h *ChatHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.chats.Summary(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
