package model

import "time"

type ChatSender string

const (
	ChatSenderUser ChatSender = "user"
	ChatSenderBot  ChatSender = "bot"
)

func (s ChatSender) Valid() bool {
	return s == ChatSenderUser || s == ChatSenderBot
}

// ChatMessage is one line of a user's chat-widget transcript.
type ChatMessage struct {
	Text      string     `json:"text"`
	Sender    ChatSender `json:"sender"`
	Timestamp time.Time  `json:"timestamp"`
}

// ChatActivity summarises one transcript for the admin view.
type ChatActivity struct {
	Name         string    `json:"name"`
	MessageCount int       `json:"messageCount"`
	LastActive   time.Time `json:"lastActive"`
}

type ChatSummary struct {
	TotalChats  int            `json:"totalChats"`
	ActiveChats int            `json:"activeChats"`
	RecentChats []ChatActivity `json:"recentChats"`
}
