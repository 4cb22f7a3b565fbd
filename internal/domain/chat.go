package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	// SenderUser marks messages typed by the visitor.
	SenderUser Sender = "user"
	// SenderBot marks assistant replies.
	SenderBot Sender = "bot"
)

// Link is a hyperlink attached to a bot reply.
type Link struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

// ChatMessage is one transcript entry. Messages are never modified after
// creation.
type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Kind      string    `json:"kind,omitempty"`
	Link      *Link     `json:"link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserMessage creates a message authored by the visitor.
func NewUserMessage(text string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderUser,
		CreatedAt: at,
	}
}

// NewBotMessage creates an assistant reply of the given outcome kind.
func NewBotMessage(text, kind string, link *Link, at time.Time) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderBot,
		Kind:      kind,
		Link:      link,
		CreatedAt: at,
	}
}

// ChatLogEntry is a diagnostic record of one chat message, written to the
// chat log table. It is never read back into a session.
type ChatLogEntry struct {
	UserID    string
	SessionID string
	Message   ChatMessage
}
