// Package domain contains core concepts of the messaging system.
// This file defines Message records and their allowed status transitions.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageStatus string

const (
	StatusUnread MessageStatus = "unread"
	StatusRead   MessageStatus = "read"
)

// Message is immutable once created, except for unread -> read and the soft-delete flag.
type Message struct {
	ID             uuid.UUID      `json:"id"`
	SenderID       UserID         `json:"sender"`
	RecipientID    UserID         `json:"recipient"`
	ConversationID ConversationID `json:"conversationId"`
	Text           string         `json:"text"`
	Deleted        bool           `json:"deleted"`
	Status         MessageStatus  `json:"status"`
	ReadAt         *time.Time     `json:"readAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// NewMessage builds an unread message between two users at the given time.
func NewMessage(sender, recipient UserID, text string, at time.Time) Message {
	return Message{
		ID:             uuid.New(),
		SenderID:       sender,
		RecipientID:    recipient,
		ConversationID: NewConversationID(sender, recipient),
		Text:           text,
		Status:         StatusUnread,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}

// MarkRead returns true when the message actually transitioned.
func (m *Message) MarkRead(at time.Time) bool {
	if m.Status == StatusRead {
		return false
	}
	m.Status = StatusRead
	m.ReadAt = &at
	m.UpdatedAt = at
	return true
}

func (m *Message) SoftDelete(at time.Time) {
	m.Deleted = true
	m.UpdatedAt = at
}
