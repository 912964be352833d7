package domain

import "time"

const ConversationSeparator = "_"

// ConversationID is derived from the two participants, never stored as an entity of its own.
type ConversationID string

func (c ConversationID) String() string { return string(c) }

// NewConversationID orders both identities so that NewConversationID(a, b) == NewConversationID(b, a).
func NewConversationID(a, b UserID) ConversationID {
	if b < a {
		a, b = b, a
	}
	return ConversationID(string(a) + ConversationSeparator + string(b))
}

// ConversationSummary is one entry of a user's conversation list.
type ConversationSummary struct {
	UserID        UserID    `json:"userId"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}
