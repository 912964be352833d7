// Package event defines the server -> client events emitted by the messaging core.
// Their JSON shapes are the wire schema seen by clients.
package event

import (
	"encoding/json"
	"fmt"

	"folio-chat/domain"
)

const (
	ReceiveMessageName          = "receiveMessage"
	RevalidateConversationsName = "revalidateConversations"
	ErrorName                   = "error"
)

type Event interface {
	Name() string
}

// ReceiveMessage is the delivery payload. Status and soft-delete fields are never exposed here.
type ReceiveMessage struct {
	ID             string                `json:"id"`
	Text           string                `json:"text"`
	Sender         domain.UserID         `json:"sender"`
	Recipient      domain.UserID         `json:"recipient"`
	ConversationID domain.ConversationID `json:"conversationIdentity"`
}

func (ReceiveMessage) Name() string { return ReceiveMessageName }

func NewReceiveMessage(m domain.Message) ReceiveMessage {
	return ReceiveMessage{
		ID:             m.ID.String(),
		Text:           m.Text,
		Sender:         m.SenderID,
		Recipient:      m.RecipientID,
		ConversationID: m.ConversationID,
	}
}

// RevalidateConversations tells a client its conversation list changed.
type RevalidateConversations struct {
	With domain.UserID `json:"with"`
}

func (RevalidateConversations) Name() string { return RevalidateConversationsName }

type Error struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (Error) Name() string { return ErrorName }

// Decode rebuilds an event from its name and JSON payload.
func Decode(name string, data json.RawMessage) (Event, error) {
	var (
		evt Event
		err error
	)
	switch name {
	case ReceiveMessageName:
		var e ReceiveMessage
		err = json.Unmarshal(data, &e)
		evt = e
	case RevalidateConversationsName:
		var e RevalidateConversations
		err = json.Unmarshal(data, &e)
		evt = e
	case ErrorName:
		var e Error
		err = json.Unmarshal(data, &e)
		evt = e
	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
	if err != nil {
		return nil, err
	}
	return evt, nil
}
