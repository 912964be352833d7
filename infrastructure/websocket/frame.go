package websocket

import (
	"encoding/json"

	"folio-chat/domain"
	"folio-chat/domain/chat"
	"folio-chat/domain/event"
)

// Client -> server event names.
const (
	RegisterEvent    = "register"
	SendMessageEvent = "sendMessage"
)

// Frame is the JSON envelope of every WebSocket text message, in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(evt event.Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: evt.Name(), Data: data})
}

// decodeRegister accepts {"userId": "..."}, a bare JSON string, or nothing.
func decodeRegister(data json.RawMessage) (chat.RegisterCommand, error) {
	var cmd chat.RegisterCommand
	if len(data) == 0 || string(data) == "null" {
		return cmd, nil
	}
	if data[0] == '"' {
		var userID string
		err := json.Unmarshal(data, &userID)
		cmd.UserID = domain.UserID(userID)
		return cmd, err
	}
	err := json.Unmarshal(data, &cmd)
	return cmd, err
}
