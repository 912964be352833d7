// Package pubsub carries events between instances over Redis pub/sub,
// so a connection can be reached from whichever instance handled the send.
package pubsub

import (
	"encoding/json"
	"fmt"

	"folio-chat/domain"
	"folio-chat/domain/event"
)

const DefaultChannel = "folio-chat:events"

// Envelope addresses an event to one connection, wherever it lives.
type Envelope struct {
	ConnID domain.ConnectionID `json:"conn"`
	Event  string              `json:"event"`
	Data   json.RawMessage     `json:"data"`
}

func Encode(connID domain.ConnectionID, evt event.Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", evt.Name(), err)
	}
	return json.Marshal(Envelope{ConnID: connID, Event: evt.Name(), Data: data})
}

func Decode(payload []byte) (domain.ConnectionID, event.Event, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", nil, fmt.Errorf("decode envelope: %w", err)
	}
	evt, err := event.Decode(env.Event, env.Data)
	if err != nil {
		return "", nil, err
	}
	return env.ConnID, evt, nil
}
