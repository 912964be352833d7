package event

import (
	"encoding/json"
	"testing"

	"folio-chat/domain"

	"github.com/stretchr/testify/require"
)

func TestDecode_Round_Trips_Every_Event(t *testing.T) {
	req := require.New(t)
	events := []Event{
		ReceiveMessage{ID: "m1", Text: "hi", Sender: "a", Recipient: "b", ConversationID: domain.NewConversationID("a", "b")},
		RevalidateConversations{With: "b"},
		Error{Code: "RATE_LIMITED", Message: "slow down"},
	}
	for _, evt := range events {
		data, err := json.Marshal(evt)
		req.NoError(err)

		decoded, err := Decode(evt.Name(), data)
		req.NoError(err)
		req.Equal(evt, decoded)
	}
}

func TestDecode_Unknown_Event(t *testing.T) {
	_, err := Decode("ping", json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestReceiveMessage_Wire_Shape(t *testing.T) {
	req := require.New(t)
	msg := domain.NewMessage("a", "b", "hello", domain.Message{}.CreatedAt)

	data, err := json.Marshal(NewReceiveMessage(msg))
	req.NoError(err)

	var fields map[string]any
	req.NoError(json.Unmarshal(data, &fields))
	req.ElementsMatch([]string{"id", "text", "sender", "recipient", "conversationIdentity"}, keys(fields))
	req.Equal("a_b", fields["conversationIdentity"])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
