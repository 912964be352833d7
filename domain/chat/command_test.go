package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendMessageCommand_TooLong(t *testing.T) {
	req := require.New(t)
	req.False(SendMessageCommand{Text: strings.Repeat("a", 10)}.TooLong(10))
	req.True(SendMessageCommand{Text: strings.Repeat("a", 11)}.TooLong(10))
	req.False(SendMessageCommand{Text: strings.Repeat("é", 10)}.TooLong(10))
	req.False(SendMessageCommand{Text: strings.Repeat("a", 1000)}.TooLong(0))
}

func TestSendMessageCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     SendMessageCommand
		wantErr bool
	}{
		{"valid", SendMessageCommand{To: "bob", Text: "hi"}, false},
		{"missing recipient", SendMessageCommand{Text: "hi"}, true},
		{"missing text", SendMessageCommand{To: "bob"}, true},
		{"separator in recipient", SendMessageCommand{To: "a_b", Text: "hi"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRegisterCommand_Rejects_Separator(t *testing.T) {
	req := require.New(t)
	req.NoError(RegisterCommand{}.Validate())
	req.NoError(RegisterCommand{UserID: "64a1f0"}.Validate())
	req.Error(RegisterCommand{UserID: "a_b"}.Validate())
}

func TestGetMessagesCommand_Validate(t *testing.T) {
	req := require.New(t)
	req.NoError(GetMessagesCommand{User1: "a", User2: "b"}.Validate())
	req.Error(GetMessagesCommand{User1: "a"}.Validate())
	// "a" with "b_c" would read the conversation of "a_b" with "c"
	req.Error(GetMessagesCommand{User1: "a", User2: "b_c"}.Validate())
}
