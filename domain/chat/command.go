// Package chat holds the client intents accepted by the messaging core and their validation rules.
package chat

import (
	"folio-chat/domain"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterCommand is carried by the "register" event.
// UserID may be empty when the connection already has a session identity.
type RegisterCommand struct {
	UserID domain.UserID `json:"userId" validate:"omitempty,max=128,excludes=_"`
}

// SendMessageCommand is carried by the "sendMessage" event.
type SendMessageCommand struct {
	To   domain.UserID `json:"to" validate:"required,max=128,excludes=_"`
	Text string        `json:"text" validate:"required"`
}

// GetMessagesCommand is the pagination fetch between two users.
type GetMessagesCommand struct {
	User1 domain.UserID `json:"user1" validate:"required,max=128,excludes=_"`
	User2 domain.UserID `json:"user2" validate:"required,max=128,excludes=_"`
	Page  domain.Page   `json:"-"`
}

func (c RegisterCommand) Validate() error {
	return validate.Struct(c)
}

func (c SendMessageCommand) Validate() error {
	return validate.Struct(c)
}

// TooLong reports whether the text exceeds maxLength runes. A non-positive maxLength disables the check.
func (c SendMessageCommand) TooLong(maxLength int) bool {
	return maxLength > 0 && utf8.RuneCountInString(c.Text) > maxLength
}

func (c GetMessagesCommand) Validate() error {
	return validate.Struct(c)
}
