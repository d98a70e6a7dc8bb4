package domain

import (
	"fmt"

	"chat-relay/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Command is an inbound client request, named after its wire event.
type Command interface {
	EventName() string
}

type RegisterCommand struct {
	UserID UserID `validate:"required"`
}

func (RegisterCommand) EventName() string { return "register" }

type SendMessageCommand struct {
	SenderID    UserID `validate:"required"`
	RecipientID UserID `validate:"required"`
	Text        string `validate:"required,max=4096"`
}

func (SendMessageCommand) EventName() string { return "private_message" }

type TypingCommand struct {
	From UserID `validate:"required"`
	To   UserID `validate:"required"`
}

func (TypingCommand) EventName() string { return "typing" }

type MarkDeliveredCommand struct {
	MessageID string `validate:"required,uuid"`
}

func (MarkDeliveredCommand) EventName() string { return "mark_as_delivered" }

type MarkReadCommand struct {
	MessageID string `validate:"required,uuid"`
}

func (MarkReadCommand) EventName() string { return "mark_as_read" }

// Validate checks the struct tags of a command.
// Any violation is reported as ErrInvalidCommand.
func Validate(cmd Command) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrInvalidCommand, cmd.EventName(), err)
	}
	return nil
}
