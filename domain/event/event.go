// Package event defines the server-to-client events pushed over a connection.
package event

import (
	"chat-relay/domain"

	"github.com/google/uuid"
)

// Name is the wire name of an outbound event.
type Name string

const (
	NewMessageName            Name = "new_message"
	TypingName                Name = "typing"
	OnlineUsersName           Name = "online_users"
	MessageDeliveredName      Name = "message_delivered"
	MessageReadName           Name = "message_read"
	FriendRequestName         Name = "friend_request"
	FriendRequestAcceptedName Name = "friend_request_accepted"
	CommandRejectedName       Name = "error"
)

type DomainEvent interface {
	EventName() Name
}

// NewMessage carries a persisted message to the recipient and echoes it to the sender.
type NewMessage struct {
	Message domain.Message
}

func (NewMessage) EventName() Name { return NewMessageName }

type Typing struct {
	From domain.UserID
}

func (Typing) EventName() Name { return TypingName }

// OnlineUsers is the full online set, never a delta.
type OnlineUsers struct {
	Users []domain.UserID
}

func (OnlineUsers) EventName() Name { return OnlineUsersName }

type MessageDelivered struct {
	MessageID uuid.UUID
}

func (MessageDelivered) EventName() Name { return MessageDeliveredName }

type MessageRead struct {
	MessageID uuid.UUID
}

func (MessageRead) EventName() Name { return MessageReadName }

// SocialNotification is relayed on behalf of the friends collaborator.
// Kind is either FriendRequestName or FriendRequestAcceptedName.
type SocialNotification struct {
	Kind         Name
	FromUserID   domain.UserID
	FromUsername string
}

func (s SocialNotification) EventName() Name { return s.Kind }

// CommandRejected is only ever sent back to the connection that issued the command.
type CommandRejected struct {
	Event  string
	Reason string
}

func (CommandRejected) EventName() Name { return CommandRejectedName }
