// Package gateway is the websocket transport of the relay.
// It turns JSON frames into commands for the orchestrator and pushes
// domain events back as frames, one writer goroutine per connection.
package gateway

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Frame is the envelope of every message on the wire, in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type PrivateMessagePayload struct {
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	Text        string `json:"text"`
}

type TypingPayload struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

type MessageRefPayload struct {
	MessageID string `json:"messageId"`
}

type MessagePayload struct {
	ID          uuid.UUID `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	Delivered   bool      `json:"delivered"`
	Read        bool      `json:"read"`
}

type SocialPayload struct {
	FromUserID   string `json:"fromUserId"`
	FromUsername string `json:"fromUsername"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// DecodeCommand parses an inbound frame. The event name is returned even
// when the payload is invalid so the rejection can name it.
func DecodeCommand(raw []byte) (domain.Command, string, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, "", fmt.Errorf("%w: malformed frame: %v", errors.ErrInvalidCommand, err)
	}

	var (
		cmd domain.Command
		err error
	)
	switch frame.Event {
	case "register":
		var userID string
		err = json.Unmarshal(frame.Data, &userID)
		cmd = domain.RegisterCommand{UserID: domain.UserID(userID)}
	case "private_message":
		var p PrivateMessagePayload
		err = json.Unmarshal(frame.Data, &p)
		cmd = domain.SendMessageCommand{
			SenderID:    domain.UserID(p.SenderID),
			RecipientID: domain.UserID(p.RecipientID),
			Text:        p.Text,
		}
	case "typing":
		var p TypingPayload
		err = json.Unmarshal(frame.Data, &p)
		cmd = domain.TypingCommand{From: domain.UserID(p.From), To: domain.UserID(p.To)}
	case "mark_as_delivered":
		var p MessageRefPayload
		err = json.Unmarshal(frame.Data, &p)
		cmd = domain.MarkDeliveredCommand{MessageID: p.MessageID}
	case "mark_as_read":
		var p MessageRefPayload
		err = json.Unmarshal(frame.Data, &p)
		cmd = domain.MarkReadCommand{MessageID: p.MessageID}
	default:
		return nil, frame.Event, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event)
	}
	if err != nil {
		return nil, frame.Event, fmt.Errorf("%w: %s: %v", errors.ErrInvalidCommand, frame.Event, err)
	}
	return cmd, frame.Event, nil
}

// EncodeEvent renders an outbound event as a frame.
func EncodeEvent(e event.DomainEvent) ([]byte, error) {
	var data any
	switch evt := e.(type) {
	case event.NewMessage:
		data = ToMessagePayload(evt.Message)
	case event.Typing:
		data = TypingPayload{From: string(evt.From)}
	case event.OnlineUsers:
		// Always an array on the wire, never null.
		data = lo.Map(evt.Users, func(u domain.UserID, _ int) string { return string(u) })
	case event.MessageDelivered:
		data = MessageRefPayload{MessageID: evt.MessageID.String()}
	case event.MessageRead:
		data = MessageRefPayload{MessageID: evt.MessageID.String()}
	case event.SocialNotification:
		data = SocialPayload{FromUserID: string(evt.FromUserID), FromUsername: evt.FromUsername}
	case event.CommandRejected:
		data = ErrorPayload{Event: evt.Event, Message: evt.Reason}
	default:
		return nil, fmt.Errorf("%w: %T", errors.ErrUnknownEvent, e)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: string(e.EventName()), Data: raw})
}

func ToMessagePayload(m domain.Message) MessagePayload {
	return MessagePayload{
		ID:          m.ID,
		SenderID:    string(m.SenderID),
		RecipientID: string(m.RecipientID),
		Text:        m.Text,
		Timestamp:   m.CreatedAt,
		Delivered:   m.Delivered,
		Read:        m.Read,
	}
}

// NewFrame builds a raw frame, used by clients to send commands.
func NewFrame(name string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: name, Data: raw})
}
