// Package domain contains core concepts of the relay.
// This file defines the private Message and its delivery lifecycle.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserID is the opaque identity issued by the auth collaborator.
type UserID string

// Status is the position of a message in its lifecycle.
// It is derived from the Delivered and Read flags, never stored.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Message is a point-to-point text message.
// Sender, recipient, text and creation time never change once persisted.
// Delivered and Read only ever move from false to true.
type Message struct {
	ID          uuid.UUID
	SenderID    UserID
	RecipientID UserID
	Text        string
	CreatedAt   time.Time
	Delivered   bool
	Read        bool
}

// Status reports the furthest lifecycle step reached.
// A message may be read without a delivered step observed by the server.
func (m Message) Status() Status {
	switch {
	case m.Read:
		return StatusRead
	case m.Delivered:
		return StatusDelivered
	default:
		return StatusSent
	}
}

// Involves reports whether the user is one of the two parties.
func (m Message) Involves(userID UserID) bool {
	return m.SenderID == userID || m.RecipientID == userID
}
