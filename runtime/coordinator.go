package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DeliveryCoordinator owns the message lifecycle: sent, delivered, read.
// Flags are written independently so delivered and read acknowledgements
// commute, and only the call that flips a flag notifies the sender.
type DeliveryCoordinator struct {
	log         *slog.Logger
	registry    contract.IRegistry
	messages    repositories.IMessageRepository
	monitoring  *observability.MonitoringManager
	pushTimeout time.Duration
}

func NewDeliveryCoordinator(log *slog.Logger, registry contract.IRegistry,
	messages repositories.IMessageRepository, monitoring *observability.MonitoringManager,
	pushTimeout time.Duration) *DeliveryCoordinator {
	return &DeliveryCoordinator{
		log:         log,
		registry:    registry,
		messages:    messages,
		monitoring:  monitoring,
		pushTimeout: pushTimeout,
	}
}

// Send persists the message and pushes it to both parties.
// Delivered is decided by the recipient's presence at persist time and is
// never re-evaluated. If persistence fails nothing is pushed.
func (c *DeliveryCoordinator) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if err := domain.Validate(cmd); err != nil {
		return domain.Message{}, err
	}

	_, reachable := c.registry.Lookup(cmd.RecipientID)
	message, err := c.messages.Create(ctx, cmd.SenderID, cmd.RecipientID, cmd.Text, reachable)
	if err != nil {
		c.monitoring.IncrPersistFailures()
		return domain.Message{}, fmt.Errorf("%w: %w", errors.ErrPersistenceFailed, err)
	}
	c.monitoring.IncrMessagesSent()

	evt := event.NewMessage{Message: message}
	recipientConn, recipientOnline := c.registry.Lookup(message.RecipientID)
	if recipientOnline {
		c.push(ctx, recipientConn, message.RecipientID, evt)
	}
	// The echo lets the sender's session render the stored copy.
	// A user messaging itself is pushed once.
	if senderConn, ok := c.registry.Lookup(message.SenderID); ok {
		if !recipientOnline || senderConn.ID() != recipientConn.ID() {
			c.push(ctx, senderConn, message.SenderID, evt)
		}
	}

	c.log.Debug("Message sent",
		"message_id", message.ID,
		"sender_id", message.SenderID,
		"recipient_id", message.RecipientID,
		"delivered", message.Delivered)
	return message, nil
}

// MarkDelivered flags the message as delivered and acknowledges it to the sender.
// Unknown messages are ignored.
func (c *DeliveryCoordinator) MarkDelivered(ctx context.Context, cmd domain.MarkDeliveredCommand) error {
	id, err := parseMessageID(cmd)
	if err != nil {
		return err
	}
	message, changed, err := c.messages.SetDelivered(ctx, id)
	if err != nil {
		return c.ackFailure(err, id)
	}
	if !changed {
		return nil
	}
	c.monitoring.IncrMessagesDelivered()
	c.notifySender(ctx, message, event.MessageDelivered{MessageID: message.ID})
	return nil
}

// MarkRead flags the message as read and acknowledges it to the sender.
// Delivered is left untouched. Unknown messages are ignored.
func (c *DeliveryCoordinator) MarkRead(ctx context.Context, cmd domain.MarkReadCommand) error {
	id, err := parseMessageID(cmd)
	if err != nil {
		return err
	}
	message, changed, err := c.messages.SetRead(ctx, id)
	if err != nil {
		return c.ackFailure(err, id)
	}
	if !changed {
		return nil
	}
	c.monitoring.IncrMessagesRead()
	c.notifySender(ctx, message, event.MessageRead{MessageID: message.ID})
	return nil
}

func (c *DeliveryCoordinator) ackFailure(err error, id uuid.UUID) error {
	if stderrors.Is(err, errors.ErrMessageNotFound) {
		c.log.Debug("Acknowledgement for unknown message ignored", "message_id", id)
		return nil
	}
	c.monitoring.IncrPersistFailures()
	return fmt.Errorf("%w: %w", errors.ErrPersistenceFailed, err)
}

func (c *DeliveryCoordinator) notifySender(ctx context.Context, message domain.Message, evt event.DomainEvent) {
	conn, ok := c.registry.Lookup(message.SenderID)
	if !ok {
		return
	}
	c.push(ctx, conn, message.SenderID, evt)
}

// push is best effort: a failing connection is treated as offline.
func (c *DeliveryCoordinator) push(ctx context.Context, conn contract.Connection, userID domain.UserID, evt event.DomainEvent) {
	pushCtx, cancel := context.WithTimeout(ctx, c.pushTimeout)
	defer cancel()
	if err := conn.Consume(pushCtx, evt); err != nil {
		c.monitoring.IncrPushFailures()
		c.log.Warn("Failed to push event",
			"event", evt.EventName(),
			"user_id", userID,
			"connection_id", conn.ID(),
			"error", err)
	}
}

func parseMessageID(cmd domain.Command) (uuid.UUID, error) {
	if err := domain.Validate(cmd); err != nil {
		return uuid.Nil, err
	}
	var raw string
	switch c := cmd.(type) {
	case domain.MarkDeliveredCommand:
		raw = c.MessageID
	case domain.MarkReadCommand:
		raw = c.MessageID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	return id, nil
}
