//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const maxConflictRetries = 5

// IMessageRepository is the storage boundary of the delivery lifecycle.
// SetDelivered and SetRead report whether the call changed the flag, so
// callers can stay silent on duplicate acknowledgements.
type IMessageRepository interface {
	Create(ctx context.Context, sender, recipient domain.UserID, text string, delivered bool) (domain.Message, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Message, error)
	SetDelivered(ctx context.Context, id uuid.UUID) (domain.Message, bool, error)
	SetRead(ctx context.Context, id uuid.UUID) (domain.Message, bool, error)
	FindConversation(ctx context.Context, userA, userB domain.UserID) ([]domain.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
	clock         *MonotonicClock
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages, clock: NewMonotonicClock()}
}

// MonotonicClock hands out strictly increasing UTC timestamps so two
// messages of the same pair never share a conversation position.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Nanosecond)
	}
	c.last = now
	return now
}

type DiskMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
	At        int64  `json:"at"`
	Delivered bool   `json:"delivered"`
	Read      bool   `json:"read"`
}

// MessagePrefix is the key space holding message records.
const MessagePrefix = "msg:"

func messageKey(id uuid.UUID) []byte {
	return []byte(MessagePrefix + id.String())
}

// conversationPrefix is shared by both directions of a pair: the two user
// IDs are ordered before being joined. Each ID is length prefixed so no
// pair's prefix is a prefix of another pair's keys, whatever bytes the IDs hold.
func conversationPrefix(userA, userB domain.UserID) string {
	low, high := userA, userB
	if high < low {
		low, high = high, low
	}
	return fmt.Sprintf("conv:%d:%s:%d:%s:", len(low), low, len(high), high)
}

// conversationKey is formatted as "conv:{len}:{low}:{len}:{high}:{timestamp_padded}:{uuid}".
// The 19-digit zero padding keeps lexicographical order chronological and
// the UUID separates messages created in the same nanosecond.
func conversationKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s",
		conversationPrefix(m.SenderID, m.RecipientID),
		m.CreatedAt.UnixNano(),
		m.ID,
	))
}

// Create assigns the message identity and timestamp, then writes the record
// and its conversation index in one transaction.
func (m *MessageRepository) Create(ctx context.Context, sender, recipient domain.UserID, text string, delivered bool) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	message := domain.Message{
		ID:          uuid.New(),
		SenderID:    sender,
		RecipientID: recipient,
		Text:        text,
		CreatedAt:   m.clock.Now(),
		Delivered:   delivered,
	}
	bytes, err := MarshalMessage(message)
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(message.ID), bytes); err != nil {
			return err
		}
		return txn.Set(conversationKey(message), []byte{})
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("store message %s: %w", message.ID, err)
	}
	return message, nil
}

func (m *MessageRepository) Get(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		message, err = readMessage(txn, id)
		return err
	})
	return message, err
}

func (m *MessageRepository) SetDelivered(ctx context.Context, id uuid.UUID) (domain.Message, bool, error) {
	return m.update(ctx, id, func(message *domain.Message) bool {
		if message.Delivered {
			return false
		}
		message.Delivered = true
		return true
	})
}

func (m *MessageRepository) SetRead(ctx context.Context, id uuid.UUID) (domain.Message, bool, error) {
	return m.update(ctx, id, func(message *domain.Message) bool {
		if message.Read {
			return false
		}
		message.Read = true
		return true
	})
}

// update applies a monotonic flag change in a read-modify-write transaction.
// Concurrent acknowledgements on the same message surface as badger
// conflicts; the write is idempotent so it is simply replayed.
func (m *MessageRepository) update(ctx context.Context, id uuid.UUID, mutate func(*domain.Message) bool) (domain.Message, bool, error) {
	var (
		message domain.Message
		changed bool
		err     error
	)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return domain.Message{}, false, err
		}
		err = m.db.Update(func(txn *badger.Txn) error {
			current, err := readMessage(txn, id)
			if err != nil {
				return err
			}
			message = current
			changed = mutate(&message)
			if !changed {
				return nil
			}
			bytes, err := MarshalMessage(message)
			if err != nil {
				return err
			}
			return txn.Set(messageKey(id), bytes)
		})
		if !stderrors.Is(err, badger.ErrConflict) {
			break
		}
		m.log.Debug("Conflicting flag update, replaying", "message_id", id, "attempt", attempt+1)
	}
	if err != nil {
		return domain.Message{}, false, err
	}
	return message, changed, nil
}

// FindConversation returns the messages exchanged between two users, oldest first.
// When a limit is configured only the most recent messages are kept.
func (m *MessageRepository) FindConversation(ctx context.Context, userA, userB domain.UserID) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(conversationPrefix(userA, userB))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts past the newest key of the prefix.
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			key := it.Item().Key()
			rawID := string(key[len(key)-36:])
			id, err := uuid.Parse(rawID)
			if err != nil {
				return fmt.Errorf("corrupted conversation key %q: %w", key, err)
			}
			message, err := readMessage(txn, id)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func readMessage(txn *badger.Txn, id uuid.UUID) (domain.Message, error) {
	item, err := txn.Get(messageKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrMessageNotFound, id)
	}
	if err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	err = item.Value(func(value []byte) error {
		message, err = UnmarshalMessage(value)
		return err
	})
	return message, err
}

// MarshalMessage encodes a message the way it is laid out on disk.
func MarshalMessage(message domain.Message) ([]byte, error) {
	return json.Marshal(fromMessage(message))
}

// UnmarshalMessage decodes a record read under MessagePrefix.
func UnmarshalMessage(value []byte) (domain.Message, error) {
	var diskMessage DiskMessage
	if err := json.Unmarshal(value, &diskMessage); err != nil {
		return domain.Message{}, err
	}
	return toMessage(diskMessage)
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:        message.ID.String(),
		Sender:    string(message.SenderID),
		Recipient: string(message.RecipientID),
		Text:      message.Text,
		At:        message.CreatedAt.UnixNano(),
		Delivered: message.Delivered,
		Read:      message.Read,
	}
}

func toMessage(diskMessage DiskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(diskMessage.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:          parsedID,
		SenderID:    domain.UserID(diskMessage.Sender),
		RecipientID: domain.UserID(diskMessage.Recipient),
		Text:        diskMessage.Text,
		CreatedAt:   time.Unix(0, diskMessage.At).UTC(),
		Delivered:   diskMessage.Delivered,
		Read:        diskMessage.Read,
	}, nil
}
