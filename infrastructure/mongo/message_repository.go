package mongo

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "messages"

var _ repositories.IMessageRepository = (*MessageRepository)(nil)

type messageDocument struct {
	ID        string    `bson:"_id"`
	Pair      string    `bson:"pair"`
	Seq       int64     `bson:"seq"`
	Sender    string    `bson:"sender"`
	Recipient string    `bson:"recipient"`
	Text      string    `bson:"text"`
	Timestamp time.Time `bson:"timestamp"`
	Delivered bool      `bson:"delivered"`
	Read      bool      `bson:"read"`
}

// MessageRepository keeps one document per message.
// Flags are flipped with a conditional FindOneAndUpdate so only the call
// that actually changes a flag sees a match.
type MessageRepository struct {
	collection    *mongo.Collection
	log           *slog.Logger
	limitMessages *int
	clock         *repositories.MonotonicClock
}

func NewMessageRepository(db *mongo.Database, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{
		collection:    db.Collection(messagesCollection),
		log:           log,
		limitMessages: limitMessages,
		clock:         repositories.NewMonotonicClock(),
	}
}

// EnsureIndexes creates the conversation index, it is idempotent.
func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "pair", Value: 1}, {Key: "seq", Value: 1}},
	})
	return err
}

// pairKey is identical for both directions of a conversation.
// The lower ID is length prefixed so IDs containing the separator
// never collide with another pair.
func pairKey(userA, userB domain.UserID) string {
	low, high := userA, userB
	if high < low {
		low, high = high, low
	}
	return fmt.Sprintf("%d:%s|%s", len(low), low, high)
}

func (r *MessageRepository) Create(ctx context.Context, sender, recipient domain.UserID, text string, delivered bool) (domain.Message, error) {
	now := r.clock.Now()
	doc := messageDocument{
		ID:        uuid.NewString(),
		Pair:      pairKey(sender, recipient),
		Seq:       now.UnixNano(),
		Sender:    string(sender),
		Recipient: string(recipient),
		Text:      text,
		// BSON dates have millisecond precision.
		Timestamp: now.Truncate(time.Millisecond),
		Delivered: delivered,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return toMessage(doc)
}

func (r *MessageRepository) Get(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	var doc messageDocument
	err := r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrMessageNotFound, id)
	}
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(doc)
}

func (r *MessageRepository) SetDelivered(ctx context.Context, id uuid.UUID) (domain.Message, bool, error) {
	return r.setFlag(ctx, id, "delivered")
}

func (r *MessageRepository) SetRead(ctx context.Context, id uuid.UUID) (domain.Message, bool, error) {
	return r.setFlag(ctx, id, "read")
}

func (r *MessageRepository) setFlag(ctx context.Context, id uuid.UUID, field string) (domain.Message, bool, error) {
	filter := bson.D{{Key: "_id", Value: id.String()}, {Key: field, Value: false}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: true}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc messageDocument
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		message, err := toMessage(doc)
		return message, err == nil, err
	}
	if !stderrors.Is(err, mongo.ErrNoDocuments) {
		return domain.Message{}, false, err
	}

	// Either the flag was already set or the message does not exist.
	message, err := r.Get(ctx, id)
	if err != nil {
		return domain.Message{}, false, err
	}
	return message, false, nil
}

// FindConversation returns the messages exchanged between two users, oldest first.
func (r *MessageRepository) FindConversation(ctx context.Context, userA, userB domain.UserID) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if r.limitMessages != nil {
		opts.SetLimit(int64(*r.limitMessages))
	}
	cursor, err := r.collection.Find(ctx, bson.D{{Key: "pair", Value: pairKey(userA, userB)}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []messageDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	slices.Reverse(docs)

	messages := make([]domain.Message, 0, len(docs))
	for _, doc := range docs {
		message, err := toMessage(doc)
		if err != nil {
			r.log.Warn("Skipping corrupted message document", "id", doc.ID, "error", err)
			continue
		}
		if !between(message, userA, userB) {
			r.log.Warn("Skipping message of another conversation", "id", doc.ID)
			continue
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func between(message domain.Message, userA, userB domain.UserID) bool {
	return (message.SenderID == userA && message.RecipientID == userB) ||
		(message.SenderID == userB && message.RecipientID == userA)
}

func toMessage(doc messageDocument) (domain.Message, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:          id,
		SenderID:    domain.UserID(doc.Sender),
		RecipientID: domain.UserID(doc.Recipient),
		Text:        doc.Text,
		CreatedAt:   doc.Timestamp.UTC(),
		Delivered:   doc.Delivered,
		Read:        doc.Read,
	}, nil
}
