package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/repositories"
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testPushTimeout = time.Second

func newTestCoordinator(t *testing.T) (*DeliveryCoordinator, *Registry, *repositories.MessageRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	messages := repositories.NewMessageRepository(db, log, nil)
	return NewDeliveryCoordinator(log, registry, messages, nil, testPushTimeout), registry, messages
}

func TestDeliveryCoordinator_Send_Both_Online(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, registry, _ := newTestCoordinator(t)
	alice, bob := newRecordingConnection(), newRecordingConnection()
	registry.Register("alice", alice)
	registry.Register("bob", bob)

	// When alice sends a message to bob
	message, err := coordinator.Send(ctx, domain.SendMessageCommand{SenderID: "alice", RecipientID: "bob", Text: "hi"})
	req.NoError(err)

	// Then it is delivered immediately
	req.True(message.Delivered)
	req.False(message.Read)

	// And both connections receive the same message
	req.Equal([]event.DomainEvent{event.NewMessage{Message: message}}, bob.Events())
	req.Equal([]event.DomainEvent{event.NewMessage{Message: message}}, alice.Events())
}

func TestDeliveryCoordinator_Send_Recipient_Offline_Then_Delivered(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, registry, messages := newTestCoordinator(t)
	alice := newRecordingConnection()
	registry.Register("alice", alice)

	// When alice sends a message to bob who is offline
	message, err := coordinator.Send(ctx, domain.SendMessageCommand{SenderID: "alice", RecipientID: "bob", Text: "hi"})
	req.NoError(err)

	// Then it is stored as not delivered and only echoed to alice
	req.False(message.Delivered)
	req.Len(alice.Events(), 1)

	// When bob later acknowledges it
	err = coordinator.MarkDelivered(ctx, domain.MarkDeliveredCommand{MessageID: message.ID.String()})
	req.NoError(err)

	// Then the flag is stored and alice is notified
	stored, err := messages.Get(ctx, message.ID)
	req.NoError(err)
	req.True(stored.Delivered)
	req.Equal(event.MessageDelivered{MessageID: message.ID}, alice.Events()[1])
}

func TestDeliveryCoordinator_MarkDelivered_Sender_Offline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, _, messages := newTestCoordinator(t)

	// Given a message sent while nobody was online
	message, err := coordinator.Send(ctx, domain.SendMessageCommand{SenderID: "alice", RecipientID: "bob", Text: "hi"})
	req.NoError(err)

	// When it is marked delivered
	err = coordinator.MarkDelivered(ctx, domain.MarkDeliveredCommand{MessageID: message.ID.String()})

	// Then the flag is set without any push
	req.NoError(err)
	stored, err := messages.Get(ctx, message.ID)
	req.NoError(err)
	req.True(stored.Delivered)
}

func TestDeliveryCoordinator_MarkRead_Twice_Notifies_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, registry, _ := newTestCoordinator(t)
	alice := newRecordingConnection()
	registry.Register("alice", alice)
	message, err := coordinator.Send(ctx, domain.SendMessageCommand{SenderID: "alice", RecipientID: "bob", Text: "hi"})
	req.NoError(err)

	// When the read acknowledgement arrives twice
	cmd := domain.MarkReadCommand{MessageID: message.ID.String()}
	req.NoError(coordinator.MarkRead(ctx, cmd))
	req.NoError(coordinator.MarkRead(ctx, cmd))

	// Then alice sees the echo and a single read acknowledgement
	req.Equal([]event.DomainEvent{
		event.NewMessage{Message: message},
		event.MessageRead{MessageID: message.ID},
	}, alice.Events())
}

func TestDeliveryCoordinator_MarkDelivered_After_MarkRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, registry, messages := newTestCoordinator(t)
	alice := newRecordingConnection()
	registry.Register("alice", alice)
	message, err := coordinator.Send(ctx, domain.SendMessageCommand{SenderID: "alice", RecipientID: "bob", Text: "hi"})
	req.NoError(err)

	// When read arrives before delivered
	req.NoError(coordinator.MarkRead(ctx, domain.MarkReadCommand{MessageID: message.ID.String()}))
	req.NoError(coordinator.MarkDelivered(ctx, domain.MarkDeliveredCommand{MessageID: message.ID.String()}))

	// Then both flags are set
	stored, err := messages.Get(ctx, message.ID)
	req.NoError(err)
	req.True(stored.Delivered)
	req.True(stored.Read)

	// And alice received both acknowledgements
	req.Equal([]event.DomainEvent{
		event.NewMessage{Message: message},
		event.MessageRead{MessageID: message.ID},
		event.MessageDelivered{MessageID: message.ID},
	}, alice.Events())
}

func TestDeliveryCoordinator_Unknown_Message_Is_Ignored(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, registry, _ := newTestCoordinator(t)
	alice := newRecordingConnection()
	registry.Register("alice", alice)

	err := coordinator.MarkDelivered(ctx, domain.MarkDeliveredCommand{MessageID: uuid.NewString()})
	req.NoError(err)
	err = coordinator.MarkRead(ctx, domain.MarkReadCommand{MessageID: uuid.NewString()})
	req.NoError(err)

	req.Empty(alice.Events())
}

func TestDeliveryCoordinator_Invalid_Commands(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, _, _ := newTestCoordinator(t)

	_, err := coordinator.Send(ctx, domain.SendMessageCommand{SenderID: "alice", RecipientID: "bob"})
	req.ErrorIs(err, errors.ErrInvalidCommand)

	err = coordinator.MarkRead(ctx, domain.MarkReadCommand{MessageID: "not-a-uuid"})
	req.ErrorIs(err, errors.ErrInvalidCommand)
}

func TestDeliveryCoordinator_Self_Message_Pushed_Once(t *testing.T) {
	req := require.New(t)
	coordinator, registry, _ := newTestCoordinator(t)
	alice := newRecordingConnection()
	registry.Register("alice", alice)

	message, err := coordinator.Send(context.Background(),
		domain.SendMessageCommand{SenderID: "alice", RecipientID: "alice", Text: "note to self"})

	req.NoError(err)
	req.Equal([]event.DomainEvent{event.NewMessage{Message: message}}, alice.Events())
}

func TestDeliveryCoordinator_Push_Failure_Is_Treated_As_Offline(t *testing.T) {
	req := require.New(t)
	coordinator, registry, _ := newTestCoordinator(t)
	alice, bob := newRecordingConnection(), newRecordingConnection()
	bob.err = errors.ErrConnectionClosed
	registry.Register("alice", alice)
	registry.Register("bob", bob)

	// When bob's connection is dead but not yet reaped
	message, err := coordinator.Send(context.Background(),
		domain.SendMessageCommand{SenderID: "alice", RecipientID: "bob", Text: "hi"})

	// Then the send still succeeds and alice gets her echo
	req.NoError(err)
	req.True(message.Delivered)
	req.Len(alice.Events(), 1)
	req.Empty(bob.Events())
}

func TestDeliveryCoordinator_Persistence_Failure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := NewRegistry()
	alice, bob := newRecordingConnection(), newRecordingConnection()
	registry.Register("alice", alice)
	registry.Register("bob", bob)
	coordinator := NewDeliveryCoordinator(slog.Default(), registry, messages, nil, testPushTimeout)
	diskFull := stderrors.New("disk full")

	t.Run("send pushes nothing", func(t *testing.T) {
		messages.EXPECT().
			Create(gomock.Any(), domain.UserID("alice"), domain.UserID("bob"), "hi", true).
			Return(domain.Message{}, diskFull)

		_, err := coordinator.Send(ctx, domain.SendMessageCommand{SenderID: "alice", RecipientID: "bob", Text: "hi"})

		req.ErrorIs(err, errors.ErrPersistenceFailed)
		req.ErrorIs(err, diskFull)
		req.Empty(alice.Events())
		req.Empty(bob.Events())
	})

	t.Run("acknowledgement surfaces the failure", func(t *testing.T) {
		id := uuid.New()
		messages.EXPECT().SetRead(gomock.Any(), id).Return(domain.Message{}, false, diskFull)

		err := coordinator.MarkRead(ctx, domain.MarkReadCommand{MessageID: id.String()})

		req.ErrorIs(err, errors.ErrPersistenceFailed)
		req.Empty(alice.Events())
	})
}
