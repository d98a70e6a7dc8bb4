package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Create_And_Get_Message(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	// When a message is created while the recipient is online
	created, err := repository.Create(ctx, "alice", "bob", "hi", true)
	req.NoError(err)

	// Then an identity and a timestamp are assigned
	req.NotEqual(uuid.Nil, created.ID)
	req.False(created.CreatedAt.IsZero())
	req.True(created.Delivered)
	req.False(created.Read)

	// And the stored record is identical
	fetched, err := repository.Get(ctx, created.ID)
	req.NoError(err)
	req.Equal(created, fetched)
}

func Test_Get_Unknown_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	_, err := repository.Get(context.Background(), uuid.New())

	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func Test_SetDelivered_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	created, err := repository.Create(ctx, "alice", "bob", "hi", false)
	req.NoError(err)

	// When delivered is set twice
	first, changed, err := repository.SetDelivered(ctx, created.ID)
	req.NoError(err)
	req.True(changed)
	req.True(first.Delivered)

	second, changed, err := repository.SetDelivered(ctx, created.ID)
	req.NoError(err)

	// Then only the first call reports a change
	req.False(changed)
	req.Equal(first, second)
}

func Test_SetRead_Does_Not_Touch_Delivered(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	created, err := repository.Create(ctx, "alice", "bob", "hi", false)
	req.NoError(err)

	read, changed, err := repository.SetRead(ctx, created.ID)
	req.NoError(err)
	req.True(changed)
	req.True(read.Read)
	req.False(read.Delivered)

	// And a late delivered acknowledgement keeps read
	delivered, changed, err := repository.SetDelivered(ctx, created.ID)
	req.NoError(err)
	req.True(changed)
	req.True(delivered.Delivered)
	req.True(delivered.Read)
	req.Equal(domain.StatusRead, delivered.Status())
}

func Test_Set_Flags_On_Unknown_Message(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	_, _, err := repository.SetDelivered(ctx, uuid.New())
	req.ErrorIs(err, errors.ErrMessageNotFound)

	_, _, err = repository.SetRead(ctx, uuid.New())
	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func Test_Concurrent_Acknowledgements_Converge(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	repository := NewMessageRepository(openTestDB(t), log, nil)
	created, err := repository.Create(ctx, "alice", "bob", "hi", false)
	req.NoError(err)

	// When delivered and read acknowledgements race
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = repository.SetDelivered(ctx, created.ID)
		}()
		go func() {
			defer wg.Done()
			_, _, _ = repository.SetRead(ctx, created.ID)
		}()
	}
	wg.Wait()

	// Then both flags end up set whatever the arrival order
	_, _, err = repository.SetDelivered(ctx, created.ID)
	req.NoError(err)
	_, _, err = repository.SetRead(ctx, created.ID)
	req.NoError(err)
	final, err := repository.Get(ctx, created.ID)
	req.NoError(err)
	req.True(final.Delivered)
	req.True(final.Read)
}

func Test_FindConversation_Oldest_First_Both_Directions(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	// Given a conversation between alice and bob
	// And an unrelated conversation between alice and clara
	var expected []domain.Message
	for i := 0; i < 3; i++ {
		fromAlice, err := repository.Create(ctx, "alice", "bob", fmt.Sprintf("ping %d", i), false)
		req.NoError(err)
		fromBob, err := repository.Create(ctx, "bob", "alice", fmt.Sprintf("pong %d", i), false)
		req.NoError(err)
		expected = append(expected, fromAlice, fromBob)
	}
	_, err := repository.Create(ctx, "alice", "clara", "hello clara", false)
	req.NoError(err)

	// When fetching the conversation from either side
	fromAlice, err := repository.FindConversation(ctx, "alice", "bob")
	req.NoError(err)
	fromBob, err := repository.FindConversation(ctx, "bob", "alice")
	req.NoError(err)

	// Then both directions are included in creation order
	req.Equal(expected, fromAlice)
	req.Equal(expected, fromBob)
}

func Test_FindConversation_Ignores_Pairs_Sharing_A_Prefix(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	// Given user IDs that extend "bob" with separator-like bytes
	for _, other := range []domain.UserID{"bob\x00mallory", "bob:mallory", "bobby"} {
		_, err := repository.Create(ctx, "alice", other, "not for bob", false)
		req.NoError(err)
	}
	own, err := repository.Create(ctx, "alice", "bob", "hello bob", false)
	req.NoError(err)

	// When alice reads her conversation with bob
	messages, err := repository.FindConversation(ctx, "alice", "bob")
	req.NoError(err)

	// Then only their own message is returned
	req.Equal([]domain.Message{own}, messages)

	// And the other pairs still see their own message
	theirs, err := repository.FindConversation(ctx, "bob\x00mallory", "alice")
	req.NoError(err)
	req.Len(theirs, 1)
	req.Equal(domain.UserID("bob\x00mallory"), theirs[0].RecipientID)
}

func Test_ConversationPrefix_Is_Prefix_Free(t *testing.T) {
	req := require.New(t)
	pairs := [][2]domain.UserID{
		{"alice", "bob"},
		{"alice", "bob\x00mallory"},
		{"alice\x00bob", "mallory"},
		{"a:1:b", "c"},
		{"a", "1:b:c"},
	}
	for i, a := range pairs {
		for j, b := range pairs {
			if i == j {
				continue
			}
			req.False(strings.HasPrefix(conversationPrefix(b[0], b[1]), conversationPrefix(a[0], a[1])),
				"%q is a prefix of %q", conversationPrefix(a[0], a[1]), conversationPrefix(b[0], b[1]))
		}
	}
	req.Equal(conversationPrefix("alice", "bob"), conversationPrefix("bob", "alice"))
}

func Test_FindConversation_Limit_Keeps_Most_Recent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	limit := 2
	repository := NewMessageRepository(openTestDB(t), slog.Default(), &limit)

	var created []domain.Message
	for i := 0; i < 5; i++ {
		message, err := repository.Create(ctx, "alice", "bob", fmt.Sprintf("message %d", i), false)
		req.NoError(err)
		created = append(created, message)
	}

	messages, err := repository.FindConversation(ctx, "alice", "bob")
	req.NoError(err)

	req.Len(messages, limit)
	req.Equal(created[3:], messages)
}

func Test_FindConversation_Empty(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	messages, err := repository.FindConversation(context.Background(), "alice", "bob")

	req.NoError(err)
	req.Empty(messages)
}
