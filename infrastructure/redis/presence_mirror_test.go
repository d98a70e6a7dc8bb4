package redis

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// Requires a reachable server, e.g. REDIS_ADDR=localhost:6379
func newTestMirror(t *testing.T, ttl time.Duration) *PresenceMirror {
	t.Helper()
	address := os.Getenv("REDIS_ADDR")
	if address == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := Connect(ctx, address)
	require.NoError(t, err)
	key := "chat-relay-test:" + uuid.NewString()
	t.Cleanup(func() {
		_ = client.Del(context.Background(), key).Err()
		_ = client.Close()
	})
	return NewPresenceMirror(client, logs.GetLoggerFromLevel(slog.LevelDebug), key, ttl)
}

func Test_Publish_Replaces_Online_Set(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	mirror := newTestMirror(t, time.Minute)

	// Given alice and bob online
	req.NoError(mirror.Publish(ctx, []domain.UserID{"alice", "bob"}))

	// When bob leaves and clara joins
	req.NoError(mirror.Publish(ctx, []domain.UserID{"alice", "clara"}))

	// Then the mirrored set is the latest snapshot only
	online, err := mirror.Online(ctx)
	req.NoError(err)
	req.ElementsMatch([]domain.UserID{"alice", "clara"}, online)
}

func Test_Publish_Empty_Snapshot_Clears_Set(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	mirror := newTestMirror(t, time.Minute)
	req.NoError(mirror.Publish(ctx, []domain.UserID{"alice"}))

	req.NoError(mirror.Publish(ctx, nil))

	online, err := mirror.Online(ctx)
	req.NoError(err)
	req.Empty(online)
}

func Test_Republish_Keeps_Set_Past_Its_TTL(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ttl := 400 * time.Millisecond
	mirror := newTestMirror(t, ttl)

	// Given alice online and the snapshot republished within the TTL
	req.NoError(mirror.Publish(ctx, []domain.UserID{"alice"}))
	time.Sleep(ttl / 2)
	req.NoError(mirror.Publish(ctx, []domain.UserID{"alice"}))
	time.Sleep(ttl/2 + 100*time.Millisecond)

	// Then alice is still mirrored after the first TTL elapsed
	online, err := mirror.Online(ctx)
	req.NoError(err)
	req.Equal([]domain.UserID{"alice"}, online)

	// And the set expires once republishing stops
	time.Sleep(ttl + 100*time.Millisecond)
	online, err = mirror.Online(ctx)
	req.NoError(err)
	req.Empty(online)
}

func Test_Connect_Rejects_Malformed_URL(t *testing.T) {
	_, err := Connect(context.Background(), "redis://:badport:x")
	require.Error(t, err)
}
