package runtime

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignaler_RelayTyping(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	monitoring := observability.NewMonitoringManager(slog.Default(), time.Second, registry.Len)
	signaler := NewSignaler(slog.Default(), registry, monitoring, time.Second)
	alice, bob := newRecordingConnection(), newRecordingConnection()
	registry.Register("alice", alice)
	registry.Register("bob", bob)

	// When alice types to bob
	signaler.RelayTyping(context.Background(), "alice", "bob")

	// Then only bob is told
	req.Equal([]event.DomainEvent{event.Typing{From: "alice"}}, bob.Events())
	req.Empty(alice.Events())
	monitoring.Refresh()
	req.Equal(uint64(1), monitoring.GetLatest().TypingRelayed)
}

func TestSignaler_RelayTyping_Recipient_Offline(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	monitoring := observability.NewMonitoringManager(slog.Default(), time.Second, registry.Len)
	signaler := NewSignaler(slog.Default(), registry, monitoring, time.Second)
	alice := newRecordingConnection()
	registry.Register("alice", alice)

	// When bob is offline the signal is dropped silently
	signaler.RelayTyping(context.Background(), "alice", "bob")

	req.Empty(alice.Events())
	monitoring.Refresh()
	req.Equal(uint64(1), monitoring.GetLatest().SignalsDropped)
	req.Zero(monitoring.GetLatest().TypingRelayed)
}

func TestSignaler_RelaySocialEvent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	signaler := NewSignaler(slog.Default(), registry, nil, time.Second)
	bob := newRecordingConnection()
	registry.Register("bob", bob)
	notification := event.SocialNotification{
		Kind:         event.FriendRequestName,
		FromUserID:   "alice",
		FromUsername: "Alice",
	}

	signaler.RelaySocialEvent(context.Background(), "bob", notification)
	signaler.RelaySocialEvent(context.Background(), "clara", notification)

	req.Equal([]event.DomainEvent{notification}, bob.Events())
}

func TestSignaler_Dead_Connection_Drops_Signal(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	signaler := NewSignaler(slog.Default(), registry, nil, time.Second)
	bob := newRecordingConnection()
	bob.err = errors.ErrSlowConsumer
	registry.Register("bob", bob)

	req.NotPanics(func() {
		signaler.RelayTyping(context.Background(), "alice", "bob")
	})
	req.Empty(bob.Events())
}
