package observability

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitoringManager_Refresh_Folds_Counters(t *testing.T) {
	req := require.New(t)
	online := 3
	mm := NewMonitoringManager(slog.Default(), time.Second, func() int { return online })

	mm.IncrRegistrations()
	mm.IncrMessagesSent()
	mm.IncrMessagesSent()
	mm.IncrMessagesRead()
	mm.IncrPushFailures()

	// Counters are only visible after a refresh
	req.Zero(mm.GetLatest().MessagesSent)
	mm.Refresh()

	stats := mm.GetLatest()
	req.Equal(3, stats.OnlineUsers)
	req.Equal(uint64(1), stats.Registrations)
	req.Equal(uint64(2), stats.MessagesSent)
	req.Equal(uint64(1), stats.MessagesRead)
	req.Equal(uint64(1), stats.PushFailures)
	req.Positive(stats.MessagesPerSecond)
}

func TestMonitoringManager_Nil_Receiver(t *testing.T) {
	req := require.New(t)
	var mm *MonitoringManager

	req.NotPanics(func() {
		mm.IncrMessagesSent()
		mm.IncrSignalsDropped()
		_ = mm.GetLatest()
	})
}

func TestMonitoringManager_Run_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	mm := NewMonitoringManager(slog.Default(), 10*time.Millisecond, nil)
	mm.IncrMessagesSent()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req.NoError(mm.Run(ctx))
	req.Equal(uint64(1), mm.GetLatest().MessagesSent)
}
