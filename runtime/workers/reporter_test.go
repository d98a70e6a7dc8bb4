package workers

import (
	"bytes"
	"chat-relay/observability"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReporterWorker_Reports_Latest_Stats(t *testing.T) {
	req := require.New(t)
	out := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(out, nil))
	monitoring := observability.NewMonitoringManager(log, time.Hour, func() int { return 2 })
	monitoring.IncrMessagesSent()
	monitoring.Refresh()
	reporter := NewReporterWorker(log, monitoring, 10*time.Millisecond)

	// When the reporter runs for a few ticks
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reporter.Run(ctx) }()
	req.Eventually(func() bool {
		return bytes.Contains([]byte(out.String()), []byte("Relay report"))
	}, time.Second, 5*time.Millisecond)
	cancel()

	// Then it stops cleanly and the report carries the counters
	req.NoError(<-done)
	req.Contains(out.String(), "online=2")
	req.Contains(out.String(), "sent=1")
}
