package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

// ReporterWorker logs a one-line summary of the relay counters on every tick.
type ReporterWorker struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	interval   time.Duration
	startTime  time.Time
}

func NewReporterWorker(log *slog.Logger, monitoring *observability.MonitoringManager, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, monitoring: monitoring, interval: interval, startTime: time.Now()}
}

// Run starts the reporting loop until context cancellation, then reports once more.
func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report()
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *ReporterWorker) report() {
	stats := w.monitoring.GetLatest()
	w.log.Info("Relay report",
		"uptime", time.Since(w.startTime).Round(time.Second).String(),
		"online", stats.OnlineUsers,
		"sent", stats.MessagesSent,
		"delivered", stats.MessagesDelivered,
		"read", stats.MessagesRead,
		"push_failures", stats.PushFailures,
		"persist_failures", stats.PersistFailures,
		"mem_mb", stats.AllocMemMb,
	)
}
