package observability

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const defaultRefreshInterval = 5 * time.Second

// RelayStats aggregates the relay counters exposed on the stats endpoint.
type RelayStats struct {
	OnlineUsers       int     `json:"online_users"`
	Registrations     uint64  `json:"registrations"`
	Disconnections    uint64  `json:"disconnections"`
	MessagesSent      uint64  `json:"messages_sent"`
	MessagesDelivered uint64  `json:"messages_delivered"`
	MessagesRead      uint64  `json:"messages_read"`
	TypingRelayed     uint64  `json:"typing_relayed"`
	SignalsDropped    uint64  `json:"signals_dropped"`
	PresenceBroadcast uint64  `json:"presence_broadcasts"`
	PushFailures      uint64  `json:"push_failures"`
	PersistFailures   uint64  `json:"persist_failures"`
	MessagesPerSecond float64 `json:"messages_per_second"`
	AllocMemMb        uint64  `json:"alloc_mem_mb"`
	NumGC             uint32  `json:"num_gc"`
}

// MonitoringManager keeps atomic counters updated on the hot path and
// periodically folds them into a RelayStats snapshot.
// All methods are safe on a nil receiver so components can run without it.
type MonitoringManager struct {
	log         *slog.Logger
	interval    time.Duration
	onlineCount func() int

	mu          sync.RWMutex
	latestStats RelayStats
	lastSent    uint64
	lastCheck   time.Time

	registrations     atomic.Uint64
	disconnections    atomic.Uint64
	messagesSent      atomic.Uint64
	messagesDelivered atomic.Uint64
	messagesRead      atomic.Uint64
	typingRelayed     atomic.Uint64
	signalsDropped    atomic.Uint64
	presenceBroadcast atomic.Uint64
	pushFailures      atomic.Uint64
	persistFailures   atomic.Uint64
}

func NewMonitoringManager(log *slog.Logger, interval time.Duration, onlineCount func() int) *MonitoringManager {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &MonitoringManager{
		log:         log,
		interval:    interval,
		onlineCount: onlineCount,
		lastCheck:   time.Now(),
	}
}

func (mm *MonitoringManager) IncrRegistrations() {
	if mm != nil {
		mm.registrations.Add(1)
	}
}

func (mm *MonitoringManager) IncrDisconnections() {
	if mm != nil {
		mm.disconnections.Add(1)
	}
}

func (mm *MonitoringManager) IncrMessagesSent() {
	if mm != nil {
		mm.messagesSent.Add(1)
	}
}

func (mm *MonitoringManager) IncrMessagesDelivered() {
	if mm != nil {
		mm.messagesDelivered.Add(1)
	}
}

func (mm *MonitoringManager) IncrMessagesRead() {
	if mm != nil {
		mm.messagesRead.Add(1)
	}
}

func (mm *MonitoringManager) IncrTypingRelayed() {
	if mm != nil {
		mm.typingRelayed.Add(1)
	}
}

func (mm *MonitoringManager) IncrSignalsDropped() {
	if mm != nil {
		mm.signalsDropped.Add(1)
	}
}

func (mm *MonitoringManager) IncrPresenceBroadcast() {
	if mm != nil {
		mm.presenceBroadcast.Add(1)
	}
}

func (mm *MonitoringManager) IncrPushFailures() {
	if mm != nil {
		mm.pushFailures.Add(1)
	}
}

func (mm *MonitoringManager) IncrPersistFailures() {
	if mm != nil {
		mm.persistFailures.Add(1)
	}
}

// Run refreshes the snapshot on every tick until the context is canceled.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mm.log.Debug("Monitoring manager stopped")
			return nil
		case <-ticker.C:
			mm.Refresh()
		}
	}
}

// Refresh folds the counters into the latest snapshot and computes the send rate.
func (mm *MonitoringManager) Refresh() {
	if mm == nil {
		return
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()

	now := time.Now()
	sent := mm.messagesSent.Load()
	if elapsed := now.Sub(mm.lastCheck).Seconds(); elapsed > 0 {
		mm.latestStats.MessagesPerSecond = float64(sent-mm.lastSent) / elapsed
	}
	mm.lastSent = sent
	mm.lastCheck = now

	mm.latestStats.Registrations = mm.registrations.Load()
	mm.latestStats.Disconnections = mm.disconnections.Load()
	mm.latestStats.MessagesSent = sent
	mm.latestStats.MessagesDelivered = mm.messagesDelivered.Load()
	mm.latestStats.MessagesRead = mm.messagesRead.Load()
	mm.latestStats.TypingRelayed = mm.typingRelayed.Load()
	mm.latestStats.SignalsDropped = mm.signalsDropped.Load()
	mm.latestStats.PresenceBroadcast = mm.presenceBroadcast.Load()
	mm.latestStats.PushFailures = mm.pushFailures.Load()
	mm.latestStats.PersistFailures = mm.persistFailures.Load()
	if mm.onlineCount != nil {
		mm.latestStats.OnlineUsers = mm.onlineCount()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mm.latestStats.AllocMemMb = m.Alloc / 1024 / 1024
	mm.latestStats.NumGC = m.NumGC

	mm.log.Debug("Relay stats refreshed",
		"online_users", mm.latestStats.OnlineUsers,
		"messages_sent", sent,
		"messages_per_second", mm.latestStats.MessagesPerSecond,
		"mem_mb", mm.latestStats.AllocMemMb,
	)
}

func (mm *MonitoringManager) GetLatest() RelayStats {
	if mm == nil {
		return RelayStats{}
	}
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
