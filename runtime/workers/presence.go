package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

// PresenceBroadcaster pushes the full online set to every registered
// connection whenever the registry changes.
//
// It is best effort: no acknowledgement and no retry. A failing
// connection is logged and skipped, the transport will reap it.
// Bursts of registry changes collapse into a single broadcast since each
// broadcast reads a fresh snapshot.
type PresenceBroadcaster struct {
	log         *slog.Logger
	registry    contract.IRegistry
	mirror      contract.IPresenceMirror
	refresh     time.Duration
	monitoring  *observability.MonitoringManager
	pushTimeout time.Duration
}

func NewPresenceBroadcaster(log *slog.Logger, registry contract.IRegistry,
	monitoring *observability.MonitoringManager, pushTimeout time.Duration) *PresenceBroadcaster {
	return &PresenceBroadcaster{
		log:         log,
		registry:    registry,
		monitoring:  monitoring,
		pushTimeout: pushTimeout,
	}
}

// WithMirror publishes each snapshot to an external store as well.
// The mirror is also republished every refresh interval so an expiring
// copy outlives a quiet registry. A non-positive interval disables it.
func (p *PresenceBroadcaster) WithMirror(mirror contract.IPresenceMirror, refresh time.Duration) *PresenceBroadcaster {
	p.mirror = mirror
	p.refresh = refresh
	return p
}

func (p *PresenceBroadcaster) Run(ctx context.Context) error {
	changes := p.registry.Changes()

	var refresh <-chan time.Time
	if p.mirror != nil && p.refresh > 0 {
		ticker := time.NewTicker(p.refresh)
		defer ticker.Stop()
		refresh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("Context done, stopping presence broadcast")
			return nil
		case <-changes:
			p.Broadcast(ctx)
		case <-refresh:
			p.publish(ctx, p.registry.Snapshot())
		}
	}
}

// Broadcast sends the current snapshot to all registered connections.
func (p *PresenceBroadcaster) Broadcast(ctx context.Context) {
	users, conns := p.registry.View()
	evt := event.OnlineUsers{Users: users}

	for _, conn := range conns {
		pushCtx, cancel := context.WithTimeout(ctx, p.pushTimeout)
		err := conn.Consume(pushCtx, evt)
		cancel()
		if err != nil {
			p.monitoring.IncrPushFailures()
			p.log.Warn("Failed to push online users", "connection_id", conn.ID(), "error", err)
		}
	}
	p.monitoring.IncrPresenceBroadcast()
	p.publish(ctx, users)
	p.log.Debug("Online users broadcast", "online", len(users))
}

func (p *PresenceBroadcaster) publish(ctx context.Context, users []domain.UserID) {
	if p.mirror == nil {
		return
	}
	if err := p.mirror.Publish(ctx, users); err != nil {
		p.log.Warn("Failed to mirror online users", "error", err)
	}
}
